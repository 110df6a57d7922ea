package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:123:digests
      region: us-east-1
      access_key_id: AKID
      secret_access_key: secret
  - id: gcp
    type: pubsub
    pubsub:
      project_id: demo
      topic: digests
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "topic" || enabled[1].ID != "gcp" {
		t.Fatalf("expected topic and gcp enabled, got %#v", enabled)
	}
	if !enabled[0].SNS.static() || enabled[0].SNS.AccessKeyID != "AKID" {
		t.Fatalf("expected inline static credentials, got %#v", enabled[0].SNS)
	}
	if cfg, ok := reg.ByID("http1"); !ok || cfg.HTTP.Method != httpDefaultMethod {
		t.Fatalf("expected default method on http1, got %#v", cfg)
	}
}

func TestLoadRegistryOptionalMissingFile(t *testing.T) {
	reg, err := LoadRegistryOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryOptional: %v", err)
	}
	if len(reg.Enabled()) != 0 {
		t.Fatalf("expected no publishers")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := map[string]PublisherConfig{
		"missing http":   {ID: "h1", Type: TypeHTTP},
		"sns no arn":     {ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "us-east-1"}},
		"pubsub partial": {ID: "p1", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "demo"}},
		"unknown type":   {ID: "k1", Type: "kafka"},
	}
	for name, cfg := range cases {
		if err := validatePublisherConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
