package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/digest"
	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/pipeline"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
)

type sourceOption struct {
	Value    string
	Label    string
	Selected bool
}

type formView struct {
	Topic   string
	Count   int
	Min     int
	Max     int
	Sources []sourceOption
	Error   string
	Status  statusView
}

type statusView struct {
	Status
	NewsAPI bool
}

type digestView struct {
	Digest    domain.Digest
	Takeaways []string
	Downloads bool
	Form      formView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", s.form("", s.status.DefaultCount, pipeline.SourceRSS, ""))
}

func (s *Server) handleDigestForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "index.html", s.form("", s.status.DefaultCount, pipeline.SourceRSS, "Could not read the form."))
		return
	}

	topic := r.PostForm.Get("topic")
	kind, kindErr := pipeline.ParseSourceKind(r.PostForm.Get("source"))
	count, countErr := parseCount(r.PostForm.Get("count"), s.status.DefaultCount)
	if err := errors.Join(kindErr, countErr); err != nil {
		s.render(w, r, http.StatusBadRequest, "index.html", s.form(topic, s.status.DefaultCount, pipeline.SourceRSS, userMessage(err)))
		return
	}

	d, err := s.runner.Run(r.Context(), pipeline.Request{Topic: topic, Source: kind, Count: count})
	if err != nil {
		s.render(w, r, statusFor(err), "index.html", s.form(topic, count, kind, userMessage(err)))
		return
	}

	s.render(w, r, http.StatusOK, "digest.html", digestView{
		Digest:    d,
		Takeaways: takeaways(d.Results),
		Downloads: s.exports != nil,
		Form:      s.form(d.Topic, count, kind, ""),
	})
}

type apiRequest struct {
	Topic  string `json:"topic"`
	Source string `json:"source"`
	Count  *int   `json:"count"`
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type apiResponse struct {
	Digest    domain.Digest     `json:"digest"`
	Markdown  string            `json:"markdown"`
	Downloads map[string]string `json:"downloads,omitempty"`
}

func (s *Server) handleDigestAPI(w http.ResponseWriter, r *http.Request) {
	var req apiRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "request body must be a JSON object with topic, source and count"})
		return
	}

	kind, err := pipeline.ParseSourceKind(req.Source)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	count := s.status.DefaultCount
	if req.Count != nil {
		count = *req.Count
	}

	d, err := s.runner.Run(r.Context(), pipeline.Request{Topic: req.Topic, Source: kind, Count: count})
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}

	resp := apiResponse{Digest: d, Markdown: digest.ExportMarkdown(d)}
	if s.exports != nil {
		resp.Downloads = map[string]string{
			"json":     "/digests/" + d.ID + ".json",
			"markdown": "/digests/" + d.ID + ".md",
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	body := apiError{Error: userMessage(err)}
	var invalid *domain.InvalidInputError
	if errors.As(err, &invalid) {
		body.Field = invalid.Field
	}
	if statusFor(err) == http.StatusInternalServerError {
		s.log.ErrorObj("digest api request failed", "http_error", map[string]any{
			"request_id": RequestIDFrom(r.Context()),
			"error":      err.Error(),
		})
	}
	writeJSON(w, statusFor(err), body)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		http.NotFound(w, r)
		return
	}

	file := r.PathValue("file")
	id, ext, ok := splitExportName(file)
	if !ok {
		http.NotFound(w, r)
		return
	}

	rec, err := s.exports.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "export not found or expired", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.ErrorObj("export lookup failed", "http_error", map[string]any{
			"request_id": RequestIDFrom(r.Context()),
			"digest_id":  id,
			"error":      err.Error(),
		})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name := digest.Filename(rec.Topic, rec.GeneratedAt, ext)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	switch ext {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(rec.JSON)
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(rec.Markdown))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) form(topic string, count int, selected pipeline.SourceKind, msg string) formView {
	view := formView{
		Topic:  topic,
		Count:  count,
		Min:    minCount,
		Max:    maxCount,
		Error:  msg,
		Status: statusView{Status: s.status, NewsAPI: s.runner.Available(pipeline.SourceAPI)},
	}
	for _, kind := range []pipeline.SourceKind{pipeline.SourceRSS, pipeline.SourceAPI} {
		if !s.runner.Available(kind) {
			continue
		}
		view.Sources = append(view.Sources, sourceOption{
			Value:    string(kind),
			Label:    kind.Label(),
			Selected: kind == selected,
		})
	}
	return view
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.ErrorObj("template render failed", "http_error", map[string]any{
			"request_id": RequestIDFrom(r.Context()),
			"template":   name,
			"error":      err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func parseCount(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewInvalidInput("count", "must be a whole number")
	}
	return n, nil
}

// statusFor maps pipeline errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case domain.IsInvalidInput(err):
		return http.StatusBadRequest
	case domain.IsProviderError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userMessage hides internal error detail from unclassified failures.
func userMessage(err error) string {
	switch {
	case domain.IsInvalidInput(err):
		return err.Error()
	case domain.IsProviderError(err):
		var pe *domain.ProviderError
		errors.As(err, &pe)
		if errors.Is(err, pipeline.ErrNoArticles) {
			return "No articles were found for that topic. Try a broader search."
		}
		return "The " + pe.Provider + " service could not complete the request. Please try again."
	default:
		return "Something went wrong while building the digest."
	}
}

func takeaways(results []domain.ArticleResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if insight := strings.TrimSpace(r.CoreInsight); insight != "" {
			out = append(out, insight)
		}
	}
	return out
}
