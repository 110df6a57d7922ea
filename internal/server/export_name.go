package server

import (
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/config"
)

const (
	minCount = config.MinArticleCount
	maxCount = config.MaxArticleCount
)

// splitExportName splits "<id>.json" or "<id>.md".
func splitExportName(file string) (id, ext string, ok bool) {
	idx := strings.LastIndexByte(file, '.')
	if idx <= 0 {
		return "", "", false
	}
	id, ext = file[:idx], strings.ToLower(file[idx+1:])
	if ext != "json" && ext != "md" {
		return "", "", false
	}
	return id, ext, true
}
