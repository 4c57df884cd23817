package service

import (
	"strings"

	"github.com/cloo-solutions/knowbase/internal/domain"
)

// Classifier assigns a category to a bootstrap document from its path and
// body. Classification is best-effort and unvalidated.
type Classifier interface {
	Classify(path, body string) string
}

// categoryKeywords drives the keyword heuristic. Path segments are checked
// before the body so directory layout wins over content.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{domain.CategoryTroubleshooting, []string{"troubleshoot", "problem", "issue", "error", "故障", "问题"}},
	{domain.CategoryConfiguration, []string{"config", "setup", "install", "部署", "配置", "安装"}},
	{domain.CategoryBestPractice, []string{"best", "practice", "guide", "最佳", "实践", "指南"}},
}

// categoryPriorities maps built-in categories to their retrieval priority.
var categoryPriorities = map[string]int{
	domain.CategoryTroubleshooting: 3,
	domain.CategoryConfiguration:   2,
	domain.CategoryBestPractice:    4,
}

// KeywordClassifier is the default keyword-heuristic classifier.
// Troubleshooting is the fallback when nothing matches.
type KeywordClassifier struct{}

// Classify picks the first category whose keywords appear in the path,
// then in the body.
func (KeywordClassifier) Classify(path, body string) string {
	lowerPath := strings.ToLower(path)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lowerPath, kw) {
				return entry.category
			}
		}
	}

	lowerBody := strings.ToLower(body)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lowerBody, kw) {
				return entry.category
			}
		}
	}
	return domain.CategoryTroubleshooting
}

// PriorityFor returns the retrieval priority of a built-in category,
// defaulting to the troubleshooting priority for unknown categories.
func PriorityFor(category string) int {
	if p, ok := categoryPriorities[category]; ok {
		return p
	}
	return categoryPriorities[domain.CategoryTroubleshooting]
}
