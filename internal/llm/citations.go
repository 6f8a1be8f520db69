package llm

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]>"]+`)

// extractURLs returns the distinct http(s) URLs in text, in order of appearance
func extractURLs(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?'")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}

// checkCitations returns the cited URLs, or an error when strict mode is on
// and the text cites a URL outside allowed
func checkCitations(text string, allowed []string, strict bool) ([]string, error) {
	cited := extractURLs(text)
	if !strict {
		return cited, nil
	}
	for _, u := range cited {
		if !slices.Contains(allowed, u) {
			return nil, fmt.Errorf("CITATION LEAK: LLM cited disallowed URL: %s", u)
		}
	}
	return cited, nil
}

// resolve fills request options from the provider config
func resolve(req SummarizeRequest, config Config, defaultModel string) (prompt, model string, maxTokens int) {
	prompt = req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Display, req.EvidenceURLs)
	}

	model = req.Model
	if model == "" {
		model = config.Model
	}
	if model == "" {
		model = defaultModel
	}

	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 600
	}
	return prompt, model, maxTokens
}
