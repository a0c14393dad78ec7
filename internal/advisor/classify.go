package advisor

import (
	"regexp"
	"strings"
)

// documentKind is the collecting-phase classification of a piece of text.
type documentKind int

const (
	kindChat documentKind = iota
	kindCV
	kindJob
)

var cvSignals = []string{
	"work experience",
	"professional experience",
	"employment history",
	"education",
	"skills",
	"certifications",
	"professional summary",
	"curriculum vitae",
	"references available",
	"linkedin.com/in/",
}

var jobSignals = []string{
	"responsibilities",
	"requirements",
	"qualifications",
	"we are looking",
	"we're looking",
	"about the role",
	"about this role",
	"what you'll do",
	"what you will do",
	"job description",
	"nice to have",
	"must have",
	"preferred",
	"benefits",
	"how to apply",
}

// classifyText decides whether a message is a CV, a job posting, or ordinary
// conversation. Two signal hits are required before a message is treated as a
// document, so short chat messages that happen to mention "skills" stay chat.
func classifyText(text string) documentKind {
	lower := strings.ToLower(text)

	var cvScore, jobScore int
	for _, signal := range cvSignals {
		if strings.Contains(lower, signal) {
			cvScore++
		}
	}
	for _, signal := range jobSignals {
		if strings.Contains(lower, signal) {
			jobScore++
		}
	}

	switch {
	case cvScore >= 2 && cvScore > jobScore:
		return kindCV
	case jobScore >= 2 && jobScore >= cvScore:
		return kindJob
	default:
		return kindChat
	}
}

var postingSeparator = regexp.MustCompile(`(?m)^\s*-{3,}\s*$`)

// splitPostings splits one pasted blob into individual job postings on
// horizontal-rule separator lines, so several postings can arrive in one turn.
func splitPostings(text string) []string {
	parts := postingSeparator.Split(text, -1)
	postings := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			postings = append(postings, trimmed)
		}
	}
	return postings
}
