package factcheck

import (
	"strings"

	"factcheck_gateway/internal/model"
)

var (
	falseKeywords      = []string{"false", "incorrect", "misleading", "pants on fire"}
	misleadingKeywords = []string{"misleading", "mostly false", "half true"}
	trueKeywords       = []string{"true", "correct", "accurate"}
)

// OverallRating сводит текстовые оценки рецензентов к одному вердикту.
// Порядок проверок фиксирован: false, misleading, true. Оценка со словом
// "misleading" попадает уже в первую группу и даёт VerdictFalse.
func OverallRating(ratings []string) model.Verdict {
	if len(ratings) == 0 {
		return model.VerdictUnverified
	}

	lower := make([]string, len(ratings))
	for i, r := range ratings {
		lower[i] = strings.ToLower(r)
	}

	switch {
	case anyContains(lower, falseKeywords):
		return model.VerdictFalse
	case anyContains(lower, misleadingKeywords):
		return model.VerdictMisleading
	case anyContains(lower, trueKeywords):
		return model.VerdictTrue
	}

	return model.VerdictUnverified
}

func anyContains(ratings, keywords []string) bool {
	for _, r := range ratings {
		for _, k := range keywords {
			if strings.Contains(r, k) {
				return true
			}
		}
	}
	return false
}

// SourceURL returns the first review URL of the first claim.
func (r *SearchResult) SourceURL() string {
	if len(r.Claims) == 0 || len(r.Claims[0].Reviews) == 0 {
		return ""
	}
	return r.Claims[0].Reviews[0].URL
}

// EvidenceLinks returns every non-empty review URL in order, duplicates kept.
func (r *SearchResult) EvidenceLinks() []string {
	links := make([]string, 0)
	for _, claim := range r.Claims {
		for _, review := range claim.Reviews {
			if review.URL != "" {
				links = append(links, review.URL)
			}
		}
	}
	return links
}

// Explanation builds the human-readable summary shown to users.
func (r *SearchResult) Explanation() string {
	if !r.Found {
		return "No fact-check information found for this claim."
	}

	if len(r.Claims) > 0 && len(r.Claims[0].Reviews) > 0 {
		publisher := r.Claims[0].Reviews[0].Publisher
		if publisher == "" {
			publisher = "fact-checkers"
		}
		return "According to " + publisher + ", this claim is " + string(r.OverallRating) + "."
	}

	return "Fact-check status: " + string(r.OverallRating)
}

// Verdict is the overall rating when anything was found, unverified otherwise.
func (r *SearchResult) Verdict() model.Verdict {
	if !r.Found || r.OverallRating == "" {
		return model.VerdictUnverified
	}
	return r.OverallRating
}
