package services

import (
	"strings"
	"unicode"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// SimilarityService detects repeated or near-repeated questions over a
// bounded window of a user's recent questions.
type SimilarityService interface {
	FindSimilar(pastQuestions []string, candidate string) *types.SimilarityMatch
}

type similarityService struct {
	log           *logger.Logger
	threshold     float64
	maxCandidates int
}

func NewSimilarityService(baseLog *logger.Logger) SimilarityService {
	return &similarityService{
		log:           baseLog.With("service", "SimilarityService"),
		threshold:     0.5,
		maxCandidates: 10,
	}
}

// FindSimilar expects pastQuestions newest first and only ever looks at the
// first maxCandidates of them; stale repeats are deliberately not flagged.
// A raw-trim identical question short-circuits to similarity 1.0. Otherwise
// the best token-overlap ratio at or above the threshold wins. The
// denominator is the larger token set, so a short question does not
// over-match a much longer one.
func (ss *similarityService) FindSimilar(pastQuestions []string, candidate string) *types.SimilarityMatch {
	if len(pastQuestions) > ss.maxCandidates {
		pastQuestions = pastQuestions[:ss.maxCandidates]
	}

	candTokens := tokenSet(normalizeQuestion(candidate))
	if len(candTokens) == 0 {
		return nil
	}

	var (
		bestRatio    float64
		bestQuestion string
		found        bool
	)
	for _, past := range pastQuestions {
		if strings.TrimSpace(past) == strings.TrimSpace(candidate) {
			return &types.SimilarityMatch{
				Question:   past,
				Similarity: 1.0,
				Note:       "Same question asked before.",
			}
		}

		pastTokens := tokenSet(normalizeQuestion(past))
		if len(pastTokens) == 0 {
			continue
		}

		shared := 0
		for tok := range candTokens {
			if _, ok := pastTokens[tok]; ok {
				shared++
			}
		}
		denom := len(candTokens)
		if len(pastTokens) > denom {
			denom = len(pastTokens)
		}
		ratio := float64(shared) / float64(denom)
		if ratio >= ss.threshold && ratio > bestRatio {
			bestRatio = ratio
			bestQuestion = past
			found = true
		}
	}

	if !found {
		return nil
	}
	return &types.SimilarityMatch{
		Question:   bestQuestion,
		Similarity: bestRatio,
		Note:       "Similar question asked before.",
	}
}

// normalizeQuestion lowercases, turns punctuation into spaces and collapses
// whitespace runs, so "Derivative of x^2?" and "derivative of x 2" compare
// token-for-token.
func normalizeQuestion(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenSet(normalized string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		tokens[tok] = struct{}{}
	}
	return tokens
}
