package usecase

import (
	"strings"

	"ChainPulse/internal/domain/models"
)

// Matching is a case-sensitive substring test, so "buy" also matches
// "buyback" and "Bullish" does not match "bullish". Heuristic signals are
// written in lower case to be counted.
var (
	positiveTerms = []string{"buy", "bullish", "growth"}
	negativeTerms = []string{"sell", "bearish", "decline"}
)

// SignalTally counts signals by polarity. A signal matching both lists is
// positive.
type SignalTally struct {
	Positive int
	Negative int
	Neutral  int
}

func TallySignals(signals []string) SignalTally {
	var t SignalTally
	for _, s := range signals {
		switch {
		case containsAny(s, positiveTerms):
			t.Positive++
		case containsAny(s, negativeTerms):
			t.Negative++
		default:
			t.Neutral++
		}
	}
	return t
}

// ClassifyRecommendation maps signal polarity counts to a recommendation.
// Neutral signals do not influence the outcome.
func ClassifyRecommendation(signals []string) models.Recommendation {
	t := TallySignals(signals)
	p, n := t.Positive, t.Negative
	switch {
	case p > 2*n:
		return models.StrongBuy
	case p > n:
		return models.Buy
	case n > 2*p:
		return models.StrongSell
	case n > p:
		return models.Sell
	default:
		return models.Hold
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
