// Package tokens estimates the token footprint of prompt text.
//
// The estimate is a range derived from two cheap heuristics (words and
// characters) rather than a real tokenizer. It is good enough to badge a
// prompt with a rough cost, not for billing.
package tokens

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Confidence describes how trustworthy an estimate is. Larger texts drift
// further from the heuristics, so confidence drops as the upper bound grows.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of the known confidence bands.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

const (
	wordsFactor = 0.75
	charsFactor = 0.25
	codeFactor  = 1.3

	highCeiling   = 1000
	mediumCeiling = 5000
)

// Estimate is a token range with a confidence band.
type Estimate struct {
	Min        int        `json:"min"`
	Max        int        `json:"max"`
	Confidence Confidence `json:"confidence"`
}

// EstimateText returns the token range for text. Code is denser than prose, so
// isCode scales both bounds up. Max never ends below Min.
func EstimateText(text string, isCode bool) Estimate {
	trimmed := strings.TrimSpace(text)
	words := len(strings.Fields(trimmed))
	chars := utf8.RuneCountInString(trimmed)

	lo := round(wordsFactor * float64(words))
	hi := round(charsFactor * float64(chars))
	if isCode {
		lo = round(float64(lo) * codeFactor)
		hi = round(float64(hi) * codeFactor)
	}
	if hi < lo {
		hi = lo
	}

	return Estimate{Min: lo, Max: hi, Confidence: confidenceFor(hi)}
}

// For estimates text, detecting code with LooksLikeCode.
func For(text string) Estimate {
	return EstimateText(text, LooksLikeCode(text))
}

func confidenceFor(upper int) Confidence {
	switch {
	case upper < highCeiling:
		return ConfidenceHigh
	case upper <= mediumCeiling:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// round rounds half up.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

var codePattern = regexp.MustCompile("[{};<>`]|=>|\\b(function|const|let|var|class|def|return|if|for|while)\\b")

// LooksLikeCode is a loose heuristic for source code. False positives only
// bias the estimate upwards.
func LooksLikeCode(text string) bool {
	return codePattern.MatchString(text)
}
