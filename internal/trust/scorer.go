// Package trust rates how reliable a source is from its URL and, optionally, its text.
package trust

import (
	"math"
	"strings"
)

const (
	baseScore     = 0.5
	maxScore      = 0.98
	maxBonus      = 0.15
	bonusPerMatch = 0.03
)

const (
	LevelVeryReliable       = "very reliable"
	LevelReliable           = "reliable"
	LevelModeratelyReliable = "moderately reliable"
	LevelNotVeryReliable    = "not very reliable"

	RecommendSource  = "recommended source"
	RecommendVerify  = "verify against other sources"
	RecommendAgainst = "source not recommended"
)

// domainWeights maps URL substrings to the score they grant. The highest matching weight wins.
var domainWeights = map[string]float64{
	"education.gouv.qc.ca": 0.98,
	".gouv.qc.ca":          0.95,
	".gc.ca":               0.95,
	"banq.qc.ca":           0.88,
	"alloprof.qc.ca":       0.85,
	"cegep":                0.75,
	".gouv.fr":             0.95,
	"education.gouv.fr":    0.98,
	"eduscol.education.fr": 0.95,
	".edu":                 0.90,
	"ac-":                  0.85,
	"rectorat":             0.85,
	"reseau-canope.fr":     0.90,
	"bnf.fr":               0.88,
	"cnrs.fr":              0.92,
	"universit":            0.75,
	"lycee":                0.70,
	".org":                 0.60,
	".com":                 0.40,
	"wikipedia":            0.65,
}

var qualityIndicators = []string{
	"bibliographie",
	"références",
	"source",
	"étude",
	"recherche",
	"académique",
	"officiel",
	"ministère",
	"université",
	"peer-review",
}

// Assessment is the per-URL result returned by the sources endpoint.
type Assessment struct {
	URL            string  `json:"url"`
	TrustScore     float64 `json:"trust_score"`
	TrustLevel     string  `json:"trust_level"`
	Recommendation string  `json:"recommendation"`
}

// Score returns a value in [0.5, 0.98] rounded to two decimals.
func Score(url, content string) float64 {
	score := baseScore

	lowerURL := strings.ToLower(url)
	for domain, weight := range domainWeights {
		if strings.Contains(lowerURL, domain) {
			score = math.Max(score, weight)
		}
	}

	if content != "" {
		lowerContent := strings.ToLower(content)
		count := 0
		for _, indicator := range qualityIndicators {
			if strings.Contains(lowerContent, indicator) {
				count++
			}
		}
		bonus := math.Min(maxBonus, float64(count)*bonusPerMatch)
		score = math.Min(maxScore, score+bonus)
	}

	return round2(score)
}

func Level(score float64) string {
	switch {
	case score >= 0.8:
		return LevelVeryReliable
	case score >= 0.6:
		return LevelReliable
	case score >= 0.4:
		return LevelModeratelyReliable
	default:
		return LevelNotVeryReliable
	}
}

func Recommend(score float64) string {
	switch {
	case score >= 0.7:
		return RecommendSource
	case score >= 0.5:
		return RecommendVerify
	default:
		return RecommendAgainst
	}
}

func Assess(url, content string) Assessment {
	score := Score(url, content)
	return Assessment{
		URL:            url,
		TrustScore:     score,
		TrustLevel:     Level(score),
		Recommendation: Recommend(score),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
