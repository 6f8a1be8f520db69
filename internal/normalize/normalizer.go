// Package normalize derives the display model from a raw analysis result.
//
// Derivation is total: any subset of absent fields degrades to a fixed
// fallback. The only non-deterministic inputs are the fabricated scores for
// results that carry none, which come from an injected Source.
package normalize

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/ppiankov/deepcheck/internal/model"
)

// Verification threshold: a score strictly above this counts as verified
const verifiedAbove = 60

// Source supplies the pseudo-random integers used for missing scores
type Source interface {
	// IntN returns a value in [0, n)
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Normalizer derives display models
type Normalizer struct {
	source Source
}

// New creates a normalizer. A nil source uses math/rand/v2.
func New(source Source) *Normalizer {
	if source == nil {
		source = globalSource{}
	}
	return &Normalizer{source: source}
}

// Normalize derives the display model. A nil result is treated as an empty
// one; callers that need the "no results" state must check before calling.
func (n *Normalizer) Normalize(r *model.AnalysisResult) model.Display {
	if r == nil {
		r = &model.AnalysisResult{}
	}

	trust, trustEstimated := n.trustScore(r)
	confidence, confidenceEstimated := n.confidence(r)
	verified := IsVerified(r.VerificationStatus, trust)
	category := Classify(r)

	d := model.Display{
		Title:               firstNonEmpty(r.Title, "Analysis Complete"),
		Kind:                firstNonEmpty(string(r.Type), r.ContentType, "Content"),
		SourceLabel:         firstNonEmpty(r.Source, r.Content, "Unknown"),
		Timestamp:           r.Timestamp,
		Category:            category,
		Icon:                category.Icon(),
		Verification:        verification(r.VerificationStatus, verified),
		TrustScore:          trust,
		TrustScoreEstimated: trustEstimated,
		Confidence:          confidence,
		ConfidenceEstimated: confidenceEstimated,
		Band:                BandFor(trust),
		SourceType:          "Unknown",
		Charts:              n.charts(r, verified, trust, trustEstimated, confidence, confidenceEstimated),
		Narrative:           narrative(r, verified, trust, trustEstimated),
		SocialMetrics:       r.SocialMetrics,
		CrossChecking:       r.CrossChecking,
	}

	if r.SourceCredibility != nil && r.SourceCredibility.FactualReporting != "" {
		d.SourceType = r.SourceCredibility.FactualReporting
	}
	if strings.HasPrefix(r.Content, "http") {
		d.OriginalURL = r.Content
	}

	return d
}

// IsVerified reports whether content counts as verified: either the engine
// said so, or the trust score is above 60.
func IsVerified(status model.VerificationStatus, trustScore float64) bool {
	return status == model.StatusVerified || trustScore > verifiedAbove
}

// BandFor returns the scoring band of a trust score
func BandFor(score float64) model.Band {
	switch {
	case score >= 80:
		return model.BandHighlyReliable
	case score >= 60:
		return model.BandMostlyReliable
	case score >= 40:
		return model.BandMixedSignals
	default:
		return model.BandLikelyUnreliable
	}
}

// trustScore returns the given score or an estimate in [30,70)
func (n *Normalizer) trustScore(r *model.AnalysisResult) (float64, bool) {
	if v, ok := r.TrustScore.Float(); ok {
		return v, false
	}
	return float64(30 + n.source.IntN(40)), true
}

// confidence returns the given confidence or an estimate in [75,95)
func (n *Normalizer) confidence(r *model.AnalysisResult) (float64, bool) {
	if v, ok := r.Confidence.Float(); ok {
		return v, false
	}
	return float64(75 + n.source.IntN(20)), true
}

// sourceRating returns rating*10 or an estimate in [70,100)
func (n *Normalizer) sourceRating(r *model.AnalysisResult) (float64, bool) {
	if r.SourceCredibility != nil {
		if v, ok := r.SourceCredibility.Rating.Float(); ok {
			return v * 10, false
		}
	}
	return float64(70 + n.source.IntN(30)), true
}

func (n *Normalizer) charts(r *model.AnalysisResult, verified bool, trust float64, trustEst bool, confidence float64, confidenceEst bool) model.Charts {
	verifiedShare, suspiciousShare := 30, 70
	if verified {
		verifiedShare, suspiciousShare = 70, 30
	}

	rating, ratingEst := n.sourceRating(r)

	return model.Charts{
		Breakdown: []model.Slice{
			{Name: "Verified", Value: verifiedShare, Fill: "#10b981"},
			{Name: "Suspicious", Value: suspiciousShare, Fill: "#ef4444"},
		},
		Metrics: []model.Bar{
			{Name: "Trust Score", Value: trust, Estimated: trustEst},
			{Name: "Confidence", Value: confidence, Estimated: confidenceEst},
			{Name: "Source Rating", Value: rating, Estimated: ratingEst},
		},
	}
}

func verification(status model.VerificationStatus, verified bool) model.Verification {
	v := model.Verification{
		Verified:  verified,
		Status:    firstNonEmpty(string(status), "Analyzed"),
		Badge:     "⚠️ Suspicious Content",
		Color:     "destructive",
		Icon:      "x-circle",
		RiskLevel: model.RiskHigh,
	}
	if verified {
		v.Badge = "✅ Verified Content"
		v.Color = "success"
		v.RiskLevel = model.RiskLow
	}
	// The status icon reflects what the engine reported, not the score
	if status == model.StatusVerified {
		v.Icon = "check-circle"
	}
	return v
}

// Classify resolves the content category. The cascade order is significant:
// type first, then platform, then the content type, then the default.
func Classify(r *model.AnalysisResult) model.Category {
	if r == nil {
		return model.CategoryImage
	}

	if r.Type != "" {
		switch strings.ToLower(string(r.Type)) {
		case "news":
			return model.CategoryNews
		case "youtube":
			return model.CategoryVideoPlatform
		case "social-media":
			if r.Platform == "Instagram" {
				return model.CategoryPhoto
			}
			return model.CategoryVideo
		}
	}

	if r.Platform != "" {
		switch strings.ToLower(r.Platform) {
		case "youtube":
			return model.CategoryVideoPlatform
		case "instagram":
			return model.CategoryPhoto
		case "tiktok":
			return model.CategoryVideo
		}
	}

	switch strings.ToLower(firstNonEmpty(r.ContentType, string(r.Type), "content")) {
	case "image":
		return model.CategoryImage
	case "video", "video content":
		return model.CategoryVideo
	case "audio":
		return model.CategoryAudio
	case "text", "text analysis":
		return model.CategoryText
	case "url", "news article":
		if r.Source != "" {
			return model.CategoryNews
		}
		return model.CategoryLink
	default:
		return model.CategoryImage
	}
}

func heading(trust float64, estimated bool) string {
	h := "Why We Gave This Score: " + formatNumber(math.Round(trust)) + "%"
	if estimated {
		h += " (estimated)"
	}
	return h
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
