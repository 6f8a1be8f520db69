package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ContentKind is the coarse origin of the analyzed content
type ContentKind string

const (
	KindNews        ContentKind = "news"
	KindYouTube     ContentKind = "youtube"
	KindSocialMedia ContentKind = "social-media"
	KindUpload      ContentKind = "upload"
)

// VerificationStatus is the verdict reported by the analysis engine
type VerificationStatus string

const (
	StatusVerified   VerificationStatus = "verified"
	StatusSuspicious VerificationStatus = "suspicious"
)

// AnalysisResult is the verdict handed over by the external analysis engine.
// Every field is optional; absent numbers are nil, absent strings are empty.
type AnalysisResult struct {
	Title              string             `json:"title,omitempty"`
	Content            string             `json:"content,omitempty"`     // URL or raw text
	ContentType        string             `json:"contentType,omitempty"` // e.g. "image", "video content", "url"
	Type               ContentKind        `json:"type,omitempty"`
	Platform           string             `json:"platform,omitempty"` // e.g. "Instagram", "YouTube", "TikTok"
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty"`
	TrustScore         *Number            `json:"trustScore,omitempty"` // 0-100
	Confidence         *Number            `json:"confidence,omitempty"` // 0-100
	Reasoning          *Reasoning         `json:"reasoning,omitempty"`
	SourceCredibility  *SourceCredibility `json:"sourceCredibility,omitempty"`
	CrossChecking      *CrossChecking     `json:"crossChecking,omitempty"`
	SocialMetrics      *SocialMetrics     `json:"socialMetrics,omitempty"`
	Source             string             `json:"source,omitempty"`
	Timestamp          string             `json:"timestamp,omitempty"` // ISO-8601
}

// Reasoning is the engine's own explanation of its verdict
type Reasoning struct {
	Primary string   `json:"primary"`
	Factors []string `json:"factors,omitempty"`
}

// SourceCredibility describes the publisher of the content
type SourceCredibility struct {
	Rating           *Number `json:"rating,omitempty"` // 0-10
	FactualReporting string  `json:"factualReporting,omitempty"`
	Bias             string  `json:"bias,omitempty"`
}

// CrossChecking summarizes how the content was compared against other sources
type CrossChecking struct {
	SourcesChecked       *Number `json:"sourcesChecked,omitempty"`
	MatchesFound         *Number `json:"matchesFound,omitempty"`
	Contradictions       *Number `json:"contradictions,omitempty"`
	FactCheckerConsensus string  `json:"factCheckerConsensus,omitempty"`
}

// SocialMetrics are engagement figures for social content. Engines report
// them either as numbers or as labels, so they are kept as text.
type SocialMetrics struct {
	EngagementRate Text `json:"engagementRate,omitempty"`
	ShareVelocity  Text `json:"shareVelocity,omitempty"`
	ViralityScore  Text `json:"viralityScore,omitempty"`
}

// Number is a float that decodes from a JSON number or a numeric string
type Number float64

// NewNumber returns a pointer to n, for building results in code
func NewNumber(n float64) *Number {
	v := Number(n)
	return &v
}

// Float returns the value of a possibly absent number
func (n *Number) Float() (float64, bool) {
	if n == nil {
		return 0, false
	}
	return float64(*n), true
}

// UnmarshalJSON accepts 42, 42.5 and "42". NaN and infinities are rejected.
func (n *Number) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("number: %q is not numeric", s)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("number: %q is not finite", s)
		}
		*n = Number(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Text is a string that also decodes from a JSON number
type Text string

// UnmarshalJSON accepts "rapid" and 12.5
func (t *Text) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("text: %s is neither a string nor a number", raw)
	}
	*t = Text(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}
