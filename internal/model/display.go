package model

// Display is the fully populated presentation model derived from an
// AnalysisResult. Every field is set; nothing downstream needs to check for
// absent input fields.
type Display struct {
	Title       string   `json:"title"`
	Kind        string   `json:"kind"`        // type, contentType or "Content"
	SourceLabel string   `json:"sourceLabel"` // source, content or "Unknown"
	Timestamp   string   `json:"timestamp,omitempty"`
	Category    Category `json:"category"`
	Icon        string   `json:"icon"`

	Verification Verification `json:"verification"`

	TrustScore          float64 `json:"trustScore"`
	TrustScoreEstimated bool    `json:"trustScoreEstimated"` // true when the engine sent no score
	Confidence          float64 `json:"confidence"`
	ConfidenceEstimated bool    `json:"confidenceEstimated"`
	Band                Band    `json:"band"`
	SourceType          string  `json:"sourceType"` // factualReporting or "Unknown"

	Charts    Charts    `json:"charts"`
	Narrative Narrative `json:"narrative"`

	SocialMetrics *SocialMetrics `json:"socialMetrics,omitempty"`
	CrossChecking *CrossChecking `json:"crossChecking,omitempty"`
	OriginalURL   string         `json:"originalUrl,omitempty"`
	Preview       *LinkPreview   `json:"preview,omitempty"` // Fetched metadata of OriginalURL

	LLM *LLMSummary `json:"llm,omitempty"` // Optional, never affects classification
}

// Category is the content-type icon category
type Category string

const (
	CategoryNews          Category = "news"
	CategoryVideoPlatform Category = "video-platform"
	CategoryPhoto         Category = "photo"
	CategoryVideo         Category = "video"
	CategoryImage         Category = "image"
	CategoryAudio         Category = "audio"
	CategoryText          Category = "text"
	CategoryLink          Category = "link"
)

// Icon returns the icon name used by the dashboard for the category
func (c Category) Icon() string {
	switch c {
	case CategoryNews:
		return "newspaper"
	case CategoryVideoPlatform:
		return "youtube"
	case CategoryPhoto:
		return "instagram"
	case CategoryVideo:
		return "file-video"
	case CategoryAudio:
		return "file-audio"
	case CategoryText:
		return "file-text"
	case CategoryLink:
		return "link"
	default:
		return "file-image"
	}
}

// Verification is the verified/suspicious classification and its styling
type Verification struct {
	Verified  bool      `json:"verified"`
	Status    string    `json:"status"` // verificationStatus or "Analyzed"
	Badge     string    `json:"badge"`
	Color     string    `json:"color"` // "success" or "destructive"
	Icon      string    `json:"icon"`  // follows the reported status, not the score
	RiskLevel RiskLevel `json:"riskLevel"`
}

// Band is the scoring-band label for a trust score
type Band string

const (
	BandHighlyReliable   Band = "Highly Reliable"
	BandMostlyReliable   Band = "Mostly Reliable"
	BandMixedSignals     Band = "Mixed Signals"
	BandLikelyUnreliable Band = "Likely Unreliable"
)

// Range returns the score range covered by the band
func (b Band) Range() string {
	switch b {
	case BandHighlyReliable:
		return "80-100%"
	case BandMostlyReliable:
		return "60-79%"
	case BandMixedSignals:
		return "40-59%"
	default:
		return "0-39%"
	}
}

// Charts holds the chart inputs. Rendering is left to the consumer.
type Charts struct {
	Breakdown []Slice `json:"breakdown"`
	Metrics   []Bar   `json:"metrics"`
}

// Slice is one slice of the verification breakdown pie
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Fill  string `json:"fill"`
}

// Bar is one bar of the analysis metrics chart
type Bar struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Estimated bool    `json:"estimated"`
}

// Verdict selects which narrative bullet sets apply
type Verdict string

const (
	VerdictPositive Verdict = "positive"
	VerdictWarning  Verdict = "warning"
)

// Narrative is the textual explanation shown under the charts
type Narrative struct {
	Verdict    Verdict   `json:"verdict"`
	Heading    string    `json:"heading"`
	Intro      string    `json:"intro"`
	Primary    string    `json:"primary,omitempty"` // reasoning.primary
	Bullets    []string  `json:"bullets"`
	CrossCheck []Section `json:"crossCheck"`
	Advice     []string  `json:"advice"`
}

// Section is a titled list of narrative bullets
type Section struct {
	Heading string   `json:"heading"`
	Bullets []string `json:"bullets"`
}

// LinkPreview is page metadata fetched for URL content
type LinkPreview struct {
	URL         string        `json:"url"`
	FinalURL    string        `json:"finalUrl,omitempty"`
	Title       string        `json:"title,omitempty"`
	SiteName    string        `json:"siteName,omitempty"`
	Description string        `json:"description,omitempty"`
	StatusCode  int           `json:"statusCode"`
	Authority   AuthorityTier `json:"authority,omitempty"` // Tier of the final host
}

// AuthorityTier ranks the host a link resolves to
type AuthorityTier string

const (
	TierPrimary   AuthorityTier = "primary"   // government, academic, intergovernmental
	TierSecondary AuthorityTier = "secondary" // established newsrooms and journals
	TierTertiary  AuthorityTier = "tertiary"  // everything else
)

// LLMSummary contains an optional LLM-generated plain-language explanation
// CRITICAL: This never affects classification, scores or bands
type LLMSummary struct {
	Enabled        bool     `json:"enabled"`
	Provider       string   `json:"provider,omitempty"` // openai, anthropic, ollama
	Model          string   `json:"model,omitempty"`
	StrictEvidence bool     `json:"strict_evidence"` // Whether citation enforcement was enabled
	SummaryMD      string   `json:"summary_md,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}
