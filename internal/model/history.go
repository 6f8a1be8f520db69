package model

// HistoryItem is one persisted summary of a past analysis. The JSON shape is
// shared with existing dashboard data, so field names must not change.
type HistoryItem struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Content            string             `json:"content"`
	ContentType        string             `json:"contentType"`
	Type               ContentKind        `json:"type"`
	Platform           string             `json:"platform,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	TrustScore         Number             `json:"trustScore"`
	Confidence         Number             `json:"confidence"`
	Timestamp          string             `json:"timestamp"`

	Reasoning         *Reasoning         `json:"reasoning,omitempty"`
	SourceCredibility *SourceCredibility `json:"sourceCredibility,omitempty"`
	CrossChecking     *CrossChecking     `json:"crossChecking,omitempty"`
	RiskAssessment    *RiskAssessment    `json:"riskAssessment,omitempty"`
}

// RiskLevel is the overall risk attached to a history entry
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskAssessment explains the risk level of a history entry
type RiskAssessment struct {
	OverallRisk RiskLevel `json:"overallRisk"`
	Details     string    `json:"details"`
}
