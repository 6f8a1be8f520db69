package history

import (
	"fmt"
	"time"

	"github.com/ppiankov/deepcheck/internal/model"
)

// EntryFromResult builds the history entry recorded when an analysis
// completes. Scores come from the display model so the log shows what the
// user saw.
func EntryFromResult(r *model.AnalysisResult, d model.Display) model.HistoryItem {
	if r == nil {
		r = &model.AnalysisResult{}
	}

	status := r.VerificationStatus
	if status == "" {
		status = model.StatusSuspicious
		if d.Verification.Verified {
			status = model.StatusVerified
		}
	}

	item := model.HistoryItem{
		Title:              d.Title,
		Content:            r.Content,
		ContentType:        r.ContentType,
		Type:               r.Type,
		Platform:           r.Platform,
		VerificationStatus: status,
		TrustScore:         model.Number(d.TrustScore),
		Confidence:         model.Number(d.Confidence),
		Reasoning:          r.Reasoning,
		SourceCredibility:  r.SourceCredibility,
		CrossChecking:      r.CrossChecking,
		RiskAssessment: &model.RiskAssessment{
			OverallRisk: d.Verification.RiskLevel,
			Details:     fmt.Sprintf("%s (%s)", d.Band, d.Band.Range()),
		},
	}
	if item.ContentType == "" {
		item.ContentType = d.Kind
	}
	if item.Type == "" {
		item.Type = model.KindUpload
	}

	return item
}

// TestEntry is the sample entry behind the "add test item" action
func TestEntry(now time.Time) model.HistoryItem {
	return model.HistoryItem{
		Title:              "Test Item - " + now.Format("15:04:05"),
		Content:            "https://example.com/test",
		ContentType:        "url",
		Type:               model.KindNews,
		VerificationStatus: model.StatusVerified,
		TrustScore:         85,
		Confidence:         90,
	}
}
