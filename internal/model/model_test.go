package model

import (
	"encoding/json"
	"testing"
)

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{`42`, 42, false},
		{`42.5`, 42.5, false},
		{`"87"`, 87, false},
		{`" 7.5 "`, 7.5, false},
		{`0`, 0, false},
		{`"high"`, 0, true},
		{`true`, 0, true},
		{`"NaN"`, 0, true},
		{`"Inf"`, 0, true},
		{`"-Infinity"`, 0, true},
	}

	for _, tt := range tests {
		var n Number
		err := json.Unmarshal([]byte(tt.input), &n)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got %v", tt.input, n)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.input, err)
			continue
		}
		if float64(n) != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.input, tt.want, float64(n))
		}
	}
}

func TestAnalysisResult_AbsentAndZeroScores(t *testing.T) {
	var r AnalysisResult
	if err := json.Unmarshal([]byte(`{"trustScore":0,"confidence":null}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v, ok := r.TrustScore.Float(); !ok || v != 0 {
		t.Errorf("expected a given trust score of 0, got %v (present=%v)", v, ok)
	}
	if _, ok := r.Confidence.Float(); ok {
		t.Error("expected null confidence to be absent")
	}
	if r.SourceCredibility != nil {
		t.Error("expected missing sourceCredibility to stay nil")
	}
}

func TestAnalysisResult_NonFiniteScoreIsAnError(t *testing.T) {
	var r AnalysisResult
	if err := json.Unmarshal([]byte(`{"title":"x","trustScore":"NaN"}`), &r); err == nil {
		t.Error("expected NaN trust score to fail decoding")
	}
}

func TestHistoryItem_LenientScores(t *testing.T) {
	var items []HistoryItem
	raw := `[{"id":"1","title":"good","trustScore":70},{"id":"2","title":"legacy","trustScore":"85","confidence":null}]`
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].TrustScore != 85 {
		t.Errorf("expected legacy trust score 85, got %v", items[1].TrustScore)
	}
	if items[1].Confidence != 0 {
		t.Errorf("expected null confidence to be 0, got %v", items[1].Confidence)
	}

	out, err := json.Marshal(items[1])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["trustScore"] != float64(85) {
		t.Errorf("expected trustScore to be written as a number, got %#v", back["trustScore"])
	}
}

func TestText_UnmarshalJSON(t *testing.T) {
	var m SocialMetrics
	err := json.Unmarshal([]byte(`{"engagementRate":4.25,"shareVelocity":"rapid","viralityScore":null}`), &m)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.EngagementRate != "4.25" {
		t.Errorf("expected engagementRate 4.25, got %q", m.EngagementRate)
	}
	if m.ShareVelocity != "rapid" {
		t.Errorf("expected shareVelocity rapid, got %q", m.ShareVelocity)
	}
	if m.ViralityScore != "" {
		t.Errorf("expected empty viralityScore, got %q", m.ViralityScore)
	}

	var bad Text
	if err := json.Unmarshal([]byte(`[1]`), &bad); err == nil {
		t.Error("expected error for array input")
	}
}

func TestBandRange(t *testing.T) {
	tests := map[Band]string{
		BandHighlyReliable:   "80-100%",
		BandMostlyReliable:   "60-79%",
		BandMixedSignals:     "40-59%",
		BandLikelyUnreliable: "0-39%",
	}
	for band, want := range tests {
		if got := band.Range(); got != want {
			t.Errorf("%s: expected %s, got %s", band, want, got)
		}
	}
}

func TestCategoryIcon(t *testing.T) {
	if got := CategoryNews.Icon(); got != "newspaper" {
		t.Errorf("expected newspaper, got %s", got)
	}
	if got := CategoryImage.Icon(); got != "file-image" {
		t.Errorf("expected file-image, got %s", got)
	}
	if got := Category("unknown").Icon(); got != "file-image" {
		t.Errorf("expected file-image fallback, got %s", got)
	}
}
