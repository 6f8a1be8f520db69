package preview

import (
	"net/url"
	"strings"

	"github.com/ppiankov/deepcheck/internal/model"
)

// AuthorityClassifier places the host of a linked page into an authority tier
type AuthorityClassifier struct {
	domainMap map[string]model.AuthorityTier
	primary   []string
	secondary []string
}

// NewAuthorityClassifier builds a classifier from the preview domain lists.
// Explicit domain_map entries win over suffix matches.
func NewAuthorityClassifier(cfg model.PreviewConfig) *AuthorityClassifier {
	a := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(cfg.DomainMap)),
	}
	for host, tier := range cfg.DomainMap {
		a.domainMap[strings.ToLower(host)] = parseTier(tier)
	}
	a.primary = normalizeDomains(cfg.PrimaryDomains)
	a.secondary = normalizeDomains(cfg.SecondaryDomains)
	return a
}

// Classify returns the tier of rawURL's host. Unparseable URLs are tertiary.
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return model.TierTertiary
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesAny(host, a.primary) {
		return model.TierPrimary
	}
	if matchesAny(host, a.secondary) {
		return model.TierSecondary
	}
	return model.TierTertiary
}

// matchesAny reports whether host equals a domain or is a subdomain of it.
// A bare suffix such as "gov" matches any host ending in ".gov".
func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func parseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
