// Package preview fetches page metadata for analyzed URLs, so results that
// arrive without a title can still be labeled.
package preview

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/net/html"

	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/worker"
)

var (
	// ErrNotHTTP is returned for content that is not an http(s) URL
	ErrNotHTTP = errors.New("preview: not an http(s) URL")
	// ErrDisallowed is returned when robots.txt forbids the fetch
	ErrDisallowed = errors.New("preview: disallowed by robots.txt")
	// ErrNotHTML is returned for responses that are not HTML documents
	ErrNotHTML = errors.New("preview: response is not HTML")
)

const (
	cacheTTL     = 10 * time.Minute
	maxRedirects = 3
)

// Fetcher fetches link previews. Successful previews are cached per URL.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker // nil when robots.txt is ignored
	limiter    *worker.Limiter
	cache      *gocache.Cache
	authority  *AuthorityClassifier
}

// NewFetcher creates a fetcher. limiter may be nil.
func NewFetcher(httpCfg model.HTTPConfig, previewCfg model.PreviewConfig, limiter *worker.Limiter) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxyFunc(httpCfg)
	if httpCfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed hosts
	}

	client := &http.Client{
		Timeout:   httpCfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	maxBytes := httpCfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  httpCfg.UserAgent,
		maxBytes:   maxBytes,
		limiter:    limiter,
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
		authority:  NewAuthorityClassifier(previewCfg),
	}
	if previewCfg.RespectRobots {
		f.robots = NewRobotsChecker(client, httpCfg.UserAgent)
	}
	return f
}

// Fetch returns the preview of rawURL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.LinkPreview, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, ErrNotHTTP
	}

	if cached, ok := f.cache.Get(rawURL); ok {
		p := *cached.(*model.LinkPreview)
		return &p, nil
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrDisallowed
		}
		crawlDelay = delay
	}

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, rawURL, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	p, err := f.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	f.cache.Set(rawURL, p, gocache.DefaultExpiration)
	out := *p
	return &out, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*model.LinkPreview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "text/html" && mediaType != "application/xhtml+xml") {
			return nil, ErrNotHTML
		}
	}

	meta, err := parseMetadata(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	meta.URL = rawURL
	meta.FinalURL = resp.Request.URL.String()
	meta.StatusCode = resp.StatusCode
	meta.Authority = f.authority.Classify(meta.FinalURL)
	return meta, nil
}

// parseMetadata reads the document title, Open Graph title and site name,
// and description. og:title wins over <title>.
func parseMetadata(r io.Reader) (*model.LinkPreview, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var (
		p        model.LinkPreview
		docTitle string
		ogTitle  string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if docTitle == "" {
					docTitle = collapse(textContent(n))
				}
			case "meta":
				key := strings.ToLower(attr(n, "property"))
				if key == "" {
					key = strings.ToLower(attr(n, "name"))
				}
				content := collapse(attr(n, "content"))
				switch key {
				case "og:title":
					ogTitle = content
				case "og:site_name":
					p.SiteName = content
				case "description", "og:description":
					if p.Description == "" {
						p.Description = content
					}
				}
			case "body":
				// Metadata lives in the head
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	p.Title = ogTitle
	if p.Title == "" {
		p.Title = docTitle
	}
	return &p, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
