package provider

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/ports"
)

var yearExpr = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// WebReportProvider is the tier-3 fallback: it crawls a published report
// index page and extracts download links for the requested year.
type WebReportProvider struct {
	name    string
	tier    int
	baseURL string
	http    *http.Client
}

var _ ports.Provider = (*WebReportProvider)(nil)

// NewWebReportProvider wires an HTTP client for the index crawler.
func NewWebReportProvider(name string, tier int, baseURL string, client *http.Client) *WebReportProvider {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &WebReportProvider{name: name, tier: tier, baseURL: baseURL, http: client}
}

// Name identifies the provider inside the registry.
func (p *WebReportProvider) Name() string { return p.name }

// Tier reports the trust tier this provider was configured with.
func (p *WebReportProvider) Tier() int { return p.tier }

// Search fetches the organization's report index page and collects every
// linked report that mentions the requested year.
func (p *WebReportProvider) Search(ctx context.Context, org string, year int) ([]domain.SourceCandidate, error) {
	indexURL := fmt.Sprintf("%s/reports/%s", p.baseURL, strings.ToLower(strings.TrimSpace(org)))

	doc, err := p.fetchIndex(ctx, indexURL)
	if err != nil {
		return nil, &domain.ProviderError{Provider: p.name, Err: err}
	}

	candidates, err := p.extractLinks(doc, year)
	if err != nil {
		return nil, &domain.ProviderError{Provider: p.name, Err: err}
	}
	return candidates, nil
}

// Download fetches one linked report body.
func (p *WebReportProvider) Download(ctx context.Context, candidate domain.SourceCandidate) (domain.ResolvedDocument, error) {
	return fetchDocument(ctx, p.http, p.name, "", candidate)
}

func (p *WebReportProvider) fetchIndex(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "MaturityScanner/1.0")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	return doc, nil
}

// extractLinks walks the index anchors in document order; seen URLs are
// deduplicated and earlier entries get lower priority values (lower =
// preferred), so the page's own ordering carries into download order.
func (p *WebReportProvider) extractLinks(doc *goquery.Document, year int) ([]domain.SourceCandidate, error) {
	var (
		candidates []domain.SourceCandidate
		parseErr   error
	)
	seen := map[string]struct{}{}
	priority := 0

	doc.Find("a[href]").EachWithBreak(func(i int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if href == "" {
			return true
		}
		if !mentionsYear(link.Text(), href, year) {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			href = strings.TrimSuffix(p.baseURL, "/") + href
		}
		if _, ok := seen[href]; ok {
			return true
		}
		seen[href] = struct{}{}

		candidate, err := domain.NewSourceCandidate(p.name, p.tier, priority, domain.AccessScrape, linkContentType(href), href)
		if err != nil {
			parseErr = err
			return false
		}
		candidates = append(candidates, candidate)
		if priority < domain.MaxPriority {
			priority++
		}
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return candidates, nil
}

func mentionsYear(text, href string, year int) bool {
	want := strconv.Itoa(year)
	for _, match := range yearExpr.FindAllString(text+" "+href, -1) {
		if match == want {
			return true
		}
	}
	return false
}

func linkContentType(href string) domain.ContentType {
	switch {
	case strings.HasSuffix(href, ".pdf"):
		return domain.ContentPDF
	case strings.HasSuffix(href, ".json"):
		return domain.ContentJSON
	case strings.HasSuffix(href, ".txt"):
		return domain.ContentText
	default:
		return domain.ContentHTML
	}
}
