package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"MaturityScanner/internal/determinism"
	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/ports"
	"MaturityScanner/pkg/ticker"
)

// maxDocumentBytes caps a single downloaded report.
const maxDocumentBytes = 32 << 20

// FilingsProvider is the tier-1 source: a regulatory filings API serving
// structured sustainability disclosures per ticker and fiscal year.
type FilingsProvider struct {
	name    string
	tier    int
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ ports.Provider = (*FilingsProvider)(nil)

// NewFilingsProvider creates a reusable HTTP client for the filings API.
func NewFilingsProvider(name string, tier int, baseURL, apiKey string, client *http.Client) *FilingsProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &FilingsProvider{name: name, tier: tier, baseURL: baseURL, apiKey: apiKey, http: client}
}

// Name identifies the provider inside the registry.
func (p *FilingsProvider) Name() string { return p.name }

// Tier reports the trust tier this provider was configured with.
func (p *FilingsProvider) Tier() int { return p.tier }

type filingEntry struct {
	AccessionNo string `json:"accession_no"`
	URL         string `json:"url"`
	Priority    int    `json:"priority"`
	ContentType string `json:"content_type"`
	PublishedAt string `json:"published_at"`
}

// Search lists filings for the organization's ticker. The org identifier is
// validated as a ticker symbol before it reaches the query string.
func (p *FilingsProvider) Search(ctx context.Context, org string, year int) ([]domain.SourceCandidate, error) {
	symbol, err := ticker.Normalize(org)
	if err != nil {
		return nil, &domain.ProviderError{Provider: p.name, Err: err}
	}

	endpoint := fmt.Sprintf("%s/filings?ticker=%s&year=%s",
		p.baseURL, url.QueryEscape(symbol), url.QueryEscape(strconv.Itoa(year)))

	var entries []filingEntry
	if err := p.getJSON(ctx, endpoint, &entries); err != nil {
		return nil, &domain.ProviderError{Provider: p.name, Err: err}
	}

	candidates := make([]domain.SourceCandidate, 0, len(entries))
	for _, entry := range entries {
		candidate, err := domain.NewSourceCandidate(p.name, p.tier, entry.Priority, domain.AccessAPI, contentType(entry.ContentType), entry.URL)
		if err != nil {
			return nil, &domain.ProviderError{Provider: p.name, Err: err}
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// Download fetches one filing body.
func (p *FilingsProvider) Download(ctx context.Context, candidate domain.SourceCandidate) (domain.ResolvedDocument, error) {
	return fetchDocument(ctx, p.http, p.name, p.apiKey, candidate)
}

func (p *FilingsProvider) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// fetchDocument downloads candidate content and fingerprints it; shared by
// the HTTP-backed providers.
func fetchDocument(ctx context.Context, client *http.Client, providerName, apiKey string, candidate domain.SourceCandidate) (domain.ResolvedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate.URL, nil)
	if err != nil {
		return domain.ResolvedDocument{}, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("new request: %w", err)}
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return domain.ResolvedDocument{}, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("download: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ResolvedDocument{}, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return domain.ResolvedDocument{}, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("read body: %w", err)}
	}

	hash := determinism.StableHashHex(body)
	return domain.ResolvedDocument{
		Candidate:   candidate,
		DocumentID:  fmt.Sprintf("%s-%s", providerName, hash),
		Content:     body,
		ContentHash: hash,
		ByteLength:  len(body),
	}, nil
}

func contentType(raw string) domain.ContentType {
	switch raw {
	case "json":
		return domain.ContentJSON
	case "pdf":
		return domain.ContentPDF
	case "html":
		return domain.ContentHTML
	default:
		return domain.ContentText
	}
}
