package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/ports"
)

// RegistryProvider is the tier-2 source: a sustainability disclosure
// database queried by organization name and reporting year.
type RegistryProvider struct {
	name    string
	tier    int
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ ports.Provider = (*RegistryProvider)(nil)

// NewRegistryProvider wires the registry API client.
func NewRegistryProvider(name string, tier int, baseURL, apiKey string, client *http.Client) *RegistryProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RegistryProvider{name: name, tier: tier, baseURL: baseURL, apiKey: apiKey, http: client}
}

// Name identifies the provider inside the registry.
func (p *RegistryProvider) Name() string { return p.name }

// Tier reports the trust tier this provider was configured with.
func (p *RegistryProvider) Tier() int { return p.tier }

type registryEntry struct {
	ReportID    string `json:"report_id"`
	DownloadURL string `json:"download_url"`
	Priority    int    `json:"priority"`
	ContentType string `json:"content_type"`
}

// Search queries the registry for disclosed reports.
func (p *RegistryProvider) Search(ctx context.Context, org string, year int) ([]domain.SourceCandidate, error) {
	endpoint := fmt.Sprintf("%s/reports?org=%s&year=%s",
		p.baseURL, url.QueryEscape(org), url.QueryEscape(strconv.Itoa(year)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &domain.ProviderError{Provider: p.name, Err: fmt.Errorf("new request: %w", err)}
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: p.name, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ProviderError{Provider: p.name, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var entries []registryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &domain.ProviderError{Provider: p.name, Err: fmt.Errorf("decode response: %w", err)}
	}

	candidates := make([]domain.SourceCandidate, 0, len(entries))
	for _, entry := range entries {
		candidate, err := domain.NewSourceCandidate(p.name, p.tier, entry.Priority, domain.AccessDownload, contentType(entry.ContentType), entry.DownloadURL)
		if err != nil {
			return nil, &domain.ProviderError{Provider: p.name, Err: err}
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// Download fetches one registry report body.
func (p *RegistryProvider) Download(ctx context.Context, candidate domain.SourceCandidate) (domain.ResolvedDocument, error) {
	return fetchDocument(ctx, p.http, p.name, p.apiKey, candidate)
}
