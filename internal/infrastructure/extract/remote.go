package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"MaturityScanner/internal/config"
	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/ports"
)

// RemoteExtractor calls an external span-extraction service over an
// OpenAI-compatible HTTP interface. The service receives the full document
// and returns scoreable spans with their provenance.
type RemoteExtractor struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Extractor = (*RemoteExtractor)(nil)

// NewRemoteExtractor builds a client from configuration.
func NewRemoteExtractor(cfg config.ExtractorConfig) *RemoteExtractor {
	return &RemoteExtractor{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type extractRequest struct {
	Model      string `json:"model"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
}

type extractedSpan struct {
	Text        string `json:"text"`
	Page        int    `json:"page"`
	Offset      int    `json:"offset"`
	PublishedAt string `json:"published_at,omitempty"`
}

type extractResponse struct {
	Spans []extractedSpan `json:"spans"`
}

// Extract posts the document and maps returned spans onto rank candidates.
func (e *RemoteExtractor) Extract(ctx context.Context, doc domain.ResolvedDocument) ([]domain.RankCandidate, error) {
	if e == nil {
		return nil, fmt.Errorf("remote extractor is nil")
	}
	if e.endpoint == "" || e.model == "" {
		return nil, fmt.Errorf("remote extractor misconfigured")
	}

	body, err := json.Marshal(extractRequest{
		Model:      e.model,
		DocumentID: doc.DocumentID,
		Content:    string(doc.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal extract payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract spans: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("extractor error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}

	candidates := make([]domain.RankCandidate, 0, len(decoded.Spans))
	for _, span := range decoded.Spans {
		if strings.TrimSpace(span.Text) == "" {
			continue
		}
		candidate := domain.RankCandidate{
			DocumentID: doc.DocumentID,
			Text:       span.Text,
			Page:       span.Page,
			Offset:     span.Offset,
		}
		if span.PublishedAt != "" {
			candidate.Metadata = map[string]string{"published_at": span.PublishedAt}
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
