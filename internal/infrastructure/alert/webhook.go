package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"MaturityScanner/internal/domain"
	"MaturityScanner/internal/ports"
)

// WebhookAlerter posts parity violations to an operator-facing webhook.
type WebhookAlerter struct {
	url    string
	client *http.Client
}

var _ ports.Alerter = (*WebhookAlerter)(nil)

// NewWebhookAlerter registers the target URL.
func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type parityAlert struct {
	Kind       string   `json:"kind"`
	Org        string   `json:"org"`
	Year       int      `json:"year"`
	Query      string   `json:"query"`
	MissingIDs []string `json:"missing_ids"`
	Text       string   `json:"text"`
}

// AlertParity posts a JSON alert describing the violation.
func (a *WebhookAlerter) AlertParity(ctx context.Context, org string, year int, report domain.ParityReport) error {
	if a.url == "" || a.client == nil {
		return fmt.Errorf("webhook alerter misconfigured")
	}

	body, err := json.Marshal(parityAlert{
		Kind:       "parity_violation",
		Org:        org,
		Year:       year,
		Query:      report.Query,
		MissingIDs: report.MissingIDs,
		Text: fmt.Sprintf("parity violation for %s/%d: score cites %d document(s) missing from retrieval",
			org, year, len(report.MissingIDs)),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}
	return nil
}
