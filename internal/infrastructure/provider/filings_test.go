package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"MaturityScanner/internal/domain"
)

func TestFilingsProviderSearch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/filings" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("ticker"); got != "ACME" {
			t.Errorf("unexpected ticker: %s", got)
		}
		if got := r.URL.Query().Get("year"); got != "2024" {
			t.Errorf("unexpected year: %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header: %s", got)
		}
		base := "http://" + r.Host
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"accession_no":"001","url":"` + base + `/doc/001","priority":90,"content_type":"json"},
			{"accession_no":"002","url":"` + base + `/doc/002","priority":40,"content_type":"pdf"}
		]`))
	}))
	defer server.Close()

	p := NewFilingsProvider("filings", 1, server.URL, "secret", server.Client())

	candidates, err := p.Search(context.Background(), "acme", 2024)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Priority != 90 || candidates[0].Content != domain.ContentJSON {
		t.Fatalf("unexpected first candidate: %+v", candidates[0])
	}
	if candidates[1].Content != domain.ContentPDF {
		t.Fatalf("unexpected second candidate: %+v", candidates[1])
	}
}

func TestFilingsProviderSearchRejectsBadTicker(t *testing.T) {
	t.Parallel()

	p := NewFilingsProvider("filings", 1, "http://unused.invalid", "", nil)

	_, err := p.Search(context.Background(), "not a ticker", 2024)
	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Provider != "filings" {
		t.Fatalf("unexpected provider in error: %s", provErr.Provider)
	}
}

func TestFilingsProviderSearchServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewFilingsProvider("filings", 1, server.URL, "", server.Client())

	_, err := p.Search(context.Background(), "ACME", 2024)
	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestFilingsProviderDownload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("annual sustainability disclosure"))
	}))
	defer server.Close()

	p := NewFilingsProvider("filings", 1, server.URL, "", server.Client())
	candidate, err := domain.NewSourceCandidate("filings", 1, 50, domain.AccessAPI, domain.ContentText, server.URL+"/doc/001")
	if err != nil {
		t.Fatalf("NewSourceCandidate: %v", err)
	}

	doc, err := p.Download(context.Background(), candidate)
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if string(doc.Content) != "annual sustainability disclosure" {
		t.Fatalf("unexpected content: %q", doc.Content)
	}
	if doc.ContentHash == "" || doc.DocumentID == "" {
		t.Fatalf("missing fingerprint: %+v", doc)
	}
	if doc.ByteLength != len(doc.Content) {
		t.Fatalf("byte length mismatch: %d vs %d", doc.ByteLength, len(doc.Content))
	}

	again, err := p.Download(context.Background(), candidate)
	if err != nil {
		t.Fatalf("second Download error: %v", err)
	}
	if again.DocumentID != doc.DocumentID || again.ContentHash != doc.ContentHash {
		t.Fatal("identical content produced different fingerprints")
	}
}
