package factcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"factcheck_gateway/internal/model"

	"go.uber.org/zap/zaptest"
)

const sampleResponse = `{
  "claims": [
    {
      "text": "The bridge collapsed",
      "claimant": "social media",
      "claimDate": "2026-01-02T00:00:00Z",
      "claimReview": [
        {
          "publisher": {"name": "GhanaFact", "site": "ghanafact.com"},
          "url": "https://ghanafact.example/bridge",
          "title": "No, the bridge did not collapse",
          "reviewDate": "2026-01-03T00:00:00Z",
          "textualRating": "False",
          "languageCode": "en"
        }
      ]
    },
    {
      "text": "The bridge is closed",
      "claimReview": [
        {"publisher": {"name": "Dubawa"}, "url": "https://dubawa.example/closed", "textualRating": "Half true"}
      ]
    }
  ]
}`

func TestSearch(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/claims:search" {
			t.Errorf("unexpected path '%s'", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"key":          q.Get("key"),
			"query":        q.Get("query"),
			"languageCode": q.Get("languageCode"),
			"pageSize":     q.Get("pageSize"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewGoogleClient(Config{APIKey: "secret", BaseURL: server.URL + "/"}, server.Client(), zaptest.NewLogger(t))

	result, err := client.Search(context.Background(), strings.Repeat("a", 600), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery["key"] != "secret" {
		t.Errorf("expected key 'secret', but got '%s'", gotQuery["key"])
	}
	if len(gotQuery["query"]) != MaxQueryLength {
		t.Errorf("expected query truncated to %d chars, but got %d", MaxQueryLength, len(gotQuery["query"]))
	}
	if gotQuery["languageCode"] != "en" {
		t.Errorf("expected default language 'en', but got '%s'", gotQuery["languageCode"])
	}
	if gotQuery["pageSize"] != "10" {
		t.Errorf("expected pageSize '10', but got '%s'", gotQuery["pageSize"])
	}

	if !result.Found {
		t.Fatal("expected found result")
	}
	if result.OverallRating != model.VerdictFalse {
		t.Errorf("expected overall rating 'false', but got '%s'", result.OverallRating)
	}
	if result.TotalResults != 2 {
		t.Errorf("expected 2 results, but got %d", result.TotalResults)
	}
	if result.Claims[0].Reviews[0].Publisher != "GhanaFact" {
		t.Errorf("expected publisher 'GhanaFact', but got '%s'", result.Claims[0].Reviews[0].Publisher)
	}
	if len(result.Raw) == 0 {
		t.Error("expected raw upstream payload to be kept")
	}
}

func TestSearchNoClaims(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewGoogleClient(Config{APIKey: "secret", BaseURL: server.URL}, server.Client(), zaptest.NewLogger(t))

	result, err := client.Search(context.Background(), "anything", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Error("expected not found")
	}
	if result.Verdict() != model.VerdictUnverified {
		t.Errorf("expected unverified, but got '%s'", result.Verdict())
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expectedKind  error
		expectedError string
	}{
		{
			name:          "rate_limited",
			status:        http.StatusTooManyRequests,
			body:          `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`,
			expectedKind:  model.ErrRateLimited,
			expectedError: "fact-check api error: rate limited (status 429): Quota exceeded",
		},
		{
			name:          "forbidden",
			status:        http.StatusForbidden,
			body:          `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`,
			expectedKind:  model.ErrUnauthorized,
			expectedError: "fact-check api error: unauthorized (status 403): API key not valid",
		},
		{
			name:          "server_error",
			status:        http.StatusInternalServerError,
			body:          `boom`,
			expectedKind:  model.ErrUpstream,
			expectedError: "fact-check api error: upstream error (status 500): boom",
		},
		{
			name:          "malformed_json",
			status:        http.StatusOK,
			body:          `{"claims": [`,
			expectedKind:  model.ErrUpstream,
			expectedError: "fact-check api error: upstream error (status 200): malformed response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewGoogleClient(Config{APIKey: "secret", BaseURL: server.URL}, server.Client(), zaptest.NewLogger(t))

			_, err := client.Search(context.Background(), "claim", "en")
			if err == nil {
				t.Fatal("expected error, but got nil")
			}
			if !errors.Is(err, tt.expectedKind) {
				t.Errorf("expected error kind %v, but got %v", tt.expectedKind, err)
			}
			if !containsError(err.Error(), tt.expectedError) {
				t.Errorf("expected error containing '%s', but got '%s'", tt.expectedError, err.Error())
			}

			var fcErr *Error
			if !errors.As(err, &fcErr) || fcErr.StatusCode != tt.status {
				t.Errorf("expected *Error with status %d, but got %v", tt.status, err)
			}
		})
	}
}

func TestSearchMissingAPIKey(t *testing.T) {
	client := NewGoogleClient(Config{BaseURL: "http://127.0.0.1:1"}, nil, zaptest.NewLogger(t))

	_, err := client.Search(context.Background(), "claim", "en")
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected configuration error, but got %v", err)
	}
}

func TestSearchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewGoogleClient(Config{APIKey: "secret", BaseURL: server.URL, Timeout: 50 * time.Millisecond}, server.Client(), zaptest.NewLogger(t))

	_, err := client.Search(context.Background(), "claim", "en")
	if !errors.Is(err, model.ErrUpstream) {
		t.Errorf("expected upstream error, but got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, but got %v", err)
	}
}

func containsError(got, want string) bool {
	return len(got) > 0 && len(want) > 0 && (got == want ||
		(len(got) >= len(want) && got[:len(want)] == want))
}
