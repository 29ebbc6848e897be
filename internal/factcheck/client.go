package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"factcheck_gateway/internal/model"

	"go.uber.org/zap"
)

const (
	MaxQueryLength  = 500
	PageSize        = 10
	DefaultTimeout  = 10 * time.Second
	DefaultLanguage = "en"
)

// Searcher ищет опубликованные проверки фактов по тексту утверждения.
type Searcher interface {
	Search(ctx context.Context, query, languageCode string) (*SearchResult, error)
}

type Review struct {
	Publisher     string `json:"publisher,omitempty"`
	URL           string `json:"url,omitempty"`
	Title         string `json:"title,omitempty"`
	ReviewDate    string `json:"reviewDate,omitempty"`
	TextualRating string `json:"textualRating,omitempty"`
	LanguageCode  string `json:"languageCode,omitempty"`
}

type Claim struct {
	Text      string   `json:"claimText,omitempty"`
	Claimant  string   `json:"claimant,omitempty"`
	ClaimDate string   `json:"claimDate,omitempty"`
	Reviews   []Review `json:"review"`
}

type SearchResult struct {
	Found         bool            `json:"found"`
	OverallRating model.Verdict   `json:"overallRating,omitempty"`
	Claims        []Claim         `json:"claims"`
	TotalResults  int             `json:"totalResults,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type googleClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

// NewGoogleClient builds a Searcher backed by the Google Fact Check Tools claims:search endpoint.
func NewGoogleClient(cfg Config, httpClient *http.Client, logger *zap.Logger) Searcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &googleClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http:    httpClient,
		logger:  logger,
	}
}

type apiResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimDate   string `json:"claimDate"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			ReviewDate    string `json:"reviewDate"`
			TextualRating string `json:"textualRating"`
			LanguageCode  string `json:"languageCode"`
		} `json:"claimReview"`
	} `json:"claims"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *googleClient) Search(ctx context.Context, query, languageCode string) (*SearchResult, error) {
	if c.apiKey == "" {
		c.logger.Error("fact-check api key not configured")
		return nil, &Error{Kind: model.ErrConfiguration, Message: "Google Fact Check API key not configured"}
	}
	if languageCode == "" {
		languageCode = DefaultLanguage
	}

	query = Truncate(query, MaxQueryLength)

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("query", query)
	params.Set("languageCode", languageCode)
	params.Set("pageSize", strconv.Itoa(PageSize))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/claims:search?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Kind: model.ErrUpstream, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Info("fact-check api request",
		zap.String("query", Truncate(query, 100)),
		zap.String("language", languageCode))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("fact-check api request failed", zap.Error(err))
		return nil, &Error{Kind: model.ErrUpstream, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read fact-check api response", zap.Error(err), zap.Int("status", resp.StatusCode))
		return nil, &Error{Kind: model.ErrUpstream, StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		upstreamErr := statusError(resp.StatusCode, body)
		c.logger.Error("fact-check api error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", upstreamErr.Message))
		return nil, upstreamErr
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("failed to decode fact-check api response", zap.Error(err))
		return nil, &Error{Kind: model.ErrUpstream, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}

	c.logger.Info("fact-check api response",
		zap.Int("status", resp.StatusCode),
		zap.Int("results", len(payload.Claims)))

	result := buildResult(payload)
	result.Raw = json.RawMessage(body)
	return result, nil
}

func statusError(status int, body []byte) *Error {
	var parsed apiError
	message := ""
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	} else {
		message = strings.TrimSpace(Truncate(string(body), 200))
	}

	switch status {
	case http.StatusTooManyRequests:
		return &Error{Kind: model.ErrRateLimited, StatusCode: status, Message: message}
	case http.StatusForbidden:
		return &Error{Kind: model.ErrUnauthorized, StatusCode: status, Message: message}
	}
	return &Error{Kind: model.ErrUpstream, StatusCode: status, Message: message}
}

func buildResult(payload apiResponse) *SearchResult {
	if len(payload.Claims) == 0 {
		return &SearchResult{Found: false, Claims: []Claim{}}
	}

	claims := make([]Claim, 0, len(payload.Claims))
	ratings := make([]string, 0)
	for _, c := range payload.Claims {
		claim := Claim{
			Text:      c.Text,
			Claimant:  c.Claimant,
			ClaimDate: c.ClaimDate,
			Reviews:   make([]Review, 0, len(c.ClaimReview)),
		}
		for _, r := range c.ClaimReview {
			claim.Reviews = append(claim.Reviews, Review{
				Publisher:     r.Publisher.Name,
				URL:           r.URL,
				Title:         r.Title,
				ReviewDate:    r.ReviewDate,
				TextualRating: r.TextualRating,
				LanguageCode:  r.LanguageCode,
			})
			ratings = append(ratings, r.TextualRating)
		}
		claims = append(claims, claim)
	}

	return &SearchResult{
		Found:         true,
		OverallRating: OverallRating(ratings),
		Claims:        claims,
		TotalResults:  len(payload.Claims),
	}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func (r *SearchResult) String() string {
	return fmt.Sprintf("found=%t rating=%s claims=%d", r.Found, r.OverallRating, len(r.Claims))
}
