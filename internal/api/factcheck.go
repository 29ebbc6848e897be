package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"factcheck_gateway/internal/factcheck"
	"factcheck_gateway/internal/model"
	"factcheck_gateway/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	minClaimLength     = 3
	maxClaimLength     = 1000
)

type FactCheckHandler struct {
	verifier   service.VerificationService
	logger     *zap.Logger
	production bool
}

func NewFactCheckHandler(verifier service.VerificationService, production bool, logger *zap.Logger) *FactCheckHandler {
	return &FactCheckHandler{verifier: verifier, logger: logger, production: production}
}

type verifyRequest struct {
	ClaimText string `json:"claimText"`
	Language  string `json:"language"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (r *verifyRequest) validate() []fieldError {
	var errs []fieldError

	r.ClaimText = strings.TrimSpace(r.ClaimText)
	switch n := utf8.RuneCountInString(r.ClaimText); {
	case n == 0:
		errs = append(errs, fieldError{Field: "claimText", Message: "claimText is required"})
	case n < minClaimLength:
		errs = append(errs, fieldError{Field: "claimText", Message: "claimText must be at least 3 characters long"})
	case n > maxClaimLength:
		errs = append(errs, fieldError{Field: "claimText", Message: "claimText must be at most 1000 characters long"})
	}

	r.Language = strings.TrimSpace(r.Language)
	if r.Language == "" {
		r.Language = factcheck.DefaultLanguage
	} else if utf8.RuneCountInString(r.Language) != 2 {
		errs = append(errs, fieldError{Field: "language", Message: "language must be 2 characters long"})
	}

	return errs
}

// Verify handles POST /api/fact-check
func (h *FactCheckHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": "Invalid request data",
			"errors":  []fieldError{{Field: "body", Message: "body must be a JSON object"}},
		})
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation Error",
			"message": "Invalid request data",
			"errors":  errs,
		})
		return
	}

	h.logger.Info("verify claim",
		zap.String("claim", factcheck.Truncate(req.ClaimText, 50)),
		zap.String("language", req.Language))

	result, err := h.verifier.Verify(c.Request.Context(), req.ClaimText, req.Language, c.GetString(userIDKey))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// Get handles GET /api/fact-check/:id
func (h *FactCheckHandler) Get(c *gin.Context) {
	id := c.Param("id")
	h.logger.Info("query fact check", zap.String("id", id))

	record, err := h.verifier.GetFactCheck(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

// Search handles GET /api/fact-check/search?q=&limit=
func (h *FactCheckHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": `Query parameter "q" is required`,
		})
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": `Query parameter "limit" must be a positive integer`,
			})
			return
		}
		limit = min(n, maxSearchLimit)
	}

	h.logger.Info("search fact checks", zap.String("query", factcheck.Truncate(q, 50)), zap.Int("limit", limit))

	records, err := h.verifier.SearchFactChecks(c.Request.Context(), q, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if records == nil {
		records = []*model.VerificationRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": records, "count": len(records)})
}

func (h *FactCheckHandler) writeError(c *gin.Context, err error) {
	status, title := statusFor(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		h.logger.Error("fact-check request failed", zap.Error(err),
			zap.String("path", c.Request.URL.Path))
		if h.production {
			message = "Something went wrong"
		}
	}

	c.JSON(status, gin.H{"error": title, "message": message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, "Bad Request"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests, "Too Many Requests"
	case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrConfiguration):
		return http.StatusServiceUnavailable, "Service Unavailable"
	case errors.Is(err, model.ErrUpstream):
		return http.StatusBadGateway, "Bad Gateway"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
