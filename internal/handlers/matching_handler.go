package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jwlee-kr/danjilink/api/internal/config"
	apierrors "github.com/jwlee-kr/danjilink/api/internal/errors"
	"github.com/jwlee-kr/danjilink/api/internal/middleware"
	"github.com/jwlee-kr/danjilink/api/internal/models"
	"github.com/jwlee-kr/danjilink/api/internal/services"
)

// MatchingHandler handles matching-related HTTP requests.
type MatchingHandler struct {
	service services.MatchingService
	cfg     config.MatcherConfig
}

// NewMatchingHandler creates a new MatchingHandler instance.
func NewMatchingHandler(service services.MatchingService, cfg config.MatcherConfig) *MatchingHandler {
	return &MatchingHandler{
		service: service,
		cfg:     cfg,
	}
}

// RunRequest represents the body for the run endpoint. All fields are
// optional; absent values fall back to the configured defaults.
type RunRequest struct {
	Threshold  *float64 `json:"threshold" binding:"omitempty,min=0,max=100"`
	BatchSize  int      `json:"batchSize" binding:"omitempty,min=1,max=1000"`
	MaxBatches int      `json:"maxBatches" binding:"omitempty,min=1,max=500"`
}

// CandidatesRequest represents the query parameters for the candidate search endpoint.
type CandidatesRequest struct {
	Query      string `form:"query" binding:"required,min=2"`
	RegionCode string `form:"regionCode" binding:"omitempty,min=5,max=10"`
	LegalDong  string `form:"legalDong" binding:"omitempty,max=100"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// CommitRequest represents the body for the commit endpoint.
type CommitRequest struct {
	TransactionType string `json:"transactionType" binding:"required,oneof=sale lease"`
	TransactionID   int64  `json:"transactionId" binding:"required,min=1"`
	ComplexID       int64  `json:"complexId" binding:"required,min=1"`
}

// UnlinkRequest represents the body for the unlink endpoint.
type UnlinkRequest struct {
	TransactionType string `json:"transactionType" binding:"required,oneof=sale lease"`
	TransactionID   int64  `json:"transactionId" binding:"required,min=1"`
}

// FlagRequest represents the body for the match-failed flag endpoint.
// Failed is a pointer so that an explicit false can clear the flag.
type FlagRequest struct {
	Failed          *bool  `json:"failed" binding:"required"`
	TransactionType string `json:"transactionType" binding:"required,oneof=sale lease"`
	TransactionID   int64  `json:"transactionId" binding:"required,min=1"`
}

// UnmatchedRequest represents the query parameters for the unmatched listing endpoint.
type UnmatchedRequest struct {
	Type  string `form:"type" binding:"required,oneof=sale lease"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// CandidatesResponse represents the candidate search response.
type CandidatesResponse struct {
	Candidates []services.Candidate `json:"candidates"`
	Count      int                  `json:"count"`
}

// UnmatchedResponse represents the unmatched transaction listing response.
type UnmatchedResponse struct {
	Transactions []models.TransactionRecord `json:"transactions"`
	Count        int                        `json:"count"`
}

// Run handles POST /api/v1/matching/run.
// It triggers one automatic matching run over all unmatched transactions.
func (h *MatchingHandler) Run(c *gin.Context) {
	var req RunRequest
	// An empty body is a valid trigger with all defaults. Chunked requests
	// carry no Content-Length, so always bind and take EOF as "no body".
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	// An explicit threshold of 0 is a real request to accept everything, so
	// the configured default only applies when the field is absent.
	threshold := h.cfg.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	opts := services.RunOptions{
		Threshold:  &threshold,
		BatchSize:  h.cfg.BatchSize,
		MaxBatches: h.cfg.MaxBatches,
	}
	if req.BatchSize > 0 {
		opts.BatchSize = req.BatchSize
	}
	if req.MaxBatches > 0 {
		opts.MaxBatches = req.MaxBatches
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Triggering matching run", map[string]interface{}{
			"threshold":   threshold,
			"batch_size":  opts.BatchSize,
			"max_batches": opts.MaxBatches,
		})
	}

	result, err := h.service.Run(c.Request.Context(), opts)
	if err != nil {
		if errors.Is(err, services.ErrInvalidThreshold) ||
			errors.Is(err, services.ErrInvalidBatchSize) ||
			errors.Is(err, services.ErrInvalidMaxBatches) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Matching run failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Candidates handles GET /api/v1/matching/candidates.
// It returns ranked complex candidates for an operator's search query.
func (h *MatchingHandler) Candidates(c *gin.Context) {
	var req CandidatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = h.cfg.SearchLimit
	}

	candidates, err := h.service.SearchCandidates(c.Request.Context(), req.Query, req.RegionCode, req.LegalDong, limit)
	if err != nil {
		if errors.Is(err, services.ErrQueryTooShort) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Candidate search failed", err)
		return
	}

	c.JSON(http.StatusOK, CandidatesResponse{
		Candidates: candidates,
		Count:      len(candidates),
	})
}

// Commit handles POST /api/v1/matching/commit.
// It applies an operator-chosen match to the transaction and its siblings.
func (h *MatchingHandler) Commit(c *gin.Context) {
	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	result, err := h.service.Commit(c.Request.Context(), models.TransactionKind(req.TransactionType), req.TransactionID, req.ComplexID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			apierrors.NotFound(c, "Transaction not found")
		case errors.Is(err, services.ErrComplexNotFound):
			apierrors.NotFound(c, "Complex not found")
		case errors.Is(err, services.ErrInvalidTransactionKind),
			errors.Is(err, services.ErrInvalidTransactionID),
			errors.Is(err, services.ErrInvalidComplexID):
			apierrors.BadRequest(c, err.Error(), nil)
		default:
			apierrors.InternalServerError(c, "Failed to commit match", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Unlink handles POST /api/v1/matching/unlink.
// It clears the complex link on a single transaction.
func (h *MatchingHandler) Unlink(c *gin.Context) {
	var req UnlinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	err := h.service.Unlink(c.Request.Context(), models.TransactionKind(req.TransactionType), req.TransactionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			apierrors.NotFound(c, "Transaction not found")
		case errors.Is(err, services.ErrInvalidTransactionKind),
			errors.Is(err, services.ErrInvalidTransactionID):
			apierrors.BadRequest(c, err.Error(), nil)
		default:
			apierrors.InternalServerError(c, "Failed to unlink transaction", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unlinked"})
}

// Flag handles POST /api/v1/matching/flag.
// It sets or clears the match-failed flag on a single transaction.
func (h *MatchingHandler) Flag(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	err := h.service.SetMatchFailed(c.Request.Context(), models.TransactionKind(req.TransactionType), req.TransactionID, *req.Failed)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			apierrors.NotFound(c, "Transaction not found")
		case errors.Is(err, services.ErrInvalidTransactionKind),
			errors.Is(err, services.ErrInvalidTransactionID):
			apierrors.BadRequest(c, err.Error(), nil)
		default:
			apierrors.InternalServerError(c, "Failed to update match-failed flag", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "failed": *req.Failed})
}

// Unmatched handles GET /api/v1/transactions/unmatched.
// It lists unmatched transactions, previously failed rows last.
func (h *MatchingHandler) Unmatched(c *gin.Context) {
	var req UnmatchedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	txs, err := h.service.ListUnmatched(c.Request.Context(), models.TransactionKind(req.Type), req.Limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransactionKind) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to list unmatched transactions", err)
		return
	}

	c.JSON(http.StatusOK, UnmatchedResponse{
		Transactions: txs,
		Count:        len(txs),
	})
}
