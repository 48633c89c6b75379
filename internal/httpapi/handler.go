// Package httpapi serves risk assessments over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"solana-token-risk/internal/analyzer"
	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/reporting"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Assessor produces and lists assessments.
type Assessor interface {
	Analyze(ctx context.Context, mint string) (*domain.AssessmentRecord, error)
	History(ctx context.Context, mint string, limit int) ([]*domain.AssessmentRecord, error)
}

var _ Assessor = (*analyzer.Analyzer)(nil)

// Handler provides the token risk endpoints.
type Handler struct {
	assessor Assessor
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewHandler creates a Handler.
func NewHandler(a Assessor, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{assessor: a, now: time.Now, log: log.WithField("component", "httpapi")}
}

// RegisterRoutes sets up token endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tokens/:mint/risk", h.GetRisk)
	r.GET("/tokens/:mint/history", h.GetHistory)
}

// GetRisk assesses a mint. ?format=markdown returns a rendered report.
func (h *Handler) GetRisk(c *gin.Context) {
	mint := c.Param("mint")
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "markdown" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_format",
			"message": "format must be json or markdown",
		})
		return
	}

	rec, err := h.assessor.Analyze(c.Request.Context(), mint)
	if err != nil {
		h.writeError(c, mint, err)
		return
	}

	if format == "markdown" {
		history, err := h.assessor.History(c.Request.Context(), mint, defaultHistoryLimit)
		if err != nil {
			h.log.WithError(err).WithField("mint", mint).Warn("history lookup failed")
		}
		md := reporting.RenderMarkdown(reporting.Build(rec, history, h.now()))
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}

	c.JSON(http.StatusOK, rec)
}

// GetHistory lists earlier assessments of a mint, newest first.
func (h *Handler) GetHistory(c *gin.Context) {
	mint := c.Param("mint")

	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, maxHistoryLimit)
		}
	}

	records, err := h.assessor.History(c.Request.Context(), mint, limit)
	if err != nil {
		h.writeError(c, mint, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mint":        mint,
		"assessments": records,
		"count":       len(records),
	})
}

func (h *Handler) writeError(c *gin.Context, mint string, err error) {
	switch {
	case errors.Is(err, analyzer.ErrInvalidMint):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_mint",
			"message": "mint must be a base58 encoded public key",
		})
	case errors.Is(err, analyzer.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "token_not_found",
			"message": "no token mint exists at this address",
		})
	default:
		h.log.WithError(err).WithField("mint", mint).Error("analysis failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "analysis_failed",
			"message": "the token could not be analyzed, try again later",
		})
	}
}
