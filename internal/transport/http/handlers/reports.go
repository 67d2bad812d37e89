package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/transport/http/middleware"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

const defaultFailedAttemptWindow = 24 * time.Hour

// ReportHandler exposes the operator-facing security reports.
type ReportHandler struct {
	reports *usecase.ReportService
	tokens  *usecase.TokenService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *usecase.ReportService, tokens *usecase.TokenService) *ReportHandler {
	return &ReportHandler{reports: reports, tokens: tokens}
}

// RegisterRoutes binds the report routes behind authentication and role check.
func (h *ReportHandler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/reports",
		middleware.RequireAuth(h.tokens),
		middleware.RequireRole(string(domain.RoleAdmin), string(domain.RoleOperator)),
	)
	group.GET("/failed-attempts", h.failedAttempts)
	group.GET("/login-attempts", h.loginAttempts)
	group.GET("/active-sessions", h.activeSessions)
	group.GET("/audit/:account_id", h.auditHistory)
}

func (h *ReportHandler) failedAttempts(c *gin.Context) {
	window := defaultFailedAttemptWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid window"))
			return
		}
		window = parsed
	}

	report, err := h.reports.FailedAttempts(c.Request.Context(), window, queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load attempts"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":    report.Since,
		"total":    report.Total,
		"attempts": newAttemptSummaries(report.Attempts),
	})
}

func (h *ReportHandler) loginAttempts(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "account_id query parameter is required"))
		return
	}

	attempts, err := h.reports.AccountAttempts(c.Request.Context(), accountID, queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load attempts"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": newAttemptSummaries(attempts)})
}

func (h *ReportHandler) activeSessions(c *gin.Context) {
	count, err := h.reports.ActiveSessions(c.Request.Context(), c.Query("account_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to count sessions"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"active_sessions": count})
}

func (h *ReportHandler) auditHistory(c *gin.Context) {
	entries, err := h.reports.AccountHistory(c.Request.Context(), c.Param("account_id"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load audit history"))
		return
	}

	summaries := make([]AuditEntrySummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, newAuditEntrySummary(entry))
	}

	c.JSON(http.StatusOK, gin.H{"entries": summaries})
}

func newAttemptSummaries(attempts []domain.LoginAttempt) []AttemptSummary {
	summaries := make([]AttemptSummary, 0, len(attempts))
	for _, attempt := range attempts {
		summaries = append(summaries, newAttemptSummary(attempt))
	}
	return summaries
}

func queryLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
