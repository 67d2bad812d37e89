package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/transport/http/middleware"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

// SessionHandler exposes the authenticated account's session endpoints.
type SessionHandler struct {
	sessions *usecase.SessionService
	tokens   *usecase.TokenService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *usecase.SessionService, tokens *usecase.TokenService) *SessionHandler {
	return &SessionHandler{sessions: sessions, tokens: tokens}
}

// RegisterRoutes binds the session routes behind authentication.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/sessions", middleware.RequireAuth(h.tokens))
	group.GET("", h.list)
	group.DELETE("/:id", h.revoke)
}

func (h *SessionHandler) list(c *gin.Context) {
	accountID := middleware.AccountID(c)

	sessions, err := h.sessions.List(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, newSessionSummary(session))
	}

	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

func (h *SessionHandler) revoke(c *gin.Context) {
	accountID := middleware.AccountID(c)
	sessionID := c.Param("id")

	// Only the owner may revoke, so resolve through the account's own list.
	sessions, err := h.sessions.List(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resolve session"))
		return
	}

	for _, session := range sessions {
		if session.ID != sessionID {
			continue
		}
		if err := h.sessions.RevokeByToken(c.Request.Context(), session.Token); err != nil {
			if errors.Is(err, usecase.ErrSessionNotFound) {
				break
			}
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke session"))
			return
		}
		c.JSON(http.StatusOK, MessageResponse{Message: "session revoked"})
		return
	}

	c.JSON(http.StatusNotFound, NewErrorResponse(c, "session not found"))
}
