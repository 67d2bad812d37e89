package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

// UnlockHandler exposes the self-service unlock endpoints.
type UnlockHandler struct {
	lockout *usecase.LockoutService
}

// NewUnlockHandler constructs UnlockHandler.
func NewUnlockHandler(lockout *usecase.LockoutService) *UnlockHandler {
	return &UnlockHandler{lockout: lockout}
}

// RegisterRoutes binds the unlock routes.
func (h *UnlockHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/unlock", h.unlock)
	r.GET("/unlock/question", h.securityQuestion)
}

var unlockErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: usecase.ErrNotLocked, Status: http.StatusConflict, Message: "account is not locked"},
	{Err: usecase.ErrNoPINSet, Status: http.StatusConflict, Message: "no pin configured for this account"},
	{Err: usecase.ErrInvalidPIN, Status: http.StatusUnauthorized, Message: "invalid pin"},
	{Err: usecase.ErrNoSecurityQuestion, Status: http.StatusConflict, Message: "no security question configured for this account"},
	{Err: usecase.ErrInvalidSecurityAnswer, Status: http.StatusUnauthorized, Message: "invalid security answer"},
}

func (h *UnlockHandler) unlock(c *gin.Context) {
	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid unlock payload"))
		return
	}

	if (req.PIN == nil) == (req.SecurityAnswer == nil) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "provide exactly one of pin or security_answer"))
		return
	}

	ip, _ := clientMeta(c)

	var err error
	if req.PIN != nil {
		err = h.lockout.UnlockWithPIN(c.Request.Context(), req.Email, *req.PIN, ip)
	} else {
		err = h.lockout.UnlockWithSecurityAnswer(c.Request.Context(), req.Email, *req.SecurityAnswer, ip)
	}
	if err != nil {
		RespondWithMappedError(c, err, unlockErrorCases, http.StatusInternalServerError, "unlock failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account unlocked, you can sign in again"})
}

func (h *UnlockHandler) securityQuestion(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email query parameter is required"))
		return
	}

	question, err := h.lockout.SecurityQuestion(c.Request.Context(), email)
	if err != nil {
		RespondWithMappedError(c, err, unlockErrorCases, http.StatusInternalServerError, "question lookup failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"security_question": question})
}
