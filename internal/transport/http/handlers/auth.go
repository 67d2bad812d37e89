package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/transport/http/middleware"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/usecase"
)

// Cookie names mirrored into login responses. Both are HTTP-only; the
// Authorization header works as well for non-browser clients.
const (
	SessionCookieName = middleware.SessionCookieName
	BearerCookieName  = middleware.BearerCookieName
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth     *usecase.AuthService
	tokens   *usecase.TokenService
	password *usecase.PasswordService
	secure   bool
}

// NewAuthHandler constructs AuthHandler. secure toggles the Secure cookie
// attribute and should follow the production flag.
func NewAuthHandler(auth *usecase.AuthService, tokens *usecase.TokenService, password *usecase.PasswordService, secure bool) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, password: password, secure: secure}
}

// RegisterRoutes binds the authentication routes. Logout is deliberately
// unauthenticated: a client whose bearer already expired must still be able
// to drop its cookies and server-side session.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.login)
	r.POST("/mfa/verify", h.verifyMFA)
	r.POST("/mfa/resend", h.resendMFA)
	r.POST("/first-access", h.firstAccess)
	r.GET("/user-status", h.userStatus)
	r.POST("/password/strength", h.passwordStrength)
	r.POST("/logout", h.logout)
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: usecase.ErrAccountLocked, Status: http.StatusLocked, Message: "account locked"},
	{Err: usecase.ErrAccountInactive, Status: http.StatusForbidden, Message: "account inactive"},
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	ip, userAgent := clientMeta(c)
	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, ip, userAgent)
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		MFARequired: result.MFARequired,
		FirstAccess: result.FirstAccess,
		Message:     "verification code sent",
	})
}

func (h *AuthHandler) verifyMFA(c *gin.Context) {
	var req MFAVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	ip, userAgent := clientMeta(c)
	result, err := h.auth.VerifyMFA(c.Request.Context(), req.Email, req.Code, ip, userAgent)
	if err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrCodeInvalid, Status: http.StatusUnauthorized, Message: "verification code invalid"},
			{Err: usecase.ErrCodeExpired, Status: http.StatusUnauthorized, Message: "verification code expired"},
			{Err: usecase.ErrCodeAlreadyUsed, Status: http.StatusUnauthorized, Message: "verification code already used"},
			{Err: usecase.ErrPasswordChangeRequired, Status: http.StatusConflict, Message: "password change required, complete first access"},
		}, loginErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "verification failed")
		return
	}

	h.setAuthCookies(c, result)
	c.JSON(http.StatusOK, AuthResponse{
		Token:     result.BearerToken,
		ExpiresIn: int64(result.ExpiresIn.Seconds()),
		Account:   newAccountSummary(result.Account),
	})
}

func (h *AuthHandler) resendMFA(c *gin.Context) {
	var req MFAResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resend payload"))
		return
	}

	ip, userAgent := clientMeta(c)
	if err := h.auth.ResendMFA(c.Request.Context(), req.Email, ip, userAgent); err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "resend failed")
		return
	}

	// The response is identical for known and unknown addresses.
	c.JSON(http.StatusOK, MessageResponse{Message: "if the address is registered, a code was sent"})
}

func (h *AuthHandler) firstAccess(c *gin.Context) {
	var req FirstAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid first access payload"))
		return
	}

	if (req.SecurityQuestion == nil) != (req.SecurityAnswer == nil) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "security question and answer must be provided together"))
		return
	}

	ip, userAgent := clientMeta(c)
	result, err := h.auth.CompleteFirstAccess(c.Request.Context(), usecase.FirstAccessInput{
		Email:            req.Email,
		Code:             req.Code,
		NewPassword:      req.NewPassword,
		PIN:              req.PIN,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	}, ip, userAgent)
	if err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrCodeInvalid, Status: http.StatusUnauthorized, Message: "verification code invalid"},
			{Err: usecase.ErrCodeExpired, Status: http.StatusUnauthorized, Message: "verification code expired"},
			{Err: usecase.ErrCodeAlreadyUsed, Status: http.StatusUnauthorized, Message: "verification code already used"},
			{Err: usecase.ErrFirstAccessComplete, Status: http.StatusConflict, Message: "first access already completed"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password is too weak"},
			{Err: usecase.ErrPasswordReused, Status: http.StatusBadRequest, Message: "password was used recently"},
		}, loginErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "first access failed")
		return
	}

	h.setAuthCookies(c, result)
	c.JSON(http.StatusOK, AuthResponse{
		Token:     result.BearerToken,
		ExpiresIn: int64(result.ExpiresIn.Seconds()),
		Account:   newAccountSummary(result.Account),
	})
}

func (h *AuthHandler) userStatus(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email query parameter is required"))
		return
	}

	status, err := h.auth.Status(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "status lookup failed"))
		return
	}

	c.JSON(http.StatusOK, UserStatusResponse{
		Exists:              status.Exists,
		Blocked:             status.Blocked,
		FirstAccess:         status.FirstAccess,
		HasPIN:              status.HasPIN,
		HasSecurityQuestion: status.HasSecurityQuestion,
		SecurityQuestion:    status.SecurityQuestion,
	})
}

func (h *AuthHandler) passwordStrength(c *gin.Context) {
	var req PasswordStrengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid strength payload"))
		return
	}

	strength := h.password.Strength(req.Password)
	c.JSON(http.StatusOK, PasswordStrengthResponse{
		Score:       strength.Score,
		Label:       strength.Label,
		CriteriaMet: strength.CriteriaMet,
	})
}

// logout always answers 200 and clears the cookies, whatever credential
// state the caller arrives in.
func (h *AuthHandler) logout(c *gin.Context) {
	ip, _ := clientMeta(c)

	sessionToken, _ := c.Cookie(SessionCookieName)
	summary := h.auth.Logout(c.Request.Context(), usecase.LogoutInput{
		BearerToken:  middleware.BearerToken(c),
		SessionToken: sessionToken,
	}, ip)

	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, LogoutResponse{SessionsRevoked: summary.SessionsRevoked})
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, result *usecase.AuthResult) {
	maxAge := int(result.ExpiresIn.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, result.SessionToken, maxAge, "/", "", h.secure, true)
	c.SetCookie(BearerCookieName, result.BearerToken, maxAge, "/", "", h.secure, true)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", h.secure, true)
	c.SetCookie(BearerCookieName, "", -1, "/", "", h.secure, true)
}

func clientMeta(c *gin.Context) (*string, *string) {
	var ip, userAgent *string
	if v := c.ClientIP(); v != "" {
		ip = &v
	}
	if v := c.Request.UserAgent(); v != "" {
		userAgent = &v
	}
	return ip, userAgent
}
