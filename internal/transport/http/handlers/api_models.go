package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/core/domain"
	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/logger"
)

// ErrorResponse represents a generic error payload with the request ID for
// correlation.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	requestID, _ := c.Request.Context().Value(logger.RequestIDKey{}).(string)
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestID,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse acknowledges the credential check and directs the client to
// the step-up verification.
type LoginResponse struct {
	MFARequired bool   `json:"mfa_required"`
	FirstAccess bool   `json:"first_access"`
	Message     string `json:"message"`
}

// MFAVerifyRequest defines the payload for the code verification endpoint.
type MFAVerifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// MFAResendRequest defines the payload for the code resend endpoint.
type MFAResendRequest struct {
	Email string `json:"email" binding:"required"`
}

// FirstAccessRequest completes onboarding for a provisional account.
type FirstAccessRequest struct {
	Email            string  `json:"email" binding:"required"`
	Code             string  `json:"code" binding:"required"`
	NewPassword      string  `json:"new_password" binding:"required"`
	PIN              *string `json:"pin,omitempty"`
	SecurityQuestion *string `json:"security_question,omitempty"`
	SecurityAnswer   *string `json:"security_answer,omitempty"`
}

// UnlockRequest carries one of the two self-service unlock proofs.
type UnlockRequest struct {
	Email          string  `json:"email" binding:"required"`
	PIN            *string `json:"pin,omitempty"`
	SecurityAnswer *string `json:"security_answer,omitempty"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID          string               `json:"id"`
	Email       string               `json:"email"`
	Role        domain.AccountRole   `json:"role"`
	Status      domain.AccountStatus `json:"status"`
	FirstAccess bool                 `json:"first_access"`
	LastLoginAt *time.Time           `json:"last_login_at,omitempty"`
	// PasswordChangedAt lets clients surface password age; nil for
	// accounts still on their provisional credential.
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
}

func newAccountSummary(account *domain.Account) AccountSummary {
	return AccountSummary{
		ID:                account.ID,
		Email:             account.Email,
		Role:              account.Role,
		Status:            account.Status,
		FirstAccess:       account.MustChangePassword(),
		LastLoginAt:       account.LastLoginAt,
		PasswordChangedAt: account.PasswordChangedAt,
	}
}

// AuthResponse carries the artifacts of a completed login.
type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresIn int64          `json:"expires_in"`
	Account   AccountSummary `json:"account"`
}

// UserStatusResponse is the pre-login probe result.
type UserStatusResponse struct {
	Exists              bool    `json:"exists"`
	Blocked             bool    `json:"blocked"`
	FirstAccess         bool    `json:"first_access"`
	HasPIN              bool    `json:"has_pin"`
	HasSecurityQuestion bool    `json:"has_security_question"`
	SecurityQuestion    *string `json:"security_question,omitempty"`
}

// LogoutResponse reports how many sessions the logout tore down.
type LogoutResponse struct {
	SessionsRevoked int64 `json:"sessions_revoked"`
}

// PasswordStrengthRequest asks for the advisory strength estimate of a
// candidate password, used by interactive forms before submission.
type PasswordStrengthRequest struct {
	Password string `json:"password" binding:"required"`
}

// PasswordStrengthResponse carries the additive strength estimate.
type PasswordStrengthResponse struct {
	Score       int      `json:"score"`
	Label       string   `json:"label"`
	CriteriaMet []string `json:"criteria_met"`
}

// SessionSummary provides a compact view of an active session.
type SessionSummary struct {
	ID             string    `json:"id"`
	IP             *string   `json:"ip,omitempty"`
	UserAgent      *string   `json:"user_agent,omitempty"`
	City           *string   `json:"city,omitempty"`
	Country        *string   `json:"country,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func newSessionSummary(session domain.ActiveSession) SessionSummary {
	return SessionSummary{
		ID:             session.ID,
		IP:             session.IP,
		UserAgent:      session.UserAgent,
		City:           session.City,
		Country:        session.Country,
		LastActivityAt: session.LastActivityAt,
		CreatedAt:      session.CreatedAt,
	}
}

// AttemptSummary is one row of the login-attempt ledger.
type AttemptSummary struct {
	ID            string    `json:"id"`
	AccountID     *string   `json:"account_id,omitempty"`
	Email         string    `json:"email"`
	IP            *string   `json:"ip,omitempty"`
	Success       bool      `json:"success"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newAttemptSummary(attempt domain.LoginAttempt) AttemptSummary {
	summary := AttemptSummary{
		ID:        attempt.ID,
		AccountID: attempt.AccountID,
		Email:     attempt.Email,
		IP:        attempt.IP,
		Success:   attempt.Success,
		CreatedAt: attempt.CreatedAt,
	}
	if attempt.FailureReason != nil {
		reason := string(*attempt.FailureReason)
		summary.FailureReason = &reason
	}
	return summary
}

// AuditEntrySummary is one row of the audit trail.
type AuditEntrySummary struct {
	ID             string         `json:"id"`
	TableName      string         `json:"table_name"`
	RecordID       string         `json:"record_id"`
	Action         string         `json:"action"`
	ActorAccountID *string        `json:"actor_account_id,omitempty"`
	ActorEmail     *string        `json:"actor_email,omitempty"`
	IP             *string        `json:"ip,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func newAuditEntrySummary(entry domain.AuditEntry) AuditEntrySummary {
	return AuditEntrySummary{
		ID:             entry.ID,
		TableName:      entry.TableName,
		RecordID:       entry.RecordID,
		Action:         string(entry.Action),
		ActorAccountID: entry.ActorAccountID,
		ActorEmail:     entry.ActorEmail,
		IP:             entry.IP,
		Payload:        entry.Payload,
		CreatedAt:      entry.CreatedAt,
	}
}
