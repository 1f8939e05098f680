package twofactor

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/database"
	"github.com/opencircle/backend/pkg/response"
)

// Accounts is the account surface the handlers need. The accounts repository
// satisfies it.
type Accounts interface {
	GetByUUID(ctx context.Context, accountUUID string) (*models.Account, error)
	SetTwoFactor(ctx context.Context, accountID int64, enabled bool, totpSecret, backupCodes *string) error
}

// Handler serves the two-factor management endpoints.
type Handler struct {
	accounts Accounts
	issuer   string
	logger   *zap.Logger
}

// NewHandler creates a two-factor handler. The issuer names the app in
// authenticator entries.
func NewHandler(accounts Accounts, issuer string, logger *zap.Logger) *Handler {
	return &Handler{accounts: accounts, issuer: issuer, logger: logger}
}

// RegisterRoutes mounts the 2FA endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/2fa")
	g.GET("/status", h.Status)
	g.POST("/setup", h.Setup)
	g.POST("/enable", h.Enable)
	g.POST("/disable", h.Disable)
	g.POST("/backup-codes/regenerate", h.RegenerateBackupCodes)
}

func (h *Handler) account(c *gin.Context) (*models.Account, bool) {
	a, err := h.accounts.GetByUUID(c.Request.Context(), middleware.AccountUUID(c))
	if err != nil {
		if database.IsNoRows(err) {
			response.NotFound(c, "account not found")
		} else {
			h.logger.Error("load account", zap.Error(err))
			response.Internal(c, "failed to load account")
		}
		return nil, false
	}
	return a, true
}

// Status reports whether two-factor is enabled for the caller.
func (h *Handler) Status(c *gin.Context) {
	a, ok := h.account(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"two_factor_enabled": a.TwoFactorEnabled})
}

// Setup provisions a TOTP secret and returns the otpauth:// URI. The secret
// stays inert until Enable confirms the authenticator works.
func (h *Handler) Setup(c *gin.Context) {
	a, ok := h.account(c)
	if !ok {
		return
	}
	if a.TwoFactorEnabled {
		response.Conflict(c, "two-factor is already enabled")
		return
	}
	key, err := GenerateSecret(h.issuer, a.Email)
	if err != nil {
		h.logger.Error("generate totp secret", zap.Error(err))
		response.Internal(c, "failed to generate secret")
		return
	}
	secret := key.Secret()
	if err := h.accounts.SetTwoFactor(c.Request.Context(), a.ID, false, &secret, nil); err != nil {
		h.logger.Error("store totp secret", zap.Error(err))
		response.Internal(c, "failed to store secret")
		return
	}
	response.OK(c, gin.H{
		"secret":      secret,
		"otpauth_url": key.URL(),
	})
}

type codeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Enable confirms the provisioned secret with a live code, turns two-factor
// on, and returns the backup codes exactly once.
func (h *Handler) Enable(c *gin.Context) {
	a, ok := h.account(c)
	if !ok {
		return
	}
	if a.TwoFactorEnabled {
		response.Conflict(c, "two-factor is already enabled")
		return
	}
	if a.TOTPSecret == nil {
		response.Error(c, apperrors.WithDetail(apperrors.ErrInvalidStateTransition, "run setup before enabling"))
		return
	}
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "code is required")
		return
	}
	if !VerifyTOTP(*a.TOTPSecret, req.Code) {
		response.Unauthorized(c, "invalid two-factor code")
		return
	}
	codes, err := GenerateBackupCodes()
	if err != nil {
		h.logger.Error("generate backup codes", zap.Error(err))
		response.Internal(c, "failed to generate backup codes")
		return
	}
	encoded, err := EncodeBackupCodes(codes)
	if err != nil {
		response.Internal(c, "failed to encode backup codes")
		return
	}
	if err := h.accounts.SetTwoFactor(c.Request.Context(), a.ID, true, a.TOTPSecret, &encoded); err != nil {
		h.logger.Error("enable two-factor", zap.Error(err))
		response.Internal(c, "failed to enable two-factor")
		return
	}
	response.OK(c, gin.H{
		"two_factor_enabled": true,
		"backup_codes":       codes,
	})
}

// Disable turns two-factor off after verifying a current code or backup code,
// and discards the secret and remaining backup codes.
func (h *Handler) Disable(c *gin.Context) {
	a, ok := h.account(c)
	if !ok {
		return
	}
	if !a.TwoFactorEnabled {
		response.Conflict(c, "two-factor is not enabled")
		return
	}
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "code is required")
		return
	}
	valid := a.TOTPSecret != nil && VerifyTOTP(*a.TOTPSecret, req.Code)
	if !valid && a.BackupCodes != nil {
		_, valid = ConsumeBackupCode(*a.BackupCodes, req.Code)
	}
	if !valid {
		response.Unauthorized(c, "invalid two-factor code")
		return
	}
	if err := h.accounts.SetTwoFactor(c.Request.Context(), a.ID, false, nil, nil); err != nil {
		h.logger.Error("disable two-factor", zap.Error(err))
		response.Internal(c, "failed to disable two-factor")
		return
	}
	response.OK(c, gin.H{"two_factor_enabled": false})
}

// RegenerateBackupCodes invalidates the old backup codes and returns a fresh
// set, gated by a live TOTP code.
func (h *Handler) RegenerateBackupCodes(c *gin.Context) {
	a, ok := h.account(c)
	if !ok {
		return
	}
	if !a.TwoFactorEnabled || a.TOTPSecret == nil {
		response.Conflict(c, "two-factor is not enabled")
		return
	}
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "code is required")
		return
	}
	if !VerifyTOTP(*a.TOTPSecret, req.Code) {
		response.Unauthorized(c, "invalid two-factor code")
		return
	}
	codes, err := GenerateBackupCodes()
	if err != nil {
		h.logger.Error("generate backup codes", zap.Error(err))
		response.Internal(c, "failed to generate backup codes")
		return
	}
	encoded, err := EncodeBackupCodes(codes)
	if err != nil {
		response.Internal(c, "failed to encode backup codes")
		return
	}
	if err := h.accounts.SetTwoFactor(c.Request.Context(), a.ID, true, a.TOTPSecret, &encoded); err != nil {
		h.logger.Error("store backup codes", zap.Error(err))
		response.Internal(c, "failed to store backup codes")
		return
	}
	response.OK(c, gin.H{"backup_codes": codes})
}
