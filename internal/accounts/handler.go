package accounts

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/response"
	"github.com/opencircle/backend/pkg/storage"
)

// Handler serves signup, signin and account management endpoints.
type Handler struct {
	svc          *Service
	cookieSecure bool
	logger       *zap.Logger
}

// NewHandler creates an accounts handler.
func NewHandler(svc *Service, cookieSecure bool, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, cookieSecure: cookieSecure, logger: logger}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/user_signup", h.UserSignup)
	rg.POST("/organization_signup", h.OrganizationSignup)
	rg.POST("/user_signin", h.UserSignin)
	rg.POST("/organization_signin", h.OrganizationSignin)
}

// RegisterRoutes mounts the authenticated account endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/logout", h.Logout)
	g := rg.Group("/account")
	g.GET("/me", h.Me)
	g.DELETE("", h.DeleteAccount)
	g.POST("/email/otp", h.RequestEmailOTP)
	g.POST("/email/verify", h.VerifyEmailOTP)
}

type userSignupRequest struct {
	Email     string  `form:"email" binding:"required,email"`
	Password  string  `form:"password" binding:"required,min=8"`
	FirstName string  `form:"first_name" binding:"required"`
	LastName  string  `form:"last_name" binding:"required"`
	Bio       *string `form:"bio"`
}

// formImage pulls an optional multipart image out of the request and
// validates its size and type. The second return is the open file to close
// after the upload; ok is false when a response has already been written.
func formImage(c *gin.Context, field string) (img *ImageUpload, closer io.Closer, ok bool) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, nil, true
	}
	if file.Size > storage.MaxResourceFileSize {
		response.BadRequest(c, field+" exceeds the 10MB limit")
		return nil, nil, false
	}
	if !storage.ValidateImageFileType(file.Header.Get("Content-Type"), file.Filename) {
		response.BadRequest(c, "unsupported "+field+" file type")
		return nil, nil, false
	}
	src, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return nil, nil, false
	}
	return &ImageUpload{Filename: file.Filename, Size: file.Size, Body: src}, src, true
}

// UserSignup registers a user account with its profile. The request is
// multipart form data with an optional profile_picture file.
func (h *Handler) UserSignup(c *gin.Context) {
	var req userSignupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "email, password, first_name and last_name are required")
		return
	}
	image, closer, ok := formImage(c, "profile_picture")
	if !ok {
		return
	}
	if closer != nil {
		defer closer.Close()
	}
	profile := &models.UserProfile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	}
	a, err := h.svc.SignupUser(c.Request.Context(), req.Email, req.Password, profile, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"account": a, "user": profile})
}

type orgSignupRequest struct {
	Email       string  `form:"email" binding:"required,email"`
	Password    string  `form:"password" binding:"required,min=8"`
	Name        string  `form:"name" binding:"required"`
	Category    string  `form:"category" binding:"required"`
	Description *string `form:"description"`
}

// OrganizationSignup registers an organization account with its profile. The
// request is multipart form data with an optional logo file.
func (h *Handler) OrganizationSignup(c *gin.Context) {
	var req orgSignupRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "email, password, name and category are required")
		return
	}
	image, closer, ok := formImage(c, "logo")
	if !ok {
		return
	}
	if closer != nil {
		defer closer.Close()
	}
	profile := &models.OrgProfile{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
	}
	a, err := h.svc.SignupOrganization(c.Request.Context(), req.Email, req.Password, profile, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"account": a, "organization": profile})
}

type signinRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
	TwoFactorCode string `json:"two_factor_code"`
}

func (h *Handler) signin(c *gin.Context, role models.Role) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and password are required")
		return
	}
	res, err := h.svc.Signin(c.Request.Context(), role, req.Email, req.Password,
		req.TwoFactorCode, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSessionCookie(c, res.Session)
	response.OK(c, res)
}

// UserSignin authenticates a user account and sets the session cookie.
func (h *Handler) UserSignin(c *gin.Context) {
	h.signin(c, models.RoleUser)
}

// OrganizationSignin authenticates an organization account and sets the
// session cookie.
func (h *Handler) OrganizationSignin(c *gin.Context) {
	h.signin(c, models.RoleOrganization)
}

func (h *Handler) setSessionCookie(c *gin.Context, sess *models.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, sess.Token, maxAge, "/", "", h.cookieSecure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cookieSecure, true)
}

// Logout revokes the presented session and clears the cookie. Revoking an
// already-revoked session reports not found.
func (h *Handler) Logout(c *gin.Context) {
	token, err := c.Cookie(middleware.SessionCookie)
	if err != nil || token == "" {
		response.Unauthorized(c, "session token missing")
		return
	}
	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	h.clearSessionCookie(c)
	response.OK(c, gin.H{"message": "signed out"})
}

// Me returns the caller's account and profile.
func (h *Handler) Me(c *gin.Context) {
	res, err := h.svc.Me(c.Request.Context(), middleware.AccountUUID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// DeleteAccount removes the caller's account and clears the cookie.
func (h *Handler) DeleteAccount(c *gin.Context) {
	if err := h.svc.DeleteAccount(c.Request.Context(), middleware.AccountUUID(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.clearSessionCookie(c)
	response.OK(c, gin.H{"message": "account deleted"})
}

// RequestEmailOTP issues a fresh email verification code.
func (h *Handler) RequestEmailOTP(c *gin.Context) {
	if err := h.svc.RequestEmailOTP(c.Request.Context(), middleware.AccountUUID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "verification code sent"})
}

type verifyOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyEmailOTP checks the submitted verification code.
func (h *Handler) VerifyEmailOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "code is required")
		return
	}
	if err := h.svc.VerifyEmailOTP(c.Request.Context(), middleware.AccountUUID(c), req.Code); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "email verified"})
}
