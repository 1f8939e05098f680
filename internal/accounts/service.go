package accounts

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/internal/twofactor"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/database"
	"github.com/opencircle/backend/pkg/queue"
	"github.com/opencircle/backend/pkg/storage"
	"github.com/opencircle/backend/pkg/utils"
)

const (
	otpValidity    = 15 * time.Minute
	otpMaxAttempts = 5
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	CreateUserAccount(ctx context.Context, a *models.Account, p *models.UserProfile) error
	CreateOrgAccount(ctx context.Context, a *models.Account, p *models.OrgProfile) error
	GetByEmailAndRole(ctx context.Context, email string, role models.Role) (*models.Account, error)
	GetByUUID(ctx context.Context, accountUUID string) (*models.Account, error)
	Delete(ctx context.Context, accountUUID string) (int64, error)
	UserProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.UserProfile, error)
	OrgProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.OrgProfile, error)
	ResourceRefByID(ctx context.Context, id int64) (*models.ResourceRef, error)
	SetEmailVerified(ctx context.Context, accountID int64, verified bool) error
	SetTwoFactor(ctx context.Context, accountID int64, enabled bool, totpSecret, backupCodes *string) error
	ReplaceOTP(ctx context.Context, otp *models.EmailOTP) error
	LatestOTP(ctx context.Context, accountID int64) (*models.EmailOTP, error)
	IncrementOTPAttempts(ctx context.Context, otpID int64) error
	DeleteOTP(ctx context.Context, otpID int64) error
}

// Sessions issues and revokes login sessions. The sessions service satisfies it.
type Sessions interface {
	Create(ctx context.Context, accountUUID, clientIP, userAgent string) (*models.Session, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, accountUUID string) (int64, error)
}

// Enqueuer delivers OTP mail jobs. *queue.Queue satisfies it.
type Enqueuer interface {
	EnqueueOTPEmail(ctx context.Context, payload queue.OTPEmailPayload) error
}

// Moderator screens caller-supplied bios and descriptions. *moderation.Gate
// satisfies it.
type Moderator interface {
	ModerateDefault(ctx context.Context, text string) moderation.Result
}

// Blobs stores profile images. *storage.S3 satisfies it; nil disables inline
// image upload at signup.
type Blobs interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// Resources records uploaded blobs. The resources repository satisfies it.
type Resources interface {
	Create(ctx context.Context, res *models.Resource) error
}

// ImageUpload is an inline profile picture or logo submitted with signup.
type ImageUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// SigninResult is what a successful signin returns: the account, its profile
// side, the joined picture/logo, and the fresh session.
type SigninResult struct {
	Account *models.Account     `json:"account"`
	User    *models.UserProfile `json:"user,omitempty"`
	Org     *models.OrgProfile  `json:"organization,omitempty"`
	Image   *models.ResourceRef `json:"image,omitempty"`
	Session *models.Session     `json:"-"`
}

// Service implements signup, signin, email verification and account deletion.
type Service struct {
	store     Store
	sessions  Sessions
	mail      Enqueuer
	mod       Moderator
	blobs     Blobs
	resources Resources
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an accounts service. blobs may be nil when object
// storage is not configured; signup then rejects inline images.
func NewService(store Store, sessions Sessions, mail Enqueuer, mod Moderator, blobs Blobs, resources Resources, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		sessions:  sessions,
		mail:      mail,
		mod:       mod,
		blobs:     blobs,
		resources: resources,
		logger:    logger,
		now:       time.Now,
	}
}

// newAccountUUID returns the external identity: 32 hex chars, no dashes.
func newAccountUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// moderateText runs the gate over an optional caller-supplied text and
// returns the text to persist, or a rejection error.
func (s *Service) moderateText(ctx context.Context, text *string) (*string, error) {
	if text == nil {
		return nil, nil
	}
	res := s.mod.ModerateDefault(ctx, *text)
	if !res.Approved {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, res.Reason)
	}
	out := res.ModeratedText
	return &out, nil
}

// storeImage uploads an inline signup image under the new account's
// directory and records the resource row. Returns the resource id.
func (s *Service) storeImage(ctx context.Context, ownerUUID string, img *ImageUpload) (*int64, error) {
	if img == nil {
		return nil, nil
	}
	if s.blobs == nil || s.resources == nil {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, "image uploads are not enabled")
	}
	ext := strings.ToLower(path.Ext(img.Filename))
	filename := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	key := storage.ResourceKey(ownerUUID, filename)
	publicURL, err := s.blobs.Upload(ctx, key, storage.ContentTypeForFilename(filename), img.Body, img.Size)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "store image")
	}
	res := &models.Resource{Directory: ownerUUID, Filename: filename, PublicURL: publicURL}
	if err := s.resources.Create(ctx, res); err != nil {
		// The object is orphaned; resource rows tolerate that.
		s.logger.Warn("record signup image", zap.Error(err), zap.String("key", key))
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "record image")
	}
	return &res.ID, nil
}

// SignupUser registers a user-role account with its profile and kicks off
// email verification. The bio passes the moderation gate; an inline image
// becomes a resource owned by the new account.
func (s *Service) SignupUser(ctx context.Context, email, password string, profile *models.UserProfile, image *ImageUpload) (*models.Account, error) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "hash password")
	}
	bio, err := s.moderateText(ctx, profile.Bio)
	if err != nil {
		return nil, err
	}
	profile.Bio = bio
	a := &models.Account{
		UUID:     newAccountUUID(),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: hashed,
		Role:     models.RoleUser,
	}
	picture, err := s.storeImage(ctx, a.UUID, image)
	if err != nil {
		return nil, err
	}
	profile.ProfilePicture = picture
	if err := s.store.CreateUserAccount(ctx, a, profile); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.WithDetail(apperrors.ErrConflict, "email already registered")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create account")
	}
	s.sendOTP(ctx, a)
	return a, nil
}

// SignupOrganization registers an organization-role account with its profile
// and kicks off email verification. The description passes the moderation
// gate; an inline logo becomes a resource owned by the new account.
func (s *Service) SignupOrganization(ctx context.Context, email, password string, profile *models.OrgProfile, image *ImageUpload) (*models.Account, error) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "hash password")
	}
	description, err := s.moderateText(ctx, profile.Description)
	if err != nil {
		return nil, err
	}
	profile.Description = description
	a := &models.Account{
		UUID:     newAccountUUID(),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: hashed,
		Role:     models.RoleOrganization,
	}
	logo, err := s.storeImage(ctx, a.UUID, image)
	if err != nil {
		return nil, err
	}
	profile.Logo = logo
	if err := s.store.CreateOrgAccount(ctx, a, profile); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.WithDetail(apperrors.ErrConflict, "email already registered")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create account")
	}
	s.sendOTP(ctx, a)
	return a, nil
}

// Signin authenticates an account by email, password and role, enforcing the
// two-factor gate when enabled, and issues a session.
func (s *Service) Signin(ctx context.Context, role models.Role, email, password, twoFactorCode, clientIP, userAgent string) (*SigninResult, error) {
	a, err := s.store.GetByEmailAndRole(ctx, strings.ToLower(strings.TrimSpace(email)), role)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrUnauthenticated, "invalid credentials")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load account")
	}
	if !utils.CheckPassword(password, a.Password) {
		return nil, apperrors.WithDetail(apperrors.ErrUnauthenticated, "invalid credentials")
	}
	if a.TwoFactorEnabled {
		if err := s.checkTwoFactor(ctx, a, twoFactorCode); err != nil {
			return nil, err
		}
	}

	sess, err := s.sessions.Create(ctx, a.UUID, clientIP, userAgent)
	if err != nil {
		return nil, err
	}
	res := &SigninResult{Account: a, Session: sess}
	s.attachProfile(ctx, res)
	return res, nil
}

// checkTwoFactor accepts a current TOTP code or consumes one backup code.
func (s *Service) checkTwoFactor(ctx context.Context, a *models.Account, code string) error {
	if code == "" {
		return apperrors.WithDetail(apperrors.ErrUnauthenticated, "two-factor code required")
	}
	if a.TOTPSecret != nil && twofactor.VerifyTOTP(*a.TOTPSecret, code) {
		return nil
	}
	if a.BackupCodes != nil {
		remaining, ok := twofactor.ConsumeBackupCode(*a.BackupCodes, code)
		if ok {
			if err := s.store.SetTwoFactor(ctx, a.ID, true, a.TOTPSecret, &remaining); err != nil {
				return apperrors.Wrap(apperrors.ErrPersistence, "consume backup code")
			}
			return nil
		}
	}
	return apperrors.WithDetail(apperrors.ErrUnauthenticated, "invalid two-factor code")
}

func (s *Service) attachProfile(ctx context.Context, res *SigninResult) {
	switch res.Account.Role {
	case models.RoleUser:
		p, err := s.store.UserProfileByAccountUUID(ctx, res.Account.UUID)
		if err != nil {
			s.logger.Warn("load user profile", zap.Error(err))
			return
		}
		res.User = p
		if p.ProfilePicture != nil {
			res.Image, _ = s.store.ResourceRefByID(ctx, *p.ProfilePicture)
		}
	case models.RoleOrganization:
		p, err := s.store.OrgProfileByAccountUUID(ctx, res.Account.UUID)
		if err != nil {
			s.logger.Warn("load organization profile", zap.Error(err))
			return
		}
		res.Org = p
		if p.Logo != nil {
			res.Image, _ = s.store.ResourceRefByID(ctx, *p.Logo)
		}
	}
}

// Me returns the caller's account with its profile side attached.
func (s *Service) Me(ctx context.Context, accountUUID string) (*SigninResult, error) {
	a, err := s.store.GetByUUID(ctx, accountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "account not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load account")
	}
	res := &SigninResult{Account: a}
	s.attachProfile(ctx, res)
	return res, nil
}

// Logout revokes the presented session.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// DeleteAccount removes the caller's account and revokes every live session
// for it; owned content cascades in the store.
func (s *Service) DeleteAccount(ctx context.Context, accountUUID string) error {
	n, err := s.store.Delete(ctx, accountUUID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "delete account")
	}
	if n == 0 {
		return apperrors.WithDetail(apperrors.ErrNotFound, "account not found")
	}
	revoked, err := s.sessions.RevokeAll(ctx, accountUUID)
	if err != nil {
		s.logger.Warn("revoke sessions for deleted account", zap.Error(err), zap.String("account_uuid", accountUUID))
	} else if revoked > 0 {
		s.logger.Info("revoked sessions for deleted account", zap.Int64("count", revoked), zap.String("account_uuid", accountUUID))
	}
	return nil
}

// RequestEmailOTP issues a fresh verification PIN, replacing any outstanding
// one, and queues the delivery mail.
func (s *Service) RequestEmailOTP(ctx context.Context, accountUUID string) error {
	a, err := s.store.GetByUUID(ctx, accountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.WithDetail(apperrors.ErrNotFound, "account not found")
		}
		return apperrors.Wrap(apperrors.ErrPersistence, "load account")
	}
	if a.EmailVerified {
		return apperrors.WithDetail(apperrors.ErrConflict, "email already verified")
	}
	return s.sendOTP(ctx, a)
}

func (s *Service) sendOTP(ctx context.Context, a *models.Account) error {
	code, err := otpCode()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "generate otp")
	}
	otp := &models.EmailOTP{
		AccountID: a.ID,
		Code:      code,
		ExpiresAt: s.now().UTC().Add(otpValidity),
	}
	if err := s.store.ReplaceOTP(ctx, otp); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "store otp")
	}
	// Delivery is asynchronous; the code row is already committed.
	if err := s.mail.EnqueueOTPEmail(ctx, queue.OTPEmailPayload{
		AccountID: a.ID,
		Email:     a.Email,
		Code:      code,
	}); err != nil {
		s.logger.Warn("enqueue otp email", zap.Error(err))
	}
	return nil
}

// VerifyEmailOTP checks the submitted PIN against the outstanding one and
// marks the email verified on success.
func (s *Service) VerifyEmailOTP(ctx context.Context, accountUUID, code string) error {
	a, err := s.store.GetByUUID(ctx, accountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.WithDetail(apperrors.ErrNotFound, "account not found")
		}
		return apperrors.Wrap(apperrors.ErrPersistence, "load account")
	}
	if a.EmailVerified {
		return apperrors.WithDetail(apperrors.ErrConflict, "email already verified")
	}
	otp, err := s.store.LatestOTP(ctx, a.ID)
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.WithDetail(apperrors.ErrNotFound, "no verification code requested")
		}
		return apperrors.Wrap(apperrors.ErrPersistence, "load otp")
	}
	if otp.ExpiresAt.Before(s.now().UTC()) {
		return apperrors.WithDetail(apperrors.ErrExpired, "verification code expired")
	}
	if otp.Attempts >= otpMaxAttempts {
		return apperrors.WithDetail(apperrors.ErrValidationRejected, "too many attempts, request a new code")
	}
	if otp.Code != code {
		if err := s.store.IncrementOTPAttempts(ctx, otp.ID); err != nil {
			s.logger.Warn("increment otp attempts", zap.Error(err))
		}
		return apperrors.WithDetail(apperrors.ErrValidationRejected, "incorrect verification code")
	}
	if err := s.store.SetEmailVerified(ctx, a.ID, true); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "mark email verified")
	}
	if err := s.store.DeleteOTP(ctx, otp.ID); err != nil {
		s.logger.Warn("delete consumed otp", zap.Error(err))
	}
	return nil
}

// otpCode returns a 6-digit zero-padded PIN from crypto/rand.
func otpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := n.String()
	for len(code) < 6 {
		code = "0" + code
	}
	return code, nil
}
