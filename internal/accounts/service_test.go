package accounts

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/internal/twofactor"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/queue"
	"github.com/opencircle/backend/pkg/utils"
)

type fakeStore struct {
	nextID       int64
	accounts     map[string]*models.Account     // by uuid
	otps         map[int64]*models.EmailOTP     // by account id
	userProfiles map[string]*models.UserProfile // by account uuid, as persisted
	orgProfiles  map[string]*models.OrgProfile
}

func newFakeAccountStore() *fakeStore {
	return &fakeStore{
		nextID:       1,
		accounts:     make(map[string]*models.Account),
		otps:         make(map[int64]*models.EmailOTP),
		userProfiles: make(map[string]*models.UserProfile),
		orgProfiles:  make(map[string]*models.OrgProfile),
	}
}

func (f *fakeStore) byEmail(email string, role models.Role) *models.Account {
	for _, a := range f.accounts {
		if a.Email == email && a.Role == role {
			return a
		}
	}
	return nil
}

func (f *fakeStore) byID(id int64) *models.Account {
	for _, a := range f.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (f *fakeStore) CreateUserAccount(_ context.Context, a *models.Account, p *models.UserProfile) error {
	if f.byEmail(a.Email, a.Role) != nil {
		return &pgconn.PgError{Code: "23505"}
	}
	a.ID = f.nextID
	f.nextID++
	f.accounts[a.UUID] = a
	cp := *p
	f.userProfiles[a.UUID] = &cp
	return nil
}

func (f *fakeStore) CreateOrgAccount(_ context.Context, a *models.Account, p *models.OrgProfile) error {
	if f.byEmail(a.Email, a.Role) != nil {
		return &pgconn.PgError{Code: "23505"}
	}
	a.ID = f.nextID
	f.nextID++
	f.accounts[a.UUID] = a
	cp := *p
	f.orgProfiles[a.UUID] = &cp
	return nil
}

func (f *fakeStore) GetByEmailAndRole(_ context.Context, email string, role models.Role) (*models.Account, error) {
	if a := f.byEmail(email, role); a != nil {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetByUUID(_ context.Context, accountUUID string) (*models.Account, error) {
	a, ok := f.accounts[accountUUID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeStore) Delete(_ context.Context, accountUUID string) (int64, error) {
	if _, ok := f.accounts[accountUUID]; !ok {
		return 0, nil
	}
	delete(f.accounts, accountUUID)
	return 1, nil
}

func (f *fakeStore) UserProfileByAccountUUID(context.Context, string) (*models.UserProfile, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) OrgProfileByAccountUUID(context.Context, string) (*models.OrgProfile, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) ResourceRefByID(context.Context, int64) (*models.ResourceRef, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) SetEmailVerified(_ context.Context, accountID int64, verified bool) error {
	a := f.byID(accountID)
	if a == nil {
		return pgx.ErrNoRows
	}
	a.EmailVerified = verified
	return nil
}

func (f *fakeStore) SetTwoFactor(_ context.Context, accountID int64, enabled bool, totpSecret, backupCodes *string) error {
	a := f.byID(accountID)
	if a == nil {
		return pgx.ErrNoRows
	}
	a.TwoFactorEnabled = enabled
	a.TOTPSecret = totpSecret
	a.BackupCodes = backupCodes
	return nil
}

func (f *fakeStore) ReplaceOTP(_ context.Context, otp *models.EmailOTP) error {
	otp.ID = f.nextID
	f.nextID++
	f.otps[otp.AccountID] = otp
	return nil
}

func (f *fakeStore) LatestOTP(_ context.Context, accountID int64) (*models.EmailOTP, error) {
	otp, ok := f.otps[accountID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return otp, nil
}

func (f *fakeStore) IncrementOTPAttempts(_ context.Context, otpID int64) error {
	for _, otp := range f.otps {
		if otp.ID == otpID {
			otp.Attempts++
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeStore) DeleteOTP(_ context.Context, otpID int64) error {
	for accountID, otp := range f.otps {
		if otp.ID == otpID {
			delete(f.otps, accountID)
			return nil
		}
	}
	return nil
}

type fakeSessions struct {
	created    []string // account uuids
	revoked    []string // tokens
	revokedAll []string // account uuids
}

func (f *fakeSessions) Create(_ context.Context, accountUUID, _, _ string) (*models.Session, error) {
	f.created = append(f.created, accountUUID)
	return &models.Session{AccountUUID: accountUUID, Token: "token-" + accountUUID}, nil
}

func (f *fakeSessions) Revoke(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return nil
}

func (f *fakeSessions) RevokeAll(_ context.Context, accountUUID string) (int64, error) {
	f.revokedAll = append(f.revokedAll, accountUUID)
	return 1, nil
}

type fakeMail struct {
	sent []queue.OTPEmailPayload
}

func (f *fakeMail) EnqueueOTPEmail(_ context.Context, payload queue.OTPEmailPayload) error {
	f.sent = append(f.sent, payload)
	return nil
}

type fakeBlobs struct {
	keys []string
}

func (f *fakeBlobs) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type fakeResources struct {
	nextID  int64
	created []*models.Resource
}

func (f *fakeResources) Create(_ context.Context, res *models.Resource) error {
	f.nextID++
	res.ID = f.nextID
	f.created = append(f.created, res)
	return nil
}

type fixture struct {
	store    *fakeStore
	sessions *fakeSessions
	mail     *fakeMail
	svc      *Service
}

func rejectingGate() *moderation.Gate {
	return moderation.NewGate(moderation.NewLexiconScorer(), 0.7, false, nil)
}

func newFixture() fixture {
	store := newFakeAccountStore()
	sessions := &fakeSessions{}
	mail := &fakeMail{}
	svc := NewService(store, sessions, mail, rejectingGate(), nil, nil, nil)
	return fixture{store: store, sessions: sessions, mail: mail, svc: svc}
}

func TestSignupUserSendsOTP(t *testing.T) {
	fx := newFixture()
	a, err := fx.svc.SignupUser(context.Background(), " Ada@Example.COM ", "hunter2hunter2", &models.UserProfile{FirstName: "Ada", LastName: "Lovelace"}, nil)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", a.Email, "email is lowercased and trimmed")
	require.Len(t, a.UUID, 32)
	require.NotContains(t, a.UUID, "-")
	require.NotEqual(t, "hunter2hunter2", a.Password, "password is stored hashed")

	require.Len(t, fx.mail.sent, 1)
	require.Equal(t, "ada@example.com", fx.mail.sent[0].Email)
	require.Len(t, fx.mail.sent[0].Code, 6)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	_, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)
	_, err = fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSigninHappyPath(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	a, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)

	res, err := fx.svc.Signin(ctx, models.RoleUser, "ada@example.com", "hunter2hunter2", "", "10.0.0.1", "go-test")
	require.NoError(t, err)
	require.Equal(t, a.UUID, res.Account.UUID)
	require.NotNil(t, res.Session)
	require.Equal(t, []string{a.UUID}, fx.sessions.created)
}

func TestSigninWrongPassword(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	_, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)

	_, err = fx.svc.Signin(ctx, models.RoleUser, "ada@example.com", "wrong-password", "", "", "")
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	require.Empty(t, fx.sessions.created)
}

func TestSigninWrongRole(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	_, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)

	_, err = fx.svc.Signin(ctx, models.RoleOrganization, "ada@example.com", "hunter2hunter2", "", "", "")
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated, "role is part of the credential")
}

func signupWithTwoFactor(t *testing.T, fx fixture) (*models.Account, string) {
	t.Helper()
	ctx := context.Background()
	a, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)

	key, err := twofactor.GenerateSecret("OpenCircle", a.Email)
	require.NoError(t, err)
	secret := key.Secret()
	encoded, err := twofactor.EncodeBackupCodes([]string{"AAAA2222", "BBBB3333"})
	require.NoError(t, err)
	require.NoError(t, fx.store.SetTwoFactor(ctx, a.ID, true, &secret, &encoded))
	return a, secret
}

func TestSigninTwoFactorRequired(t *testing.T) {
	fx := newFixture()
	signupWithTwoFactor(t, fx)

	_, err := fx.svc.Signin(context.Background(), models.RoleUser, "ada@example.com", "hunter2hunter2", "", "", "")
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestSigninWithTOTPCode(t *testing.T) {
	fx := newFixture()
	_, secret := signupWithTwoFactor(t, fx)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	res, err := fx.svc.Signin(context.Background(), models.RoleUser, "ada@example.com", "hunter2hunter2", code, "", "")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
}

func TestSigninWithBackupCodeConsumesIt(t *testing.T) {
	fx := newFixture()
	a, _ := signupWithTwoFactor(t, fx)
	ctx := context.Background()

	_, err := fx.svc.Signin(ctx, models.RoleUser, "ada@example.com", "hunter2hunter2", "AAAA2222", "", "")
	require.NoError(t, err)
	require.NotContains(t, *a.BackupCodes, "AAAA2222", "a used backup code is removed")

	_, err = fx.svc.Signin(ctx, models.RoleUser, "ada@example.com", "hunter2hunter2", "AAAA2222", "", "")
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated, "backup codes are single-use")
}

func TestVerifyEmailOTP(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	a, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)
	code := fx.mail.sent[0].Code

	require.NoError(t, fx.svc.VerifyEmailOTP(ctx, a.UUID, code))
	require.True(t, fx.store.accounts[a.UUID].EmailVerified)
	require.NotContains(t, fx.store.otps, a.ID, "a consumed code is deleted")

	// Re-requesting after verification conflicts.
	require.ErrorIs(t, fx.svc.RequestEmailOTP(ctx, a.UUID), apperrors.ErrConflict)
}

func TestVerifyEmailOTPWrongCode(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	a, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)

	err = fx.svc.VerifyEmailOTP(ctx, a.UUID, "000000x")
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	require.Equal(t, 1, fx.store.otps[a.ID].Attempts)
	require.False(t, fx.store.accounts[a.UUID].EmailVerified)
}

func TestVerifyEmailOTPExpired(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	a, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)
	code := fx.mail.sent[0].Code

	fx.svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	require.ErrorIs(t, fx.svc.VerifyEmailOTP(ctx, a.UUID, code), apperrors.ErrExpired)
}

func TestVerifyEmailOTPTooManyAttempts(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	a, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)
	code := fx.mail.sent[0].Code

	for i := 0; i < 5; i++ {
		err = fx.svc.VerifyEmailOTP(ctx, a.UUID, "bad-code")
		require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	}
	// Even the right code is refused once the attempt budget is spent.
	require.ErrorIs(t, fx.svc.VerifyEmailOTP(ctx, a.UUID, code), apperrors.ErrValidationRejected)
}

func TestRequestEmailOTPReplacesOutstanding(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	a, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)
	first := fx.store.otps[a.ID]

	require.NoError(t, fx.svc.RequestEmailOTP(ctx, a.UUID))
	second := fx.store.otps[a.ID]
	require.NotEqual(t, first.ID, second.ID)

	// Only the fresh code verifies.
	if first.Code != second.Code {
		require.ErrorIs(t, fx.svc.VerifyEmailOTP(ctx, a.UUID, first.Code), apperrors.ErrValidationRejected)
	}
	require.NoError(t, fx.svc.VerifyEmailOTP(ctx, a.UUID, second.Code))
}

func TestDeleteAccount(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	a, err := fx.svc.SignupUser(ctx, "ada@example.com", "hunter2hunter2", &models.UserProfile{}, nil)
	require.NoError(t, err)

	require.NoError(t, fx.svc.DeleteAccount(ctx, a.UUID))
	require.Equal(t, []string{a.UUID}, fx.sessions.revokedAll, "deleting the account signs out every device")
	require.ErrorIs(t, fx.svc.DeleteAccount(ctx, a.UUID), apperrors.ErrNotFound)
}

func TestSignupUserProfaneBioRejected(t *testing.T) {
	fx := newFixture()
	bio := "this is shit and I will kill you"
	_, err := fx.svc.SignupUser(context.Background(), "ada@example.com", "hunter2hunter2",
		&models.UserProfile{FirstName: "Ada", LastName: "Lovelace", Bio: &bio}, nil)
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	require.Empty(t, fx.store.accounts, "rejected signup creates nothing")
	require.Empty(t, fx.mail.sent)
}

func TestSignupOrganizationProfaneDescriptionRejected(t *testing.T) {
	fx := newFixture()
	description := "we are a shit club"
	_, err := fx.svc.SignupOrganization(context.Background(), "club@example.com", "hunter2hunter2",
		&models.OrgProfile{Name: "Club", Category: "social", Description: &description}, nil)
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	require.Empty(t, fx.store.accounts)
}

func TestSignupUserBioCensoredWhenAutoCensor(t *testing.T) {
	store := newFakeAccountStore()
	gate := moderation.NewGate(moderation.NewLexiconScorer(), 0.7, true, nil)
	svc := NewService(store, &fakeSessions{}, &fakeMail{}, gate, nil, nil, nil)

	bio := "my last job was shit"
	a, err := svc.SignupUser(context.Background(), "ada@example.com", "hunter2hunter2",
		&models.UserProfile{FirstName: "Ada", LastName: "Lovelace", Bio: &bio}, nil)
	require.NoError(t, err)

	persisted := store.userProfiles[a.UUID]
	require.NotNil(t, persisted.Bio)
	require.NotContains(t, *persisted.Bio, "shit", "the persisted bio is the censored text")
	require.NotEqual(t, "my last job was shit", *persisted.Bio)
}

func TestSignupUserStoresInlineImage(t *testing.T) {
	store := newFakeAccountStore()
	blobs := &fakeBlobs{}
	resources := &fakeResources{}
	svc := NewService(store, &fakeSessions{}, &fakeMail{}, rejectingGate(), blobs, resources, nil)

	image := &ImageUpload{Filename: "Avatar.PNG", Size: 4, Body: strings.NewReader("data")}
	a, err := svc.SignupUser(context.Background(), "ada@example.com", "hunter2hunter2",
		&models.UserProfile{FirstName: "Ada", LastName: "Lovelace"}, image)
	require.NoError(t, err)

	require.Len(t, blobs.keys, 1)
	require.True(t, strings.HasPrefix(blobs.keys[0], a.UUID+"/"), "the object lives under the new account's directory")
	require.True(t, strings.HasSuffix(blobs.keys[0], ".png"))

	require.Len(t, resources.created, 1)
	require.Equal(t, a.UUID, resources.created[0].Directory)

	persisted := store.userProfiles[a.UUID]
	require.NotNil(t, persisted.ProfilePicture)
	require.Equal(t, resources.created[0].ID, *persisted.ProfilePicture)
}

func TestSignupImageWithoutObjectStorage(t *testing.T) {
	fx := newFixture() // nil blobs: object storage not configured
	image := &ImageUpload{Filename: "avatar.png", Size: 4, Body: strings.NewReader("data")}
	_, err := fx.svc.SignupUser(context.Background(), "ada@example.com", "hunter2hunter2",
		&models.UserProfile{FirstName: "Ada", LastName: "Lovelace"}, image)
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	require.Empty(t, fx.store.accounts)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := utils.HashPassword("hunter2hunter2")
	require.NoError(t, err)
	require.True(t, utils.CheckPassword("hunter2hunter2", hash))
	require.False(t, utils.CheckPassword("wrong", hash))
}
