package usecase

import (
	"testing"
	"time"

	authdomain "cyra-kanban/internal/auth/domain"
	authdto "cyra-kanban/internal/auth/dto"
	"cyra-kanban/internal/auth/repository"
	"cyra-kanban/internal/testutil"
	"cyra-kanban/pkg/config"
	"cyra-kanban/pkg/errutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newAuthUsecase(t *testing.T) (*authUsecase, repository.FCMTokenRepository) {
	t.Helper()
	db := testutil.NewTestDB(t, &authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{})
	fcmRepo := repository.NewFCMTokenRepository(db)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 24 * time.Hour,
	}
	uc := NewAuthUsecase(repository.NewUserRepository(db), fcmRepo, cfg).(*authUsecase)
	return uc, fcmRepo
}

func register(t *testing.T, uc AuthUsecase) *authdto.TokenResponse {
	t.Helper()
	resp, err := uc.Register(&authdto.RegisterRequest{Email: "Victor@Example.com", Password: "hunter22", Name: "Victor"})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	uc, _ := newAuthUsecase(t)
	reg := register(t, uc)
	require.Equal(t, "victor@example.com", reg.User.Email)
	require.NotEmpty(t, reg.AccessToken)

	resp, err := uc.Login(&authdto.LoginRequest{Email: "victor@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, resp.User.ID)

	user, err := uc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, user.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc, _ := newAuthUsecase(t)
	register(t, uc)

	_, err := uc.Register(&authdto.RegisterRequest{Email: "victor@example.com", Password: "another1", Name: "V"})
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))
}

func TestLoginWrongPassword(t *testing.T) {
	uc, _ := newAuthUsecase(t)
	register(t, uc)

	_, err := uc.Login(&authdto.LoginRequest{Email: "victor@example.com", Password: "wrong-one"})
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))

	_, err = uc.Login(&authdto.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))
}

func TestRefreshRotatesSession(t *testing.T) {
	uc, _ := newAuthUsecase(t)
	reg := register(t, uc)

	next, err := uc.RefreshToken(reg.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, reg.RefreshToken, next.RefreshToken)

	_, err = uc.RefreshToken(reg.RefreshToken)
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))

	require.NoError(t, uc.Logout(next.RefreshToken))
	_, err = uc.RefreshToken(next.RefreshToken)
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	uc, _ := newAuthUsecase(t)
	reg := register(t, uc)

	_, err := uc.ValidateToken(reg.RefreshToken)
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))

	_, err = uc.RefreshToken(reg.AccessToken)
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))
}

func TestExpiredAccessToken(t *testing.T) {
	uc, _ := newAuthUsecase(t)
	reg := register(t, uc)

	uc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err := uc.ValidateToken(reg.AccessToken)
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))
}

func TestRegisterDevice(t *testing.T) {
	uc, fcmRepo := newAuthUsecase(t)
	reg := register(t, uc)

	require.NoError(t, uc.RegisterDevice(reg.User.ID, &authdto.DeviceRequest{Token: "tok-1", DeviceInfo: "firefox"}))
	require.NoError(t, uc.RegisterDevice(reg.User.ID, &authdto.DeviceRequest{Token: "tok-1", DeviceInfo: "firefox 2"}))

	tokens, err := fcmRepo.GetTokensByUserID(reg.User.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, "firefox 2", tokens[0].DeviceInfo)

	require.NoError(t, uc.UnregisterDevice("someone-else", "tok-1"))
	tokens, _ = fcmRepo.GetTokensByUserID(reg.User.ID)
	require.Len(t, tokens, 1)

	require.NoError(t, uc.UnregisterDevice(reg.User.ID, "tok-1"))
	tokens, _ = fcmRepo.GetTokensByUserID(reg.User.ID)
	require.Empty(t, tokens)
}
