package usecase

import (
	"strings"
	"time"

	authdomain "cyra-kanban/internal/auth/domain"
	authdto "cyra-kanban/internal/auth/dto"
	"cyra-kanban/internal/auth/repository"
	"cyra-kanban/pkg/config"
	"cyra-kanban/pkg/errutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type sessionClaims struct {
	Email string `json:"email,omitempty"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

type authUsecase struct {
	userRepo  repository.UserRepository
	fcmTokens repository.FCMTokenRepository
	config    *config.Config
	now       func() time.Time
}

func NewAuthUsecase(userRepo repository.UserRepository, fcmTokens repository.FCMTokenRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo:  userRepo,
		fcmTokens: fcmTokens,
		config:    cfg,
		now:       time.Now,
	}
}

func (u *authUsecase) Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	existing, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, errutil.NewInternal("Failed to look up user", errutil.WithErr(err))
	}
	if existing != nil {
		return nil, errutil.NewBadRequest("Email already registered", errutil.WithErr(authdomain.ErrEmailTaken))
	}

	hashed, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, errutil.NewInternal("Failed to hash password", errutil.WithErr(err))
	}

	user := &authdomain.User{
		Email:    req.Email,
		Password: hashed,
		Name:     strings.TrimSpace(req.Name),
	}
	if err := u.userRepo.Create(user); err != nil {
		return nil, errutil.NewInternal("Failed to create user", errutil.WithErr(err))
	}

	zap.L().Info("[Auth] User registered", zap.String("user_id", user.ID))
	return u.issueTokens(user, "")
}

func (u *authUsecase) Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, errutil.NewInternal("Failed to look up user", errutil.WithErr(err))
	}
	if user == nil || !repository.CheckPasswordHash(req.Password, user.Password) {
		return nil, errutil.NewUnauthorized("Invalid email or password", errutil.WithErr(authdomain.ErrInvalidCredentials))
	}

	return u.issueTokens(user, "")
}

// RefreshToken rotates a refresh token: the presented one is revoked and a new pair issued.
func (u *authUsecase) RefreshToken(refreshToken string) (*authdto.TokenResponse, error) {
	claims, err := u.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	stored, err := u.userRepo.FindRefreshToken(refreshToken)
	if err != nil {
		return nil, errutil.NewInternal("Failed to look up session", errutil.WithErr(err))
	}
	if stored == nil || stored.ExpiresAt.Before(u.now()) {
		return nil, errutil.NewUnauthorized("Refresh token expired", errutil.WithErr(authdomain.ErrInvalidToken))
	}

	user, err := u.userRepo.FindByID(claims.Subject)
	if err != nil {
		return nil, errutil.NewInternal("Failed to look up user", errutil.WithErr(err))
	}
	if user == nil {
		return nil, errutil.NewUnauthorized("User not found", errutil.WithErr(authdomain.ErrUserNotFound))
	}

	return u.issueTokens(user, refreshToken)
}

func (u *authUsecase) Logout(refreshToken string) error {
	if err := u.userRepo.DeleteRefreshToken(refreshToken); err != nil {
		return errutil.NewInternal("Failed to revoke session", errutil.WithErr(err))
	}
	return nil
}

func (u *authUsecase) ValidateToken(accessToken string) (*authdomain.User, error) {
	claims, err := u.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.FindByID(claims.Subject)
	if err != nil {
		return nil, errutil.NewInternal("Failed to look up user", errutil.WithErr(err))
	}
	if user == nil {
		return nil, errutil.NewUnauthorized("User not found", errutil.WithErr(authdomain.ErrUserNotFound))
	}
	return user, nil
}

func (u *authUsecase) GetUser(userID string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to look up user", errutil.WithErr(err))
	}
	if user == nil {
		return nil, errutil.NewNotFound("User not found", errutil.WithErr(authdomain.ErrUserNotFound))
	}
	return user, nil
}

func (u *authUsecase) RegisterDevice(userID string, req *authdto.DeviceRequest) error {
	if err := u.fcmTokens.SaveToken(userID, strings.TrimSpace(req.Token), req.DeviceInfo); err != nil {
		return errutil.NewInternal("Failed to register device", errutil.WithErr(err))
	}
	return nil
}

func (u *authUsecase) UnregisterDevice(userID, token string) error {
	if err := u.fcmTokens.DeleteUserToken(userID, token); err != nil {
		return errutil.NewInternal("Failed to remove device", errutil.WithErr(err))
	}
	return nil
}

func (u *authUsecase) issueTokens(user *authdomain.User, previous string) (*authdto.TokenResponse, error) {
	now := u.now()

	accessToken, err := u.sign(user, tokenTypeAccess, now, u.config.JWTAccessExpiry)
	if err != nil {
		return nil, errutil.NewInternal("Failed to sign token", errutil.WithErr(err))
	}
	refreshToken, err := u.sign(user, tokenTypeRefresh, now, u.config.JWTRefreshExpiry)
	if err != nil {
		return nil, errutil.NewInternal("Failed to sign token", errutil.WithErr(err))
	}

	session := &authdomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: now.Add(u.config.JWTRefreshExpiry).UTC(),
	}
	if err := u.userRepo.ReplaceRefreshToken(previous, session); err != nil {
		return nil, errutil.NewInternal("Failed to store session", errutil.WithErr(err))
	}

	return &authdto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (u *authUsecase) sign(user *authdomain.User, typ string, now time.Time, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if typ == tokenTypeAccess {
		claims.Email = user.Email
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) parse(raw, typ string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(u.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(u.now))
	if err != nil || !token.Valid {
		if err == nil {
			err = authdomain.ErrInvalidToken
		}
		return nil, errutil.NewUnauthorized("Invalid or expired token", errutil.WithErr(err))
	}
	if claims.Type != typ || claims.Subject == "" {
		return nil, errutil.NewUnauthorized("Invalid token type", errutil.WithErr(authdomain.ErrInvalidToken))
	}
	return claims, nil
}
