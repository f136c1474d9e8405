package usecase

import (
	authdomain "cyra-kanban/internal/auth/domain"
	authdto "cyra-kanban/internal/auth/dto"
)

// AuthUsecase handles the human session: accounts, JWT pairs and push devices.
type AuthUsecase interface {
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(accessToken string) (*authdomain.User, error)
	GetUser(userID string) (*authdomain.User, error)

	RegisterDevice(userID string, req *authdto.DeviceRequest) error
	UnregisterDevice(userID, token string) error
}
