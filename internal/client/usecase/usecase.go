package usecase

import (
	"context"

	"cyra-kanban/internal/client/domain"
)

// ClientUsecase manages the reference tables cards are filed under.
type ClientUsecase interface {
	ListClients(ctx context.Context, userID string) ([]*domain.Client, error)
	GetClient(ctx context.Context, userID, id string) (*domain.Client, error)
	// ResolveClient finds a client by name or project key, returning nil when unknown.
	ResolveClient(ctx context.Context, userID, name string) (*domain.Client, error)
	CreateClient(ctx context.Context, userID string, req ClientRequest) (*domain.Client, error)
	UpdateClient(ctx context.Context, userID, id string, req ClientRequest) (*domain.Client, error)
	DeleteClient(ctx context.Context, userID, id string) error

	ListProducts(ctx context.Context, userID string) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, userID string, req ProductRequest) (*domain.Product, error)
	UpdateProduct(ctx context.Context, userID, id string, req ProductRequest) (*domain.Product, error)
	DeleteProduct(ctx context.Context, userID, id string) error
}

// ClientRequest is used for create and partial update; nil fields are left alone.
type ClientRequest struct {
	Name           *string `json:"name"`
	ProjectKey     *string `json:"project_key"`
	Status         *string `json:"status"`
	Description    *string `json:"description"`
	ContactName    *string `json:"contact_name"`
	ContactEmail   *string `json:"contact_email"`
	DriveFolderURL *string `json:"drive_folder_url"`
}

type ProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
