package usecase

import (
	"context"
	"errors"
	"strings"

	"cyra-kanban/internal/client/domain"
	"cyra-kanban/internal/client/repository"
	"cyra-kanban/pkg/errutil"

	"go.uber.org/zap"
)

type clientUsecase struct {
	clients  repository.ClientRepository
	products repository.ProductRepository
}

func NewClientUsecase(clients repository.ClientRepository, products repository.ProductRepository) ClientUsecase {
	return &clientUsecase{clients: clients, products: products}
}

func (u *clientUsecase) ListClients(ctx context.Context, userID string) ([]*domain.Client, error) {
	clients, err := u.clients.List(ctx, userID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to load clients", errutil.WithErr(err))
	}
	return clients, nil
}

func (u *clientUsecase) GetClient(ctx context.Context, userID, id string) (*domain.Client, error) {
	client, err := u.clients.FindByID(ctx, userID, id)
	if err != nil {
		return nil, errutil.NewInternal("Failed to load client", errutil.WithErr(err))
	}
	if client == nil {
		return nil, errutil.NewNotFound("Client not found", errutil.WithErr(domain.ErrClientNotFound))
	}
	return client, nil
}

func (u *clientUsecase) ResolveClient(ctx context.Context, userID, name string) (*domain.Client, error) {
	client, err := u.clients.FindByName(ctx, userID, name)
	if err != nil {
		return nil, errutil.NewInternal("Failed to look up client", errutil.WithErr(err))
	}
	return client, nil
}

func (u *clientUsecase) CreateClient(ctx context.Context, userID string, req ClientRequest) (*domain.Client, error) {
	client := &domain.Client{UserID: userID, Status: domain.ClientActive}
	if err := applyClient(client, req); err != nil {
		return nil, err
	}
	if client.Name == "" {
		return nil, errutil.NewBadRequest("Name is required", errutil.WithErr(domain.ErrNameRequired))
	}
	if err := u.clients.Create(ctx, client); err != nil {
		zap.L().Error("[Clients] Failed to create client", zap.String("user_id", userID), zap.Error(err))
		return nil, errutil.NewInternal("Failed to create client", errutil.WithErr(err))
	}
	return client, nil
}

func (u *clientUsecase) UpdateClient(ctx context.Context, userID, id string, req ClientRequest) (*domain.Client, error) {
	client, err := u.GetClient(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := applyClient(client, req); err != nil {
		return nil, err
	}
	if client.Name == "" {
		return nil, errutil.NewBadRequest("Name is required", errutil.WithErr(domain.ErrNameRequired))
	}
	if err := u.clients.Update(ctx, client); err != nil {
		return nil, errutil.NewInternal("Failed to update client", errutil.WithErr(err))
	}
	return client, nil
}

func (u *clientUsecase) DeleteClient(ctx context.Context, userID, id string) error {
	if err := u.clients.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return errutil.NewNotFound("Client not found", errutil.WithErr(err))
		}
		return errutil.NewInternal("Failed to delete client", errutil.WithErr(err))
	}
	return nil
}

func (u *clientUsecase) ListProducts(ctx context.Context, userID string) ([]*domain.Product, error) {
	products, err := u.products.List(ctx, userID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to load products", errutil.WithErr(err))
	}
	return products, nil
}

func (u *clientUsecase) CreateProduct(ctx context.Context, userID string, req ProductRequest) (*domain.Product, error) {
	product := &domain.Product{UserID: userID}
	applyProduct(product, req)
	if product.Name == "" {
		return nil, errutil.NewBadRequest("Name is required", errutil.WithErr(domain.ErrNameRequired))
	}
	if err := u.products.Create(ctx, product); err != nil {
		return nil, errutil.NewInternal("Failed to create product", errutil.WithErr(err))
	}
	return product, nil
}

func (u *clientUsecase) UpdateProduct(ctx context.Context, userID, id string, req ProductRequest) (*domain.Product, error) {
	product, err := u.products.FindByID(ctx, userID, id)
	if err != nil {
		return nil, errutil.NewInternal("Failed to load product", errutil.WithErr(err))
	}
	if product == nil {
		return nil, errutil.NewNotFound("Product not found", errutil.WithErr(domain.ErrProductNotFound))
	}
	applyProduct(product, req)
	if product.Name == "" {
		return nil, errutil.NewBadRequest("Name is required", errutil.WithErr(domain.ErrNameRequired))
	}
	if err := u.products.Update(ctx, product); err != nil {
		return nil, errutil.NewInternal("Failed to update product", errutil.WithErr(err))
	}
	return product, nil
}

func (u *clientUsecase) DeleteProduct(ctx context.Context, userID, id string) error {
	if err := u.products.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return errutil.NewNotFound("Product not found", errutil.WithErr(err))
		}
		return errutil.NewInternal("Failed to delete product", errutil.WithErr(err))
	}
	return nil
}

func applyClient(c *domain.Client, req ClientRequest) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.Name, req.Name)
	set(&c.ProjectKey, req.ProjectKey)
	set(&c.Description, req.Description)
	set(&c.ContactName, req.ContactName)
	set(&c.ContactEmail, req.ContactEmail)
	set(&c.DriveFolderURL, req.DriveFolderURL)
	if req.Status != nil {
		status := domain.ClientStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !status.Valid() {
			return errutil.NewBadRequest("Invalid status: " + *req.Status)
		}
		c.Status = status
	}
	return nil
}

func applyProduct(p *domain.Product, req ProductRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
}
