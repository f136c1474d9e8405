package repository

import (
	"context"
	"errors"
	"strings"

	"cyra-kanban/internal/client/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientRepository stores clients. Lookups return (nil, nil) when nothing matches.
type ClientRepository interface {
	List(ctx context.Context, userID string) ([]*domain.Client, error)
	FindByID(ctx context.Context, userID, id string) (*domain.Client, error)
	// FindByName matches name or project key, ignoring case.
	FindByName(ctx context.Context, userID, name string) (*domain.Client, error)
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, userID, id string) error
}

type ProductRepository interface {
	List(ctx context.Context, userID string) ([]*domain.Product, error)
	FindByID(ctx context.Context, userID, id string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, userID, id string) error
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) List(ctx context.Context, userID string) ([]*domain.Client, error) {
	var clients []*domain.Client
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&clients).Error
	return clients, err
}

func (r *clientRepository) FindByID(ctx context.Context, userID, id string) (*domain.Client, error) {
	return first[domain.Client](r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

func (r *clientRepository) FindByName(ctx context.Context, userID, name string) (*domain.Client, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	return first[domain.Client](r.db.WithContext(ctx).
		Where("user_id = ? AND (LOWER(name) = ? OR LOWER(project_key) = ?)", userID, name, name))
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	client.ID = uuid.New().String()
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Client{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) List(ctx context.Context, userID string) ([]*domain.Product, error) {
	var products []*domain.Product
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepository) FindByID(ctx context.Context, userID, id string) (*domain.Product, error) {
	return first[domain.Product](r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func first[T any](q *gorm.DB) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
