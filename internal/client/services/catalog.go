package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/foamyadmin/internal/client/client"
	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
	"github.com/dmitrijs2005/foamyadmin/internal/logging"
)

// CatalogService validates input and forwards catalog operations to the
// backend. Invalid input never reaches the network.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListInventory(ctx context.Context) ([]models.InventoryEntry, error)
	AddInventory(ctx context.Context, in models.InventoryInput) (*models.InventoryEntry, error)
}

type catalogService struct {
	client client.Client
	log    logging.Logger
}

func NewCatalogService(c client.Client, log logging.Logger) CatalogService {
	if log == nil {
		log = logging.Nop()
	}
	return &catalogService{client: c, log: log}
}

func checkID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id %d", models.ErrValidation, id)
	}
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	items, err := s.client.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return items, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, err := s.client.CreateProduct(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.log.Info(ctx, "product created", "id", p.ID, "name", p.Name)
	return p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, err := s.client.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	s.log.Info(ctx, "product updated", "id", id)
	return p, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.client.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	s.log.Info(ctx, "product deleted", "id", id)
	return nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	items, err := s.client.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.client.CreateCategory(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.client.UpdateCategory(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	return c, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.client.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

func (s *catalogService) ListInventory(ctx context.Context) ([]models.InventoryEntry, error) {
	items, err := s.client.ListInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

func (s *catalogService) AddInventory(ctx context.Context, in models.InventoryInput) (*models.InventoryEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	e, err := s.client.AddInventory(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("add inventory: %w", err)
	}
	s.log.Info(ctx, "inventory entry added", "product_id", in.ProductID, "quantity", in.Quantity)
	return e, nil
}
