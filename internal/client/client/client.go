package client

import (
	"context"

	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
)

// Client is the catalog backend API.
type Client interface {
	ObtainToken(ctx context.Context, creds models.Credentials) (*models.TokenPair, error)
	VerifyToken(ctx context.Context, token string) error

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
