package services

import (
	"context"

	"github.com/dmitrijs2005/foamyadmin/internal/client/client"
	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
)

// fakeClient implements client.Client for unit tests; every call is counted.
type fakeClient struct {
	TokenRet  *models.TokenPair
	TokenErr  error
	VerifyErr error

	Products   []models.Product
	ProductErr error
	MutateErr  error

	Categories []models.Category
	Inventory  []models.InventoryEntry

	Calls          int
	LastToken      string
	LastCreds      models.Credentials
	LastProductIn  models.ProductInput
	LastCategoryIn models.CategoryInput
	LastInventory  models.InventoryInput
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) ObtainToken(ctx context.Context, creds models.Credentials) (*models.TokenPair, error) {
	f.Calls++
	f.LastCreds = creds
	return f.TokenRet, f.TokenErr
}

func (f *fakeClient) VerifyToken(ctx context.Context, token string) error {
	f.Calls++
	f.LastToken = token
	return f.VerifyErr
}

func (f *fakeClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	f.Calls++
	return f.Products, f.ProductErr
}

func (f *fakeClient) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	f.Calls++
	if f.ProductErr != nil {
		return nil, f.ProductErr
	}
	for _, p := range f.Products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, client.ErrNotFound
}

func (f *fakeClient) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	f.Calls++
	f.LastProductIn = in
	if f.MutateErr != nil {
		return nil, f.MutateErr
	}
	return &models.Product{ID: 100, Name: in.Name, CategoryID: in.CategoryID, UnitPrice: in.UnitPrice}, nil
}

func (f *fakeClient) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	f.Calls++
	f.LastProductIn = in
	if f.MutateErr != nil {
		return nil, f.MutateErr
	}
	return &models.Product{ID: id, Name: in.Name, CategoryID: in.CategoryID, UnitPrice: in.UnitPrice}, nil
}

func (f *fakeClient) DeleteProduct(ctx context.Context, id int64) error {
	f.Calls++
	return f.MutateErr
}

func (f *fakeClient) ListCategories(ctx context.Context) ([]models.Category, error) {
	f.Calls++
	return f.Categories, nil
}

func (f *fakeClient) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	f.Calls++
	f.LastCategoryIn = in
	if f.MutateErr != nil {
		return nil, f.MutateErr
	}
	return &models.Category{ID: 7, Name: in.Name}, nil
}

func (f *fakeClient) UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	f.Calls++
	f.LastCategoryIn = in
	if f.MutateErr != nil {
		return nil, f.MutateErr
	}
	return &models.Category{ID: id, Name: in.Name}, nil
}

func (f *fakeClient) DeleteCategory(ctx context.Context, id int64) error {
	f.Calls++
	return f.MutateErr
}

func (f *fakeClient) ListInventory(ctx context.Context) ([]models.InventoryEntry, error) {
	f.Calls++
	return f.Inventory, nil
}

func (f *fakeClient) AddInventory(ctx context.Context, in models.InventoryInput) (*models.InventoryEntry, error) {
	f.Calls++
	f.LastInventory = in
	if f.MutateErr != nil {
		return nil, f.MutateErr
	}
	return &models.InventoryEntry{ID: 1, Quantity: in.Quantity, UnitCost: in.UnitCost}, nil
}
