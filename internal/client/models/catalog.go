// Package models defines the catalog and session data exchanged with the
// REST backend.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks input rejected before any request is sent.
var ErrValidation = errors.New("validation error")

// Category groups products.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryInput is the create/update payload for a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (in CategoryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	return nil
}

// Product as returned by the backend. Category is nested on reads; the
// backend expects CategoryID on writes (see ProductInput).
type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     *Category `json:"category,omitempty"`
	CategoryID   int64     `json:"category_id,omitempty"`
	Size         string    `json:"size,omitempty"`
	Description  string    `json:"description,omitempty"`
	UnitPrice    Price     `json:"unit_price"`
	CurrentStock int       `json:"current_stock"`
}

// CategoryName returns the nested category name or "N/A".
func (p Product) CategoryName() string {
	if p.Category == nil || p.Category.Name == "" {
		return "N/A"
	}
	return p.Category.Name
}

// Input converts a fetched product into an editable payload.
func (p Product) Input() ProductInput {
	categoryID := p.CategoryID
	if p.Category != nil && p.Category.ID != 0 {
		categoryID = p.Category.ID
	}
	return ProductInput{
		Name:         p.Name,
		CategoryID:   categoryID,
		Size:         p.Size,
		Description:  p.Description,
		UnitPrice:    p.UnitPrice,
		CurrentStock: p.CurrentStock,
	}
}

// ProductInput is the create/update payload for a product; form fields map
// one to one onto it.
type ProductInput struct {
	Name         string `json:"name"`
	CategoryID   int64  `json:"category_id"`
	Size         string `json:"size,omitempty"`
	Description  string `json:"description,omitempty"`
	UnitPrice    Price  `json:"unit_price"`
	CurrentStock int    `json:"current_stock"`
}

// Validate reports every problem found, joined.
func (in ProductInput) Validate() error {
	var errs []error
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, fmt.Errorf("%w: product name is required", ErrValidation))
	}
	if in.CategoryID <= 0 {
		errs = append(errs, fmt.Errorf("%w: category is required", ErrValidation))
	}
	if in.UnitPrice < 0 {
		errs = append(errs, fmt.Errorf("%w: unit price must not be negative", ErrValidation))
	}
	if in.CurrentStock < 0 {
		errs = append(errs, fmt.Errorf("%w: stock must not be negative", ErrValidation))
	}
	return errors.Join(errs...)
}

// InventoryEntry records stock received for a product. The backend adds
// Quantity to the product's current stock when an entry is created.
type InventoryEntry struct {
	ID        int64    `json:"id"`
	Product   *Product `json:"product,omitempty"`
	EntryDate string   `json:"entry_date"`
	Quantity  int      `json:"quantity"`
	UnitCost  Price    `json:"unit_cost"`
}

// InventoryInput is the create payload for an inventory entry.
type InventoryInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitCost  Price `json:"unit_cost"`
}

func (in InventoryInput) Validate() error {
	var errs []error
	if in.ProductID <= 0 {
		errs = append(errs, fmt.Errorf("%w: product is required", ErrValidation))
	}
	if in.Quantity < 1 {
		errs = append(errs, fmt.Errorf("%w: quantity must be at least 1", ErrValidation))
	}
	if in.UnitCost < 0 {
		errs = append(errs, fmt.Errorf("%w: unit cost must not be negative", ErrValidation))
	}
	return errors.Join(errs...)
}
