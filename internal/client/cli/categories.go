package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
)

func (a *App) Categories(ctx context.Context) error {
	cats, err := a.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		a.printf("No categories found.\n")
		return nil
	}
	for _, c := range cats {
		if c.Description != "" {
			a.printf("%d  %s - %s\n", c.ID, c.Name, c.Description)
			continue
		}
		a.printf("%d  %s\n", c.ID, c.Name)
	}
	return nil
}

func (a *App) AddCategory(ctx context.Context) error {
	var in models.CategoryInput
	var err error
	if in.Name, err = a.ask("Category name"); err != nil {
		return err
	}
	if in.Description, err = a.ask("Description (optional)"); err != nil {
		return err
	}

	c, err := a.catalog.CreateCategory(ctx, in)
	if err != nil {
		return err
	}
	a.printf("Category %q created (id %d).\n", c.Name, c.ID)
	return nil
}

func (a *App) EditCategory(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "Enter category id to edit")
	if err != nil {
		return err
	}

	cats, err := a.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	var current *models.Category
	for i := range cats {
		if cats[i].ID == id {
			current = &cats[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("category %d not found", id)
	}

	in := models.CategoryInput{}
	if in.Name, err = a.askDefault("Category name", current.Name); err != nil {
		return err
	}
	if in.Description, err = a.askDefault("Description", current.Description); err != nil {
		return err
	}

	c, err := a.catalog.UpdateCategory(ctx, id, in)
	if err != nil {
		return err
	}
	a.printf("Category %q updated.\n", c.Name)
	return nil
}

func (a *App) DeleteCategory(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "Enter category id to delete")
	if err != nil {
		return err
	}
	ok, err := a.confirm(fmt.Sprintf("Delete category %d?", id))
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Cancelled.\n")
		return nil
	}

	if err := a.catalog.DeleteCategory(ctx, id); err != nil {
		return err
	}
	a.printf("Category deleted.\n")
	return nil
}
