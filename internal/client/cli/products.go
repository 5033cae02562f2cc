package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
)

func (a *App) List(ctx context.Context) error {
	items, err := a.products.Load(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		a.printf("No products found.\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tSIZE\tPRICE\tSTOCK")
	for _, p := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t$%s\t%d\n", p.ID, p.Name, p.CategoryName(), orNA(p.Size), p.UnitPrice, p.CurrentStock)
	}
	return tw.Flush()
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "Enter product id")
	if err != nil {
		return err
	}
	p, err := a.catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	a.printf("#%d %s\n", p.ID, p.Name)
	a.printf("  Category:    %s\n", p.CategoryName())
	a.printf("  Size:        %s\n", orNA(p.Size))
	a.printf("  Description: %s\n", orNA(p.Description))
	a.printf("  Unit price:  $%s\n", p.UnitPrice)
	a.printf("  Stock:       %d\n", p.CurrentStock)
	return nil
}

// Add creates a product from prompted fields. Nothing is sent unless every
// field is valid.
func (a *App) Add(ctx context.Context) error {
	var in models.ProductInput
	if err := a.promptProduct(ctx, &in, false); err != nil {
		return err
	}

	p, err := a.catalog.CreateProduct(ctx, in)
	if err != nil {
		return err
	}
	a.products.Insert(*p)
	a.printf("Product %q created (id %d).\n", p.Name, p.ID)
	return nil
}

// Edit shows the current values as defaults; an empty answer keeps a field.
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "Enter product id to edit")
	if err != nil {
		return err
	}
	current, err := a.catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	in := current.Input()
	if err := a.promptProduct(ctx, &in, true); err != nil {
		return err
	}

	p, err := a.catalog.UpdateProduct(ctx, id, in)
	if err != nil {
		return err
	}
	a.products.Replace(*p)
	a.printf("Product %q updated.\n", p.Name)
	return nil
}

// Delete removes the product from the cached list right away; a refused
// deletion brings it back.
func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "Enter product id to delete")
	if err != nil {
		return err
	}
	ok, err := a.confirm(fmt.Sprintf("Delete product %d?", id))
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Cancelled.\n")
		return nil
	}

	if err := a.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("could not delete product: %w", err)
	}
	a.printf("Product deleted.\n")
	return nil
}

func (a *App) promptProduct(ctx context.Context, in *models.ProductInput, editing bool) error {
	field := func(prompt, current string) (string, error) {
		if editing {
			return a.askDefault(prompt, current)
		}
		return a.ask(prompt)
	}

	var err error
	if in.Name, err = field("Name", in.Name); err != nil {
		return err
	}

	if err := a.printCategoryChoices(ctx); err != nil {
		return err
	}
	rawCategory, err := field("Category id", strconv.FormatInt(in.CategoryID, 10))
	if err != nil {
		return err
	}
	if in.CategoryID, err = parseID(rawCategory); err != nil {
		return err
	}

	if in.Size, err = field("Size", in.Size); err != nil {
		return err
	}
	if editing {
		in.Description, err = a.askDefault("Description", in.Description)
	} else {
		in.Description, err = a.askMultiline("Description")
	}
	if err != nil {
		return err
	}

	rawPrice, err := field("Unit price", in.UnitPrice.String())
	if err != nil {
		return err
	}
	if in.UnitPrice, err = models.ParsePrice(rawPrice); err != nil {
		return err
	}

	rawStock, err := field("Current stock", strconv.Itoa(in.CurrentStock))
	if err != nil {
		return err
	}
	if rawStock == "" {
		rawStock = "0"
	}
	if in.CurrentStock, err = parseInt("stock", rawStock); err != nil {
		return err
	}

	return in.Validate()
}

func (a *App) printCategoryChoices(ctx context.Context) error {
	cats, err := a.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		a.printf("No categories yet; create one with 'addcategory'.\n")
		return nil
	}
	a.printf("Categories:\n")
	for _, c := range cats {
		a.printf("  %d  %s\n", c.ID, c.Name)
	}
	return nil
}
