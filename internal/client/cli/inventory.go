package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
)

func (a *App) Inventory(ctx context.Context) error {
	entries, err := a.catalog.ListInventory(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.printf("No inventory entries found.\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPRODUCT\tQTY\tUNIT COST")
	for _, e := range entries {
		product := "N/A"
		if e.Product != nil {
			product = e.Product.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t$%s\n", e.ID, e.EntryDate, product, e.Quantity, e.UnitCost)
	}
	return tw.Flush()
}

// AddStock records received stock; the backend raises the product's
// current stock by the quantity.
func (a *App) AddStock(ctx context.Context, args []string) error {
	var in models.InventoryInput
	var err error
	if in.ProductID, err = a.idArg(args, "Product id"); err != nil {
		return err
	}

	rawQty, err := a.ask("Quantity")
	if err != nil {
		return err
	}
	if in.Quantity, err = parseInt("quantity", rawQty); err != nil {
		return err
	}

	rawCost, err := a.ask("Unit cost")
	if err != nil {
		return err
	}
	if in.UnitCost, err = models.ParsePrice(rawCost); err != nil {
		return err
	}

	e, err := a.catalog.AddInventory(ctx, in)
	if err != nil {
		return err
	}

	if e.Product != nil {
		a.products.Replace(*e.Product)
		a.printf("Added %d x %s; stock is now %d.\n", e.Quantity, e.Product.Name, e.Product.CurrentStock)
		return nil
	}
	a.printf("Added %d units to product %d.\n", e.Quantity, in.ProductID)
	return nil
}
