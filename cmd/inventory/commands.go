package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vyrodovalexey/inventory-tracker/internal/inventory"
	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseFlags parses args, returning errUsage for any flag error or
// leftover positional argument.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}
	return nil
}

// splitID takes the leading item id off args.
func splitID(args []string) (string, []string, error) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "", nil, fmt.Errorf("%w: missing item id", errUsage)
	}
	return args[0], args[1:], nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	status := fs.String("status", "", "only items with this status")
	category := fs.String("category", "", "only items in this category")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var wantStatus model.Status
	if *status != "" {
		parsed, err := model.ParseStatus(*status)
		if err != nil {
			return err
		}
		wantStatus = parsed
	}

	if err := a.store.DispatchFetchItems(ctx); err != nil {
		return err
	}

	var items []model.InventoryItem
	switch {
	case wantStatus != "":
		items = a.store.ItemsByStatus(wantStatus)
	case *category != "":
		items = a.store.ItemsByCategory(*category)
	default:
		items = a.store.Items()
	}

	if wantStatus != "" && *category != "" {
		filtered := items[:0]
		for _, item := range items {
			if item.Category == *category {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	return printItems(a.out, items)
}

func runGet(ctx context.Context, a *app, args []string) error {
	id, rest, err := splitID(args)
	if err != nil {
		return err
	}
	if err := parseFlags(newFlagSet("get"), rest); err != nil {
		return err
	}

	if err := a.store.DispatchGetItem(ctx, id); err != nil {
		return err
	}

	item, ok := a.store.ItemByID(id)
	if !ok {
		return fmt.Errorf("item %s not found", id)
	}
	return printItems(a.out, []model.InventoryItem{item})
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("add")
	name := fs.String("name", "", "item name")
	quantity := fs.Int("quantity", 0, "units on hand")
	category := fs.String("category", "", "item category")
	status := fs.String("status", string(model.StatusInStock), "stock status")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("%w: -name is required", errUsage)
	}

	parsed, err := model.ParseStatus(*status)
	if err != nil {
		return err
	}

	unsubscribe := a.store.Subscribe(a.report)
	defer unsubscribe()

	return a.store.DispatchAddItem(ctx, model.ItemInput{
		Name:     *name,
		Quantity: *quantity,
		Category: *category,
		Status:   parsed,
	})
}

func runUpdate(ctx context.Context, a *app, args []string) error {
	id, rest, err := splitID(args)
	if err != nil {
		return err
	}

	fs := newFlagSet("update")
	name := fs.String("name", "", "new name")
	quantity := fs.Int("quantity", 0, "new quantity")
	category := fs.String("category", "", "new category")
	status := fs.String("status", "", "new status")
	if err := parseFlags(fs, rest); err != nil {
		return err
	}

	var patch model.ItemPatch
	var statusErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "quantity":
			patch.Quantity = quantity
		case "category":
			patch.Category = category
		case "status":
			parsed, err := model.ParseStatus(*status)
			if err != nil {
				statusErr = err
				return
			}
			patch.Status = &parsed
		}
	})
	if statusErr != nil {
		return statusErr
	}
	if patch.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", errUsage)
	}

	// Cache the current record so the update replaces it in place.
	if err := a.store.DispatchGetItem(ctx, id); err != nil {
		return err
	}

	unsubscribe := a.store.Subscribe(a.report)
	defer unsubscribe()

	return a.store.DispatchUpdateItem(ctx, id, patch)
}

func runDelete(ctx context.Context, a *app, args []string) error {
	id, rest, err := splitID(args)
	if err != nil {
		return err
	}
	if err := parseFlags(newFlagSet("delete"), rest); err != nil {
		return err
	}

	if err := a.store.DispatchGetItem(ctx, id); err != nil {
		return err
	}

	unsubscribe := a.store.Subscribe(a.report)
	defer unsubscribe()

	return a.store.DispatchDeleteItem(ctx, id)
}

// report prints item changes as the store applies them.
func (a *app) report(evt inventory.Event) {
	switch evt.Kind {
	case inventory.EventItemAdded:
		fmt.Fprintf(a.out, "added %s\n", describe(evt.Item))
	case inventory.EventItemUpdated:
		fmt.Fprintf(a.out, "updated %s\n", describe(evt.Item))
	case inventory.EventItemRemoved:
		fmt.Fprintf(a.out, "removed %s\n", evt.ItemID)
	}
}

func describe(item model.InventoryItem) string {
	return fmt.Sprintf("%s %q quantity=%d category=%q status=%q",
		item.ID, item.Name, item.Quantity, item.Category, item.Status)
}

func printItems(w io.Writer, items []model.InventoryItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQUANTITY\tCATEGORY\tSTATUS")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", item.ID, item.Name, item.Quantity, item.Category, item.Status)
	}
	return tw.Flush()
}
