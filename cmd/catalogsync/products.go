package main

import (
	"context"
	"fmt"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/spf13/cobra"
)

var (
	productsPage          int
	productsLimit         int
	productsSearch        string
	productsCategory      string
	productsSubcategories []string
	productsFilters       []string
	productsSortBy        string
	productsSortOrder     string
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Show one page of the catalog",
	Args:  cobra.NoArgs,
	RunE:  runProducts,
}

func init() {
	f := productsCmd.Flags()
	f.IntVar(&productsPage, "page", 1, "Page number (1-based)")
	f.IntVar(&productsLimit, "limit", 0, "Page size (default from config)")
	f.StringVar(&productsSearch, "search", "", "Case-insensitive text search")
	f.StringVar(&productsCategory, "category", "", "Exact category")
	f.StringSliceVar(&productsSubcategories, "subcategory", nil, "Subcategories (repeatable or comma-separated)")
	f.StringSliceVar(&productsFilters, "filter", nil, "Filters: saved, sold, newShipment, inStock, discounted")
	f.StringVar(&productsSortBy, "sort-by", "", "Sort column: itemCode, description, price, quantity, category")
	f.StringVar(&productsSortOrder, "sort-order", "", "Sort order: asc or desc")
}

func runProducts(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	limit := productsLimit
	if limit == 0 {
		limit = a.cfg.Catalog.DefaultPageSize
	}
	var filters types.FilterSet
	for _, f := range productsFilters {
		filters = append(filters, types.Filter(f))
	}

	resp, err := a.catalog.GetPage(context.Background(), types.PageRequest{
		Page:          productsPage,
		Limit:         limit,
		SearchQuery:   productsSearch,
		Category:      productsCategory,
		Subcategories: productsSubcategories,
		ActiveFilters: filters,
		SortBy:        productsSortBy,
		SortOrder:     productsSortOrder,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), resp)
	}

	out := cmd.OutOrStdout()
	if len(resp.Products) == 0 {
		fmt.Fprintln(out, "No products found.")
	} else {
		printProducts(out, resp.Products)
	}
	fmt.Fprintf(out, "\nPage %d of %d (%d products, source: %s)\n",
		resp.Page, resp.TotalPages, resp.Total, resp.Source)
	if resp.Source.Stale() {
		fmt.Fprintln(out, "Showing stored data; it may be out of date.")
	}
	return nil
}
