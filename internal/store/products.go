package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/MohamedIjlal27/SFA-sub000/migrations"
	"github.com/shopspring/decimal"
)

// ProductStore is the SQLite-backed structured copy of the catalog. It also
// holds the metadata row and sync history so that a full sync can replace
// rows and metadata in one transaction.
type ProductStore struct {
	db *sql.DB
}

// NewProductStore opens (and migrates) the catalog database at dbPath.
func NewProductStore(dbPath string) (*ProductStore, error) {
	db, err := openSQLite(dbPath, migrations.CatalogDir)
	if err != nil {
		return nil, err
	}
	return &ProductStore{db: db}, nil
}

// Close closes the database connection
func (s *ProductStore) Close() error {
	return s.db.Close()
}

// Filter selects products in Query. Zero-valued fields do not constrain.
type Filter struct {
	Search        string
	Category      string
	Subcategories []string
	ItemCode      string
	Flags         types.FilterSet
}

// FilterFromRequest translates a page request into a store filter.
func FilterFromRequest(req types.PageRequest) Filter {
	return Filter{
		Search:        req.SearchQuery,
		Category:      req.Category,
		Subcategories: req.CanonicalSubcategories(),
		Flags:         req.ActiveFilters,
	}
}

const productColumns = `item_code, description, category, sub_category, category_code, uom_code,
	price, quantity, images, discount_amount, discount_percentage,
	is_saved, is_sold, is_new_shipment`

// sortColumns maps public sort names to SQL expressions.
var sortColumns = map[string]string{
	types.SortItemCode:    "item_code",
	types.SortDescription: "description",
	types.SortPrice:       "CAST(price AS REAL)",
	types.SortQuantity:    "quantity",
	types.SortCategory:    "category",
}

// flagPredicates maps active filters to column predicates.
var flagPredicates = map[types.Filter]string{
	types.FilterSaved:       "is_saved = 1",
	types.FilterSold:        "is_sold = 1",
	types.FilterNewShipment: "is_new_shipment = 1",
	types.FilterInStock:     "quantity > 0",
	types.FilterDiscounted:  "(CAST(discount_amount AS REAL) > 0 OR CAST(discount_percentage AS REAL) > 0)",
}

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any

	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		clauses = append(clauses, `search_text LIKE ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if len(f.Subcategories) > 0 {
		clauses = append(clauses, "sub_category IN ("+placeholders(len(f.Subcategories))+")")
		for _, sc := range f.Subcategories {
			args = append(args, sc)
		}
	}
	if f.ItemCode != "" {
		clauses = append(clauses, "item_code = ?")
		args = append(args, f.ItemCode)
	}
	for _, name := range f.Flags.Canonical() {
		if pred, ok := flagPredicates[types.Filter(name)]; ok {
			clauses = append(clauses, pred)
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Query returns one window of products matching filter and the number of
// rows matching the filter as a whole. Rows are ordered by sortBy and then by
// item_code so repeated windows never overlap or skip.
func (s *ProductStore) Query(ctx context.Context, filter Filter, sortBy, sortOrder string, limit, offset int) ([]types.Product, int, error) {
	if sortBy == "" {
		sortBy = types.SortItemCode
	}
	col, ok := sortColumns[sortBy]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidSort, sortBy)
	}
	dir := "ASC"
	if strings.EqualFold(sortOrder, types.SortDesc) {
		dir = "DESC"
	}

	where, args := filter.where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := "SELECT " + productColumns + " FROM products" + where +
		" ORDER BY " + col + " " + dir + ", item_code ASC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetProduct returns the product with the given item code.
func (s *ProductStore) GetProduct(ctx context.Context, itemCode string) (*types.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE item_code = ?", itemCode)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrProductNotFound
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return p, nil
}

// Upsert writes p, fully replacing any row with the same item code.
func (s *ProductStore) Upsert(ctx context.Context, p types.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, productArgs(p)...); err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ItemCode, err)
	}
	return nil
}

const upsertSQL = `INSERT OR REPLACE INTO products (` + productColumns + `, search_text)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReplaceCatalog swaps the entire product table and the metadata row in a
// single transaction. On any error nothing is changed.
func (s *ProductStore) ReplaceCatalog(ctx context.Context, products []types.Product, meta types.ProductsMetadata) error {
	for _, p := range products {
		if err := validateProduct(p); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, productArgs(p)...); err != nil {
			return fmt.Errorf("insert product %s: %w", p.ItemCode, err)
		}
	}

	if err := writeMetadata(ctx, tx, meta); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SavedFlags returns the item codes currently flagged as saved. With no
// arguments every saved row is returned; otherwise only the given codes are
// considered.
func (s *ProductStore) SavedFlags(ctx context.Context, itemCodes ...string) (map[string]bool, error) {
	query := "SELECT item_code FROM products WHERE is_saved = 1"
	var args []any
	if len(itemCodes) > 0 {
		query += " AND item_code IN (" + placeholders(len(itemCodes)) + ")"
		for _, c := range itemCodes {
			args = append(args, c)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query saved flags: %w", err)
	}
	defer rows.Close()

	saved := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		saved[code] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return saved, nil
}

// ToggleSaved flips is_saved on the row with the given item code and returns
// the new value.
func (s *ProductStore) ToggleSaved(ctx context.Context, itemCode string) (bool, error) {
	var saved int
	err := s.db.QueryRowContext(ctx,
		"UPDATE products SET is_saved = 1 - is_saved WHERE item_code = ? RETURNING is_saved",
		itemCode,
	).Scan(&saved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, types.ErrProductNotFound
		}
		return false, fmt.Errorf("toggle saved %s: %w", itemCode, err)
	}
	return saved == 1, nil
}

// SavedProducts returns every saved product ordered by item code.
func (s *ProductStore) SavedProducts(ctx context.Context) ([]types.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE is_saved = 1 ORDER BY item_code ASC")
	if err != nil {
		return nil, fmt.Errorf("query saved products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// Count returns the number of rows in the product table.
func (s *ProductStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n)
	return n, err
}

func validateProduct(p types.Product) error {
	if strings.TrimSpace(p.ItemCode) == "" {
		return fmt.Errorf("%w: empty item code", ErrInvalidProduct)
	}
	// quantity >= 0 is enforced by the table's CHECK constraint.
	return nil
}

func productArgs(p types.Product) []any {
	return []any{
		p.ItemCode,
		p.Description,
		p.Category,
		p.SubCategory,
		p.CategoryCode,
		p.UOMCode,
		p.Price.String(),
		p.Quantity,
		p.Images,
		p.DiscountAmount.String(),
		p.DiscountPercentage.String(),
		boolToInt(p.IsSaved),
		boolToInt(p.IsSold),
		boolToInt(p.IsNewShipment),
		searchText(p),
	}
}

// searchText is the folded text search matches against. SQLite's LOWER only
// folds ASCII, so folding happens here with Unicode rules.
func searchText(p types.Product) string {
	return strings.ToLower(p.ItemCode + "\n" + p.Description)
}

func scanProducts(rows *sql.Rows) ([]types.Product, error) {
	products := []types.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return products, nil
}

// scanProduct scans a row into a Product, parsing the decimal columns.
func scanProduct(scanner interface{ Scan(...any) error }) (*types.Product, error) {
	var p types.Product
	var price, discountAmount, discountPct string
	var saved, sold, newShipment int

	err := scanner.Scan(
		&p.ItemCode,
		&p.Description,
		&p.Category,
		&p.SubCategory,
		&p.CategoryCode,
		&p.UOMCode,
		&price,
		&p.Quantity,
		&p.Images,
		&discountAmount,
		&discountPct,
		&saved,
		&sold,
		&newShipment,
	)
	if err != nil {
		return nil, err
	}

	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price of %s: %w", p.ItemCode, err)
	}
	if p.DiscountAmount, err = decimal.NewFromString(discountAmount); err != nil {
		return nil, fmt.Errorf("parse discount amount of %s: %w", p.ItemCode, err)
	}
	if p.DiscountPercentage, err = decimal.NewFromString(discountPct); err != nil {
		return nil, fmt.Errorf("parse discount percentage of %s: %w", p.ItemCode, err)
	}
	p.IsSaved = saved == 1
	p.IsSold = sold == 1
	p.IsNewShipment = newShipment == 1

	return &p, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
