package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"revue/internal/country"
)

// ErrNotFound is returned when a product id does not exist.
var ErrNotFound = errors.New("product not found")

// Store persists catalog products.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

func NewStore(db *sql.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// Add inserts a product and returns its assigned id. Linked products start
// empty regardless of what the caller supplies.
func (s *Store) Add(ctx context.Context, p Product) (int64, error) {
	p.Content.LinkedProducts = []int64{}
	body, err := json.Marshal(p.Content)
	if err != nil {
		return 0, fmt.Errorf("marshal product content: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, category, status, content) VALUES (?, ?, ?, ?)`,
		p.Name, string(p.Category), string(p.Status), string(body),
	)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.log.Debug("product stored", zap.Int64("productId", id), zap.String("name", p.Name))
	return id, nil
}

// GetByID loads a single product.
func (s *Store) GetByID(ctx context.Context, productID int64) (*Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT product_id, name, category, status, content FROM products WHERE product_id = ?`,
		productID,
	)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// All lists every product in id order.
func (s *Store) All(ctx context.Context) ([]Product, error) {
	return s.list(ctx,
		`SELECT product_id, name, category, status, content FROM products ORDER BY product_id`)
}

// PageQuery filters the paged catalog listing. Search matches the product
// name or the manufacturer, case-insensitively. Region and Status accept
// "all" to disable the filter.
type PageQuery struct {
	Search     string
	Page       int
	Limit      int
	Categories []Category
	Region     string
	Status     string
}

// Page returns one page of matching products. Category and status narrow
// the SQL query; the substring and region checks run over the decoded
// content, which the storage layout keeps as JSON.
func (s *Store) Page(ctx context.Context, q PageQuery) ([]Product, error) {
	matched, err := s.matching(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	start := (q.Page - 1) * q.Limit
	if start >= len(matched) {
		return []Product{}, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// Count returns how many products match the query, ignoring paging.
func (s *Store) Count(ctx context.Context, q PageQuery) (int, error) {
	matched, err := s.matching(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (s *Store) matching(ctx context.Context, q PageQuery) ([]Product, error) {
	query := `SELECT product_id, name, category, status, content FROM products`
	var conds []string
	var args []any
	if len(q.Categories) > 0 {
		placeholders := make([]string, len(q.Categories))
		for i, c := range q.Categories {
			placeholders[i] = "?"
			args = append(args, string(c))
		}
		conds = append(conds, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ", ")))
	}
	if q.Status != "" && q.Status != "all" {
		conds = append(conds, "status = ?")
		args = append(args, strings.ToUpper(q.Status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY product_id"

	products, err := s.list(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	regions := country.All()
	if q.Region != "" && q.Region != "all" {
		if c, ok := country.Parse(q.Region); ok {
			regions = []country.Code{c}
		} else {
			return []Product{}, nil
		}
	}
	search := strings.ToLower(q.Search)

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Content.Manufacturer), search) {
			continue
		}
		if !country.Overlap(p.Content.Countries, regions) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ExistenceQuery is one (name, countries) pair from a bulk availability
// check.
type ExistenceQuery struct {
	Name      string         `json:"name"`
	Countries []country.Code `json:"countries"`
}

// CheckExistence resolves a batch of (name, countries) pairs in one pass.
// A product answers a pair when its name matches exactly and its recorded
// countries contain every requested country. Each matching product appears
// once, in catalog order.
func (s *Store) CheckExistence(ctx context.Context, pairs []ExistenceQuery) ([]Product, error) {
	if len(pairs) == 0 {
		return []Product{}, nil
	}
	names := make(map[string]struct{}, len(pairs))
	placeholders := make([]string, 0, len(pairs))
	var args []any
	for _, pair := range pairs {
		if _, seen := names[pair.Name]; seen {
			continue
		}
		names[pair.Name] = struct{}{}
		placeholders = append(placeholders, "?")
		args = append(args, pair.Name)
	}
	products, err := s.list(ctx, fmt.Sprintf(
		`SELECT product_id, name, category, status, content FROM products
		 WHERE name IN (%s) ORDER BY product_id`,
		strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		for _, pair := range pairs {
			if p.Name == pair.Name && country.ContainsAll(p.Content.Countries, pair.Countries) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// Edit is an optional content replacement applied together with a status
// change, used by the admin accept-with-edit flow.
type Edit struct {
	Name     string
	Category Category
	Content  Content
}

// ChangeStatus updates a product's moderation status, optionally replacing
// its name, category and content in the same write.
func (s *Store) ChangeStatus(ctx context.Context, productID int64, status Status, edit *Edit) error {
	var res sql.Result
	var err error
	if edit == nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE products SET status = ? WHERE product_id = ?`,
			string(status), productID)
	} else {
		var body []byte
		body, err = json.Marshal(edit.Content)
		if err != nil {
			return fmt.Errorf("marshal product content: %w", err)
		}
		res, err = s.db.ExecContext(ctx,
			`UPDATE products SET status = ?, name = ?, category = ?, content = ? WHERE product_id = ?`,
			string(status), edit.Name, string(edit.Category), string(body), productID)
	}
	if err != nil {
		return fmt.Errorf("update product status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLinks links (or, with unlink, severs) every product in ids to every
// other product in the set. Unknown ids are skipped. Each product's linked
// list stays free of duplicates and never contains the product itself.
func (s *Store) UpdateLinks(ctx context.Context, ids []int64, unlink bool) error {
	for _, id := range ids {
		p, err := s.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		linked := p.Content.LinkedProducts
		for _, other := range ids {
			if other == id {
				continue
			}
			if unlink {
				linked = removeID(linked, other)
			} else if !containsID(linked, other) {
				linked = append(linked, other)
			}
		}
		p.Content.LinkedProducts = linked
		body, err := json.Marshal(p.Content)
		if err != nil {
			return fmt.Errorf("marshal product content: %w", err)
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE products SET content = ? WHERE product_id = ?`,
			string(body), id); err != nil {
			return fmt.Errorf("update product links: %w", err)
		}
	}
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var category, status, body string
	if err := row.Scan(&p.ProductID, &p.Name, &category, &status, &body); err != nil {
		return nil, err
	}
	p.Category = Category(category)
	p.Status = Status(status)
	if err := json.Unmarshal([]byte(body), &p.Content); err != nil {
		return nil, fmt.Errorf("decode product content: %w", err)
	}
	return &p, nil
}
