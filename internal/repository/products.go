package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/entity"
)

// upsertChunk keeps each INSERT well under SQLite's bound-parameter limit.
const upsertChunk = 200

type ProductRepository interface {
	UpsertBatch(ctx context.Context, products []entity.Product) (int, error)
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
	List(ctx context.Context, opts ListOptions) ([]entity.Product, error)
	Count(ctx context.Context) (int, error)
}

// ListOptions filter List. Zero values return everything in insertion order.
type ListOptions struct {
	Category    string
	ImportJobID *uuid.UUID
	Limit       int
}

type productRepo struct {
	store *Store
	log   *slog.Logger
	now   func() time.Time
}

func NewProductRepository(store *Store, log *slog.Logger) ProductRepository {
	if log == nil {
		log = slog.Default()
	}
	return &productRepo{store: store, log: log, now: time.Now}
}

var insertColumns = []string{
	"code", "code_synthesized", "name", "price_cents", "quantity", "description",
	"category", "manufacturer", "location", "materials", "dimensions", "image_url",
	"source_row", "import_job_id", "created_at", "updated_at",
}

// updateColumns are overwritten when a code already exists. created_at survives.
var updateColumns = []string{
	"code_synthesized", "name", "price_cents", "quantity", "description",
	"category", "manufacturer", "location", "materials", "dimensions", "image_url",
	"source_row", "import_job_id", "updated_at",
}

var selectColumns = append([]string{"id"}, insertColumns...)

// conflictColumns identify a product. Supplier codes are shared by every import;
// synthesized codes belong to the import that produced them.
var conflictColumns = []string{"code", "code_scope"}

// UpsertBatch inserts products, updating rows whose supplier code already exists.
// Synthesized codes are scoped to the product's import job and never update a product
// from another import. The whole batch commits or none of it does.
func (r *productRepo) UpsertBatch(ctx context.Context, products []entity.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	tx, err := r.store.Driver.Tx(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx: %v", common.ErrDatabase, err)
	}

	now := r.now().UTC()
	for start := 0; start < len(products); start += upsertChunk {
		end := min(start+upsertChunk, len(products))
		query, args := r.upsertQuery(products[start:end], now)
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			_ = tx.Rollback()
			r.log.Error("products upsert failed", "rows", end-start, "err", err)
			return 0, fmt.Errorf("%w: upsert products: %v", common.ErrDatabase, err)
		}
	}
	if err := tx.Commit(); err != nil {
		r.log.Error("products upsert commit failed", "err", err)
		return 0, fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	r.log.Info("products upserted", "count", len(products))
	return len(products), nil
}

func (r *productRepo) upsertQuery(products []entity.Product, now time.Time) (string, []any) {
	ins := r.store.builder().Insert(ProductsTable.Name).Columns(append(insertColumns, "code_scope")...)
	for _, p := range products {
		ins.Values(
			p.Code, p.CodeSynthesized, p.Name, p.PriceCents, p.Quantity, p.Description,
			p.Category, p.Manufacturer, p.Location, strings.Join(p.Materials, ","), p.Dimensions,
			nullableString(p.ImageURL), p.SourceRow, nullableUUID(p.ImportJobID), now, now,
			codeScope(p),
		)
	}
	ins.OnConflict(
		entsql.ConflictColumns(conflictColumns...),
		entsql.ResolveWith(func(u *entsql.UpdateSet) {
			for _, c := range updateColumns {
				u.SetExcluded(c)
			}
		}),
	)
	return ins.Query()
}

// GetByCode returns the product with code, preferring a supplier code over a
// synthesized one and older rows over newer ones.
func (r *productRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	sel := r.store.builder().Select(selectColumns...).From(r.store.builder().Table(ProductsTable.Name)).
		Where(entsql.EQ("code", code)).OrderBy("code_scope", "id").Limit(1)
	out, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: product %q", common.ErrNotFound, code)
	}
	return &out[0], nil
}

func (r *productRepo) List(ctx context.Context, opts ListOptions) ([]entity.Product, error) {
	sel := r.store.builder().Select(selectColumns...).From(r.store.builder().Table(ProductsTable.Name)).OrderBy("id")
	if opts.Category != "" {
		sel.Where(entsql.EQ("category", opts.Category))
	}
	if opts.ImportJobID != nil {
		sel.Where(entsql.EQ("import_job_id", opts.ImportJobID.String()))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	return r.query(ctx, sel)
}

func (r *productRepo) Count(ctx context.Context) (int, error) {
	query, args := r.store.builder().Select(entsql.Count("*")).From(r.store.builder().Table(ProductsTable.Name)).Query()
	rows := &entsql.Rows{}
	if err := r.store.Driver.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("%w: count products: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("%w: scan count: %v", common.ErrDatabase, err)
		}
	}
	return n, rows.Err()
}

func (r *productRepo) query(ctx context.Context, sel *entsql.Selector) ([]entity.Product, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.store.Driver.Query(ctx, query, args, rows); err != nil {
		r.log.Error("products query failed", "err", err)
		return nil, fmt.Errorf("%w: query products: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.Product
	for rows.Next() {
		var (
			p         entity.Product
			materials string
			imageURL  sql.NullString
			jobID     uuid.NullUUID
		)
		err := rows.Scan(
			&p.ID, &p.Code, &p.CodeSynthesized, &p.Name, &p.PriceCents, &p.Quantity, &p.Description,
			&p.Category, &p.Manufacturer, &p.Location, &materials, &p.Dimensions, &imageURL,
			&p.SourceRow, &jobID, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan product: %v", common.ErrDatabase, err)
		}
		p.Materials = splitMaterials(materials)
		if imageURL.Valid {
			v := imageURL.String
			p.ImageURL = &v
		}
		if jobID.Valid {
			id := jobID.UUID
			p.ImportJobID = &id
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate products: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func splitMaterials(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func codeScope(p entity.Product) string {
	switch {
	case !p.CodeSynthesized:
		return ""
	case p.ImportJobID != nil:
		return p.ImportJobID.String()
	default:
		return uuid.NewString()
	}
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
