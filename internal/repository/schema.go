package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// ImportJobsColumns holds the columns for the "import_jobs" table.
	ImportJobsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "filename", Type: field.TypeString},
		{Name: "source_path", Type: field.TypeString, Default: ""},
		{Name: "content_hash", Type: field.TypeString, Size: 64},
		{Name: "status", Type: field.TypeString, Size: 16},
		{Name: "mapping_source", Type: field.TypeString, Default: ""},
		{Name: "product_count", Type: field.TypeInt, Default: 0},
		{Name: "image_count", Type: field.TypeInt, Default: 0},
		{Name: "skipped_rows", Type: field.TypeInt, Default: 0},
		{Name: "skipped_images", Type: field.TypeInt, Default: 0},
		{Name: "error_message", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
	}
	// ImportJobsTable holds the schema information for the "import_jobs" table.
	ImportJobsTable = &schema.Table{
		Name:       "import_jobs",
		Columns:    ImportJobsColumns,
		PrimaryKey: []*schema.Column{ImportJobsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "importjob_content_hash_status", Columns: []*schema.Column{ImportJobsColumns[3], ImportJobsColumns[4]}},
		},
	}

	// ProductsColumns holds the columns for the "products" table.
	ProductsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "code", Type: field.TypeString, Size: 255},
		{Name: "code_synthesized", Type: field.TypeBool, Default: false},
		{Name: "name", Type: field.TypeString, Size: 2147483647},
		{Name: "price_cents", Type: field.TypeInt64, Default: 0},
		{Name: "quantity", Type: field.TypeInt, Default: 0},
		{Name: "description", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "category", Type: field.TypeString, Default: ""},
		{Name: "manufacturer", Type: field.TypeString, Default: ""},
		{Name: "location", Type: field.TypeString, Default: ""},
		{Name: "materials", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "dimensions", Type: field.TypeString, Default: ""},
		{Name: "image_url", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "source_row", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "import_job_id", Type: field.TypeUUID, Nullable: true},
		// code_scope is empty for supplier codes and the import job id for synthesized
		// ones, so synthesized codes never collide across imports.
		{Name: "code_scope", Type: field.TypeString, Size: 64, Default: ""},
	}
	// ProductsTable holds the schema information for the "products" table.
	ProductsTable = &schema.Table{
		Name:       "products",
		Columns:    ProductsColumns,
		PrimaryKey: []*schema.Column{ProductsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "products_import_jobs_products",
				Columns:    []*schema.Column{ProductsColumns[16]},
				RefColumns: []*schema.Column{ImportJobsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{Name: "product_code_code_scope", Unique: true, Columns: []*schema.Column{ProductsColumns[1], ProductsColumns[17]}},
			{Name: "product_category", Columns: []*schema.Column{ProductsColumns[7]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ImportJobsTable,
		ProductsTable,
	}
)

func init() {
	ProductsTable.ForeignKeys[0].RefTable = ImportJobsTable
}

// Migrate creates or updates the catalog tables.
func (s *Store) Migrate(ctx context.Context) error {
	s.log.Info("migrating schema", "dialect", s.Dialect, "tables", len(Tables))
	m, err := schema.NewMigrate(s.Driver)
	if err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		s.log.Error("schema migration failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	s.log.Info("schema migrated")
	return nil
}
