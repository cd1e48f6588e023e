package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const extractJobTable = "extract_job"

var textType = map[string]string{
	dialect.Postgres: "text",
	dialect.SQLite:   "text",
}

var (
	// ExtractJobColumns holds the columns for the "extract_job" table.
	ExtractJobColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "filename", Type: field.TypeString},
		{Name: "source_path", Type: field.TypeString, SchemaType: textType},
		{Name: "content_hash", Type: field.TypeString, Size: 64},
		{Name: "family", Type: field.TypeString, Size: 32},
		{Name: "status", Type: field.TypeString, Size: 16},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
		{Name: "error_message", Type: field.TypeString, Nullable: true, SchemaType: textType},
		{Name: "raw_text", Type: field.TypeString, Nullable: true, SchemaType: textType},
		{Name: "method", Type: field.TypeString, Nullable: true},
		{Name: "pages", Type: field.TypeInt, Default: 0},
		{Name: "extracted_json", Type: field.TypeJSON, Nullable: true},
		{Name: "row_count", Type: field.TypeInt, Default: 0},
		{Name: "needs_review", Type: field.TypeBool, Default: false},
	}
	// ExtractJobTable holds the schema information for the "extract_job" table.
	ExtractJobTable = &schema.Table{
		Name:       extractJobTable,
		Columns:    ExtractJobColumns,
		PrimaryKey: []*schema.Column{ExtractJobColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "extractjob_family_status_started_at",
				Unique:  false,
				Columns: []*schema.Column{ExtractJobColumns[4], ExtractJobColumns[5], ExtractJobColumns[6]},
			},
			{
				Name:    "extractjob_content_hash",
				Unique:  false,
				Columns: []*schema.Column{ExtractJobColumns[3]},
			},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ExtractJobTable,
	}
)

// Migrate creates or updates the tables with ent's migration engine.
func Migrate(ctx context.Context, d *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := schema.NewMigrate(d.Driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		logger.Error("schema migration failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema up to date", "tables", len(Tables))
	return nil
}
