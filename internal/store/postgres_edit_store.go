package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/domain"
	_ "github.com/lib/pq"
)

const editSchemaSQL = `
CREATE TABLE IF NOT EXISTS edits (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	subject TEXT NOT NULL,
	replacement TEXT NOT NULL,
	style TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	quality INTEGER NOT NULL,
	resolution TEXT NOT NULL,
	format TEXT NOT NULL,
	layers JSONB NOT NULL,
	transform_url TEXT NOT NULL DEFAULT '',
	status_code INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	output_key TEXT NOT NULL DEFAULT '',
	output_bytes INTEGER NOT NULL DEFAULT 0,
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	webhook_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

const editColumns = `id, status, subject, replacement, style, detail, quality, resolution, format, layers,
	transform_url, status_code, error, filename, content_type, output_key, output_bytes, width, height,
	webhook_url, created_at, updated_at`

type PostgresEditStore struct {
	db *sql.DB
}

func NewPostgresEditStore(ctx context.Context, dsn string) (*PostgresEditStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresEditStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresEditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, editSchemaSQL); err != nil {
		return fmt.Errorf("ensure edits schema: %w", err)
	}
	return nil
}

func (s *PostgresEditStore) Close() error {
	return s.db.Close()
}

func (s *PostgresEditStore) Create(ctx context.Context, edit domain.Edit) error {
	layersJSON, err := marshalLayers(edit)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO edits (`+editColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		edit.ID,
		edit.Status,
		edit.Subject,
		edit.Replacement,
		edit.Style,
		edit.Detail,
		edit.Quality,
		edit.Resolution,
		edit.Format,
		layersJSON,
		edit.TransformURL,
		edit.StatusCode,
		edit.Error,
		edit.Filename,
		edit.ContentType,
		edit.OutputKey,
		edit.OutputBytes,
		edit.Width,
		edit.Height,
		edit.WebhookURL,
		edit.CreatedAt,
		edit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert edit: %w", err)
	}
	return nil
}

func (s *PostgresEditStore) Get(ctx context.Context, id string) (domain.Edit, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+editColumns+`
		 FROM edits
		 WHERE id = $1`,
		id,
	)

	var (
		edit       domain.Edit
		layersJSON []byte
	)
	if err := row.Scan(
		&edit.ID,
		&edit.Status,
		&edit.Subject,
		&edit.Replacement,
		&edit.Style,
		&edit.Detail,
		&edit.Quality,
		&edit.Resolution,
		&edit.Format,
		&layersJSON,
		&edit.TransformURL,
		&edit.StatusCode,
		&edit.Error,
		&edit.Filename,
		&edit.ContentType,
		&edit.OutputKey,
		&edit.OutputBytes,
		&edit.Width,
		&edit.Height,
		&edit.WebhookURL,
		&edit.CreatedAt,
		&edit.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Edit{}, false, nil
		}
		return domain.Edit{}, false, fmt.Errorf("query edit: %w", err)
	}

	if err := json.Unmarshal(layersJSON, &edit.Layers); err != nil {
		return domain.Edit{}, false, fmt.Errorf("unmarshal edit layers: %w", err)
	}
	return edit, true, nil
}

func (s *PostgresEditStore) Update(ctx context.Context, edit domain.Edit) error {
	layersJSON, err := marshalLayers(edit)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE edits
		 SET status = $1, layers = $2, transform_url = $3, status_code = $4, error = $5,
		     filename = $6, content_type = $7, output_key = $8, output_bytes = $9,
		     width = $10, height = $11, updated_at = $12
		 WHERE id = $13`,
		edit.Status,
		layersJSON,
		edit.TransformURL,
		edit.StatusCode,
		edit.Error,
		edit.Filename,
		edit.ContentType,
		edit.OutputKey,
		edit.OutputBytes,
		edit.Width,
		edit.Height,
		time.Now().UTC(),
		edit.ID,
	)
	if err != nil {
		return fmt.Errorf("update edit: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresEditStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete edit: %w", err)
	}
	return requireOneRow(res)
}

func marshalLayers(edit domain.Edit) ([]byte, error) {
	layers := edit.Layers
	if layers == nil {
		return []byte("[]"), nil
	}
	out, err := json.Marshal(layers)
	if err != nil {
		return nil, fmt.Errorf("marshal edit layers: %w", err)
	}
	return out, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrEditNotFound
	}
	return nil
}
