package database

import (
	"context"
	"errors"
	"fmt"

	"balance-sheet-rag/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// ErrNotFound is returned when a document or company does not exist.
var ErrNotFound = errors.New("record not found")

// DB represents the database connection
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	// The vector type must exist before the pool registers it on each connection.
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// Initialize sets up the database tables and indices
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS companies (
			id BIGSERIAL PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create companies table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			company_id BIGINT REFERENCES companies(id),
			company_name TEXT,
			fiscal_year TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	// Embedding is nullable: a chunk whose embedding failed is kept but never ranked.
	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS document_chunks (
			id BIGSERIAL PRIMARY KEY,
			document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			page_number INTEGER,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding vector
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create document_chunks table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS financial_metrics (
			id BIGSERIAL PRIMARY KEY,
			document_id BIGINT REFERENCES documents(id) ON DELETE CASCADE,
			company_id BIGINT REFERENCES companies(id),
			year INTEGER NOT NULL,
			metric_name TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			unit TEXT NOT NULL DEFAULT 'INR'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create financial_metrics table: %w", err)
	}

	// Create indices for better query performance
	_, err = db.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS document_chunks_document_idx ON document_chunks (document_id, page_number, chunk_index);
		CREATE INDEX IF NOT EXISTS financial_metrics_document_idx ON financial_metrics (document_id, metric_name, year);
		CREATE INDEX IF NOT EXISTS financial_metrics_company_idx ON financial_metrics (company_id, metric_name, year);
	`)
	if err != nil {
		return fmt.Errorf("failed to create additional indices: %w", err)
	}

	return nil
}

// UpsertCompany returns the id of the company with the given code, creating it when missing.
func (db *DB) UpsertCompany(ctx context.Context, code, name string) (int64, error) {
	if name == "" {
		name = code
	}
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO companies (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, code, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert company %q: %w", code, err)
	}
	return id, nil
}

// CompanyByCode resolves a company code to its id.
func (db *DB) CompanyByCode(ctx context.Context, code string) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `SELECT id FROM companies WHERE code = $1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("company %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up company %q: %w", code, err)
	}
	return id, nil
}

// CreateDocument records an uploaded report. companyID may be 0.
func (db *DB) CreateDocument(ctx context.Context, filename, storagePath string, companyID int64) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO documents (filename, storage_path, company_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, filename, storagePath, nullableID(companyID)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create document: %w", err)
	}
	return id, nil
}

// UpdateDocumentMeta stores the cover-page metadata. Empty values keep the current ones.
func (db *DB) UpdateDocumentMeta(ctx context.Context, documentID int64, companyName, fiscalYear string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE documents
		SET company_name = COALESCE(NULLIF($2, ''), company_name),
		    fiscal_year = COALESCE(NULLIF($3, ''), fiscal_year)
		WHERE id = $1
	`, documentID, companyName, fiscalYear)
	if err != nil {
		return fmt.Errorf("failed to update document %d: %w", documentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %d: %w", documentID, ErrNotFound)
	}
	return nil
}

// GetDocument loads a document record.
func (db *DB) GetDocument(ctx context.Context, documentID int64) (*models.Document, error) {
	var (
		doc                     models.Document
		companyName, fiscalYear *string
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT id, filename, storage_path, company_name, fiscal_year
		FROM documents WHERE id = $1
	`, documentID).Scan(&doc.ID, &doc.Filename, &doc.StoragePath, &companyName, &fiscalYear)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", documentID, err)
	}
	if companyName != nil {
		doc.CompanyName = *companyName
	}
	if fiscalYear != nil {
		doc.FiscalYear = *fiscalYear
	}
	return &doc, nil
}

// ScopeName returns the display name for a scope: the document's company
// name (or its filename when none was extracted), or the company's name.
func (db *DB) ScopeName(ctx context.Context, scope models.Scope) (string, error) {
	if scope.IsDocument() {
		doc, err := db.GetDocument(ctx, scope.DocumentID)
		if err != nil {
			return "", err
		}
		if doc.CompanyName != "" {
			return doc.CompanyName, nil
		}
		return doc.Filename, nil
	}

	var name string
	err := db.Pool.QueryRow(ctx, `SELECT name FROM companies WHERE id = $1`, scope.CompanyID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("company %d: %w", scope.CompanyID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load company %d: %w", scope.CompanyID, err)
	}
	return name, nil
}

// AppendChunk stores a single chunk
func (db *DB) AppendChunk(ctx context.Context, chunk models.Chunk) error {
	_, err := db.Pool.Exec(ctx, insertChunkSQL, chunkArgs(chunk)...)
	if err != nil {
		return fmt.Errorf("failed to store chunk: %w", err)
	}
	return nil
}

const insertChunkSQL = `
	INSERT INTO document_chunks (document_id, page_number, chunk_index, text, embedding)
	VALUES ($1, $2, $3, $4, $5)
`

// ReplaceChunks deletes a document's chunks and appends the new ones in one
// transaction, so readers see either the old set or the new one.
func (db *DB) ReplaceChunks(ctx context.Context, documentID int64, chunks []models.Chunk) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks of document %d: %w", documentID, err)
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		c.DocumentID = documentID
		batch.Queue(insertChunkSQL, chunkArgs(c)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store chunks of document %d: %w", documentID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunks of document %d: %w", documentID, err)
	}
	return nil
}

func chunkArgs(c models.Chunk) []any {
	var page *int
	if c.PageNumber > 0 {
		page = &c.PageNumber
	}
	var vec *pgvector.Vector
	if c.HasEmbedding() {
		v := pgvector.NewVector(c.Embedding)
		vec = &v
	}
	return []any{c.DocumentID, page, c.ChunkIndex, c.Text, vec}
}

// ListChunks returns every chunk of a document in page order.
func (db *DB) ListChunks(ctx context.Context, documentID int64) ([]models.Chunk, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, document_id, page_number, chunk_index, text, embedding
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY page_number NULLS LAST, chunk_index, id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var (
			chunk models.Chunk
			page  *int
			vec   *pgvector.Vector
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &page, &chunk.ChunkIndex, &chunk.Text, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if page != nil {
			chunk.PageNumber = *page
		}
		if vec != nil {
			chunk.Embedding = vec.Slice()
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return chunks, nil
}

// InsertMetrics appends metric rows for a document. companyID may be 0.
// Rows are not deduplicated; readers keep the first row per year.
func (db *DB) InsertMetrics(ctx context.Context, documentID, companyID int64, metrics []models.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO financial_metrics (document_id, company_id, year, metric_name, value, unit)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, nullableID(documentID), nullableID(companyID), m.Year, m.Name, m.Value, m.Unit)
	}
	if err := db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store metrics: %w", err)
	}
	return nil
}

// ListMetrics returns, per metric name, the values of the most recent
// limitPerMetric distinct years for the scope.
func (db *DB) ListMetrics(ctx context.Context, scope models.Scope, names []string, limitPerMetric int) (map[string]map[int]float64, error) {
	column := "company_id"
	id := scope.CompanyID
	if scope.IsDocument() {
		column = "document_id"
		id = scope.DocumentID
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT year, metric_name, value, unit
		FROM financial_metrics
		WHERE `+column+` = $1 AND metric_name = ANY($2)
		ORDER BY year DESC, id
	`, id, names)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}

	metrics, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Metric, error) {
		var m models.Metric
		err := row.Scan(&m.Year, &m.Name, &m.Value, &m.Unit)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan metrics: %w", err)
	}

	return LatestPerMetric(metrics, limitPerMetric), nil
}

// MetricsByYear is ListMetrics pivoted to year -> name -> value.
func (db *DB) MetricsByYear(ctx context.Context, scope models.Scope, names []string, limitPerMetric int) (models.MetricsByYear, error) {
	perMetric, err := db.ListMetrics(ctx, scope, names, limitPerMetric)
	if err != nil {
		return nil, err
	}
	return PivotByYear(perMetric), nil
}

// LatestPerMetric keeps, for each metric name, the first limit distinct years
// of rows already ordered by year descending. The first row seen for a
// (name, year) pair wins. A non-positive limit keeps every year.
func LatestPerMetric(rows []models.Metric, limit int) map[string]map[int]float64 {
	out := make(map[string]map[int]float64)
	for _, m := range rows {
		years, ok := out[m.Name]
		if !ok {
			years = make(map[int]float64)
			out[m.Name] = years
		}
		if _, seen := years[m.Year]; seen {
			continue
		}
		if limit > 0 && len(years) >= limit {
			continue
		}
		years[m.Year] = m.Value
	}
	return out
}

// PivotByYear turns name -> year -> value into year -> name -> value.
func PivotByYear(perMetric map[string]map[int]float64) models.MetricsByYear {
	out := make(models.MetricsByYear)
	for name, years := range perMetric {
		for year, value := range years {
			if out[year] == nil {
				out[year] = make(map[string]float64)
			}
			out[year][name] = value
		}
	}
	return out
}

func nullableID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
