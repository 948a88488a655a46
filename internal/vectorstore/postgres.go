package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	apperrors "github.com/iron-dillo/cybersandbox/internal/pkg/errors"
)

// PostgresStore keeps one named collection of chunks in postgres with
// pgvector nearest-neighbor search. Distances are cosine distances as
// produced by the <=> operator.
type PostgresStore struct {
	db           *sqlx.DB
	collectionID int64
}

// OpenCollection get-or-creates the named collection and returns a store
// scoped to it.
func OpenCollection(ctx context.Context, db *sqlx.DB, name string) (*PostgresStore, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is required", apperrors.ErrInvalid)
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO collections (name, ctime) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	var id int64
	if err := db.GetContext(ctx, &id, `SELECT id FROM collections WHERE name = $1`, name); err != nil {
		return nil, fmt.Errorf("resolve collection: %w", err)
	}
	return &PostgresStore{db: db, collectionID: id}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, docID string, records []Record, source SourceRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	deleteSQL, args, err := builder.BuildDelete("chunks", map[string]interface{}{
		"collection_id": s.collectionID,
		"doc_id":        docID,
	})
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(deleteSQL), args...); err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}

	now := time.Now().Unix()
	const insertSQL = `
		INSERT INTO chunks (collection_id, id, doc_id, document, embedding, metadata, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (collection_id, id) DO UPDATE SET
			doc_id = EXCLUDED.doc_id,
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			mtime = EXCLUDED.mtime
	`
	for _, record := range records {
		blob, err := json.Marshal(record.Metadata)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insertSQL,
			s.collectionID,
			record.ID,
			record.DocID,
			record.Document,
			pgvector.NewVector(record.Embedding),
			blob,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", record.ID, err)
		}
	}

	const sourceSQL = `
		INSERT INTO sources (collection_id, doc_id, hash, chunk_count, chunk_mode, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (collection_id, doc_id) DO UPDATE SET
			hash = EXCLUDED.hash,
			chunk_count = EXCLUDED.chunk_count,
			chunk_mode = EXCLUDED.chunk_mode,
			ingested_at = EXCLUDED.ingested_at
	`
	if _, err := tx.ExecContext(ctx, sourceSQL,
		s.collectionID, docID, source.Hash, source.ChunkCount, source.ChunkMode, source.IngestedAt); err != nil {
		return fmt.Errorf("record source: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) Query(ctx context.Context, embedding []float32, n int) ([]Candidate, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n_results must be at least 1, got %d", apperrors.ErrInvalid, n)
	}
	const querySQL = `
		SELECT id, doc_id, document, metadata, embedding <=> $1 AS distance
		FROM chunks
		WHERE collection_id = $2
		ORDER BY distance ASC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, querySQL, pgvector.NewVector(embedding), s.collectionID, n)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocID, &c.Document, &blob, &c.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode chunk metadata %s: %w", c.ID, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *PostgresStore) GetSource(ctx context.Context, docID string) (*SourceRecord, error) {
	selectSQL, args, err := builder.BuildSelect("sources", map[string]interface{}{
		"collection_id": s.collectionID,
		"doc_id":        docID,
	}, []string{"doc_id", "hash", "chunk_count", "chunk_mode", "ingested_at"})
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, s.db.Rebind(selectSQL), args...)
	var src SourceRecord
	if err := row.Scan(&src.DocID, &src.Hash, &src.ChunkCount, &src.ChunkMode, &src.IngestedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &src, nil
}

func (s *PostgresStore) DeleteDoc(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"chunks", "sources"} {
		deleteSQL, args, err := builder.BuildDelete(table, map[string]interface{}{
			"collection_id": s.collectionID,
			"doc_id":        docID,
		})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(deleteSQL), args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
