package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/regulaworks/corpagent/internal/domain"
)

// dbtx is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// KnowledgeStore persists knowledge index snapshots in Postgres with
// pgvector embeddings, so the daemon can restore retrieval state on start
// without calling the embedding backend.
type KnowledgeStore struct {
	pool *pgxpool.Pool
}

func NewKnowledgeStore(pool *pgxpool.Pool) *KnowledgeStore {
	return &KnowledgeStore{pool: pool}
}

// ReplaceSources swaps the persisted snapshot for the given sources in a
// single transaction. Readers never observe a half-written snapshot.
func (s *KnowledgeStore) ReplaceSources(ctx context.Context, sources []domain.KnowledgeSource) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := replaceSources(ctx, tx, sources); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

func replaceSources(ctx context.Context, db dbtx, sources []domain.KnowledgeSource) error {
	if _, err := db.Exec(ctx, `DELETE FROM knowledge_chunks`); err != nil {
		return err
	}
	if _, err := db.Exec(ctx, `DELETE FROM knowledge_sources`); err != nil {
		return err
	}

	for _, src := range sources {
		indexedAt := src.IndexedAt
		if indexedAt.IsZero() {
			indexedAt = time.Now().UTC()
		}
		_, err := db.Exec(ctx,
			`INSERT INTO knowledge_sources (id, title, source_type, indexed_at)
			 VALUES ($1, $2, $3, $4)`,
			src.ID, src.Title, string(src.SourceType), indexedAt,
		)
		if err != nil {
			return err
		}

		for _, c := range src.Chunks {
			_, err := db.Exec(ctx,
				`INSERT INTO knowledge_chunks (id, source_id, chunk_index, content, embedding)
				 VALUES ($1, $2, $3, $4, $5)`,
				c.ID, c.SourceID, c.ChunkIndex, c.Text, pgvector.NewVector(c.Embedding),
			)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// LoadSources returns the persisted snapshot. Sources come back in ID order
// with chunks in index order, matching how the in-memory index was built.
func (s *KnowledgeStore) LoadSources(ctx context.Context) ([]domain.KnowledgeSource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, source_type, indexed_at
		 FROM knowledge_sources ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []domain.KnowledgeSource
	index := make(map[string]int)
	for rows.Next() {
		var src domain.KnowledgeSource
		var sourceType string
		if err := rows.Scan(&src.ID, &src.Title, &sourceType, &src.IndexedAt); err != nil {
			return nil, err
		}
		src.SourceType = domain.SourceType(sourceType)
		index[src.ID] = len(sources)
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chunkRows, err := s.pool.Query(ctx,
		`SELECT id, source_id, chunk_index, content, embedding
		 FROM knowledge_chunks ORDER BY source_id, chunk_index`,
	)
	if err != nil {
		return nil, err
	}
	defer chunkRows.Close()

	for chunkRows.Next() {
		var c domain.Chunk
		var vec pgvector.Vector
		if err := chunkRows.Scan(&c.ID, &c.SourceID, &c.ChunkIndex, &c.Text, &vec); err != nil {
			return nil, err
		}
		c.Embedding = vec.Slice()
		if i, ok := index[c.SourceID]; ok {
			sources[i].Chunks = append(sources[i].Chunks, c)
		}
	}
	if err := chunkRows.Err(); err != nil {
		return nil, err
	}

	return sources, nil
}
