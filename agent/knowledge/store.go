package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ChunkRecord is one embedded passage in the knowledge_chunks table.
type ChunkRecord struct {
	bun.BaseModel `bun:"table:knowledge_chunks,alias:kc"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Source    string    `bun:"source,notnull"`
	Seq       int       `bun:"seq,notnull"`
	Content   string    `bun:"content,notnull"`
	Embedding []float32 `bun:"embedding,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type ScoredChunk struct {
	Source  string
	Seq     int
	Content string
	Score   float64
}

type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*ChunkRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create knowledge_chunks: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*ChunkRecord)(nil)).
		Index("knowledge_chunks_source_idx").
		IfNotExists().
		Column("source").
		Exec(ctx); err != nil {
		return fmt.Errorf("create knowledge_chunks index: %w", err)
	}
	return nil
}

// ReplaceSource swaps every chunk of source for the given ones in a single
// transaction.
func (s *Store) ReplaceSource(ctx context.Context, source string, contents []string, vectors [][]float32) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return errors.New("knowledge source is required")
	}
	if len(contents) != len(vectors) {
		return fmt.Errorf("source %s: %d chunks but %d vectors", source, len(contents), len(vectors))
	}

	now := s.now().UTC()
	records := make([]ChunkRecord, 0, len(contents))
	for i, content := range contents {
		records = append(records, ChunkRecord{
			Source:    source,
			Seq:       i,
			Content:   content,
			Embedding: vectors[i],
			CreatedAt: now,
		})
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*ChunkRecord)(nil)).
			Where("source = ?", source).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete chunks of %s: %w", source, err)
		}
		if len(records) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&records).Exec(ctx); err != nil {
			return fmt.Errorf("insert chunks of %s: %w", source, err)
		}
		return nil
	})
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*ChunkRecord)(nil)).Count(ctx)
}

// Search ranks every stored chunk by cosine similarity to vector.
// TODO: push ranking into the database when the pgvector extension is available.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	var records []ChunkRecord
	if err := s.db.NewSelect().
		Model(&records).
		Column("source", "seq", "content", "embedding").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load knowledge chunks: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(records))
	for _, r := range records {
		scored = append(scored, ScoredChunk{
			Source:  r.Source,
			Seq:     r.Seq,
			Content: r.Content,
			Score:   cosine(vector, r.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
