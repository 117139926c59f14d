package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

type IngestOptions struct {
	ChunkSize    int
	ChunkOverlap int
}

type IngestReport struct {
	Files  int
	Chunks int
}

type Ingestor struct {
	store    *Store
	embedder Embedder
	opts     IngestOptions
}

func NewIngestor(store *Store, embedder Embedder, opts IngestOptions) *Ingestor {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	return &Ingestor{store: store, embedder: embedder, opts: opts}
}

// IngestDir indexes every .md and .txt file under root. Sources are keyed by
// their slash-separated path relative to root.
func (in *Ingestor) IngestDir(ctx context.Context, root string) (IngestReport, error) {
	var report IngestReport
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isKnowledgeFile(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		n, err := in.IngestText(ctx, filepath.ToSlash(rel), string(raw))
		if err != nil {
			return err
		}
		report.Files++
		report.Chunks += n
		return nil
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

func (in *Ingestor) IngestText(ctx context.Context, source, text string) (int, error) {
	chunks := Split(text, in.opts.ChunkSize, in.opts.ChunkOverlap)
	var vectors [][]float32
	if len(chunks) > 0 {
		var err error
		vectors, err = in.embedder.Embed(ctx, chunks)
		if err != nil {
			return 0, fmt.Errorf("embed %s: %w", source, err)
		}
	}
	if err := in.store.ReplaceSource(ctx, source, chunks, vectors); err != nil {
		return 0, err
	}
	log.Debug().Str("source", source).Int("chunks", len(chunks)).Msg("knowledge source indexed")
	return len(chunks), nil
}

func isKnowledgeFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return true
	}
	return false
}
