package main

import (
	"fmt"

	"github.com/spf13/cobra"

	knowledgex "github.com/tanpawarit/fanout-concierge/agent/knowledge"
	llmx "github.com/tanpawarit/fanout-concierge/agent/llm"
	configx "github.com/tanpawarit/fanout-concierge/pkg/config"
	"github.com/tanpawarit/fanout-concierge/pkg/csvsync"
)

var (
	ingestDir     string
	ingestSize    int
	ingestOverlap int
	csvDir        string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index .md and .txt files into the knowledge store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		llmCfg, err := configx.New[llmx.Config]("LLM")
		if err != nil {
			return err
		}
		embedder, err := newEmbedder(*llmCfg)
		if err != nil {
			return err
		}

		db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		store := knowledgex.NewStore(db)
		if err := store.Init(ctx); err != nil {
			return err
		}

		report, err := knowledgex.NewIngestor(store, embedder, knowledgex.IngestOptions{
			ChunkSize:    ingestSize,
			ChunkOverlap: ingestOverlap,
		}).IngestDir(ctx, ingestDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files into %d chunks\n", report.Files, report.Chunks)
		return nil
	},
}

var syncCSVCmd = &cobra.Command{
	Use:   "sync-csv",
	Short: "Replace database tables with the CSV files in a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := csvsync.SyncDir(ctx, db, csvDir, csvsync.Options{Protected: []string{knowledgeTable}})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "replaced %d tables (%d rows), dropped %d\n",
			len(report.Replaced), report.Rows, len(report.Dropped))
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "data/knowledge", "directory of knowledge files")
	ingestCmd.Flags().IntVar(&ingestSize, "chunk-size", knowledgex.DefaultChunkSize, "chunk size in characters")
	ingestCmd.Flags().IntVar(&ingestOverlap, "chunk-overlap", knowledgex.DefaultChunkOverlap, "overlap between chunks in characters")
	syncCSVCmd.Flags().StringVar(&csvDir, "dir", "data/csv", "directory of CSV files")
}
