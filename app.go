package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	orchestrator "github.com/tanpawarit/fanout-concierge/agent/agents/orchestrator"
	"github.com/tanpawarit/fanout-concierge/agent/agents/specialist"
	catalogx "github.com/tanpawarit/fanout-concierge/agent/catalog"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	handlerx "github.com/tanpawarit/fanout-concierge/agent/handler"
	knowledgex "github.com/tanpawarit/fanout-concierge/agent/knowledge"
	llmx "github.com/tanpawarit/fanout-concierge/agent/llm"
	"github.com/tanpawarit/fanout-concierge/agent/session"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
	configx "github.com/tanpawarit/fanout-concierge/pkg/config"
	databasex "github.com/tanpawarit/fanout-concierge/pkg/database"
)

// Catalog names served by the built-in handlers.
const (
	knowledgeAgent = "knowledge_agent"
	databaseAgent  = "database_agent"
)

const knowledgeTable = "knowledge_chunks"

type app struct {
	chat    *session.Service
	cleanup func()
}

func openDatabase(ctx context.Context) (*bun.DB, error) {
	dbCfg, err := configx.New[databasex.Config]("DB")
	if err != nil {
		return nil, err
	}
	return databasex.Open(ctx, *dbCfg)
}

func newEmbedder(cfg llmx.Config) (*knowledgex.OpenAIEmbedder, error) {
	client, model, err := cfg.EmbeddingClient()
	if err != nil {
		return nil, err
	}
	return knowledgex.NewOpenAIEmbedder(client, model)
}

func newApp(ctx context.Context) (*app, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	engineCfg, err := configx.New[orchestrator.Config]("ENGINE")
	if err != nil {
		return nil, err
	}

	catalog, err := catalogx.Load(engineCfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = db.Close()
		}
	}()

	chunks := knowledgex.NewStore(db)
	if err := chunks.Init(ctx); err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(*llmCfg)
	if err != nil {
		return nil, err
	}

	registry, err := specialist.NewRegistry(ctx, *llmCfg, catalog)
	if err != nil {
		return nil, err
	}

	knowledge, err := handlerx.NewKnowledgeHandler(
		knowledgex.NewRetriever(chunks, embedder, knowledgex.DefaultTopK),
		registry.Knowledge,
	)
	if err != nil {
		return nil, err
	}
	database, err := handlerx.NewDatabaseHandler(db, registry.Database, handlerx.DefaultMaxRows, knowledgeTable)
	if err != nil {
		return nil, err
	}

	engine, err := orchestrator.New(registry.Intake, registry.Aggregator, catalog, map[string]contractx.Handler{
		knowledgeAgent: knowledge,
		databaseAgent:  database,
	}, *engineCfg)
	if err != nil {
		return nil, err
	}

	ok = true
	return &app{
		chat:    session.NewService(engine, newHistoryStore(engineCfg.HistoryLimit), engineCfg.HistoryLimit),
		cleanup: func() { _ = db.Close() },
	}, nil
}

// newHistoryStore uses Upstash when UPSTASH_* is configured and process
// memory otherwise.
func newHistoryStore(limit int) statex.HistoryStore {
	cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH")
	if err != nil {
		log.Info().Msg("upstash not configured, keeping history in memory")
		return statex.NewMemoryStore(limit)
	}
	store, err := statex.NewUpstashRedisStore(*cfg, statex.WithHistoryLimit(limit))
	if err != nil {
		log.Warn().Err(err).Msg("upstash store unavailable, keeping history in memory")
		return statex.NewMemoryStore(limit)
	}
	return store
}
