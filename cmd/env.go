package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/extract"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/onboard"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/store"
	anthropicpkg "github.com/rehberim360/yapay-zeka-chatbot-sub000/pkg/anthropic"
	"github.com/rehberim360/yapay-zeka-chatbot-sub000/pkg/reader"
)

// onboardEnv holds the store and engine needed by the onboarding commands.
type onboardEnv struct {
	Store  store.Store
	Engine *onboard.Engine
}

// Close releases resources held by the environment.
func (oe *onboardEnv) Close() {
	if oe.Store != nil {
		_ = oe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv validates config, opens the store, builds the reader and
// extraction clients and assembles the engine. Callers should defer
// env.Close().
func initEnv(ctx context.Context, mode string) (*onboardEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	extractClient := extract.NewClient(anthropicClient, extract.Config{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         int64(cfg.Anthropic.MaxTokens),
		MaxSuggestedPages: cfg.Onboard.MaxSuggestedPages,
	})

	readerClient := reader.NewClient(cfg.Reader.Key,
		reader.WithBaseURL(cfg.Reader.BaseURL),
		reader.WithRequestsPerMinute(cfg.Reader.RequestsPerMinute),
	)

	tpl, err := onboard.LoadPersonaTemplate(cfg.Onboard.PersonaTemplatePath)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load persona template")
	}

	engine := onboard.NewEngine(st, readerClient, extractClient, onboard.NewPromptBuilder(tpl), onboard.Config{
		MaxSuggestedPages: cfg.Onboard.MaxSuggestedPages,
		MaxDetailPages:    cfg.Onboard.MaxDetailPages,
		ScrapeMinDelay:    time.Duration(cfg.Onboard.ScrapeDelayMinMs) * time.Millisecond,
		ScrapeMaxDelay:    time.Duration(cfg.Onboard.ScrapeDelayMaxMs) * time.Millisecond,
	})

	return &onboardEnv{Store: st, Engine: engine}, nil
}
