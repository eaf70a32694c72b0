// Package bootstrap wires configuration into the stores and collaborators the
// binaries share.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"content-forge/artifacts"
	"content-forge/collaborators"
	"content-forge/config"
	"content-forge/db"
	"content-forge/generator"
	"content-forge/httpclient"
	"content-forge/imagesearch"
	"content-forge/llm"
	"content-forge/pipeline"
	"content-forge/quota"
	"content-forge/renderer"
	"content-forge/repositories"
	"content-forge/research"
	"content-forge/screenshots"
)

// Repositories groups the Mongo repositories over one database.
type Repositories struct {
	Contents *repositories.ContentItemRepository
	Runs     *repositories.GenerationRunRepository
	Users    *repositories.UserRepository
	Txns     *repositories.CreditTransactionRepository
	AILogs   *repositories.AILogRepository
}

// OpenRepositories connects to Mongo and builds the repositories.
func OpenRepositories(ctx context.Context) (*Repositories, error) {
	if err := db.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialize MongoDB: %w", err)
	}
	d := db.Database()
	return &Repositories{
		Contents: repositories.NewContentItemRepository(d),
		Runs:     repositories.NewGenerationRunRepository(d),
		Users:    repositories.NewUserRepository(d),
		Txns:     repositories.NewCreditTransactionRepository(d),
		AILogs:   repositories.NewAILogRepository(d),
	}, nil
}

// Orchestrator builds the generation pipeline from config.
func Orchestrator(ctx context.Context, cfg config.AppConfig, repos *Repositories) (*pipeline.Orchestrator, error) {
	base, err := llm.NewFromConfig(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	client := llm.NewLogged(base, repos.AILogs, quota.NewLimiterFromConfig(cfg))

	httpClient := httpclient.New(httpclient.Config{Timeout: cfg.Pipeline.CallTimeout})
	browser := renderer.New(cfg.Browser)

	researcher, err := Researcher(cfg, httpClient, browser)
	if err != nil {
		return nil, err
	}

	tx := db.NewTransactor(db.Client())
	deps := pipeline.Dependencies{
		Runs:        repos.Runs,
		Contents:    repos.Contents,
		Artifacts:   artifacts.NewStore(repos.Runs),
		Tx:          tx,
		Researcher:  researcher,
		Images:      ImageSearcher(cfg, httpClient),
		Writer:      generator.NewWriter(client),
		Quality:     generator.NewQualityChecker(client),
		Validator:   generator.NewValidator(client),
		Updater:     generator.NewUpdater(client),
		Ledger:      repositories.NewCreditLedger(tx, repos.Runs, repos.Users, repos.Txns),
	}
	if cfg.Screenshots.Enabled {
		deps.Screenshots = screenshots.NewEnhancer(browser, cfg.Screenshots)
	}
	return pipeline.New(deps, pipeline.ConfigFrom(cfg)), nil
}

// Researcher picks the research collaborator for research.mode.
func Researcher(cfg config.AppConfig, httpClient *http.Client, browser research.PageRenderer) (collaborators.Researcher, error) {
	switch cfg.Research.Mode {
	case "http":
		base := httpclient.NewBaseClientWithClient(httpClient, cfg.Research.BaseURL)
		return research.NewHTTPResearcher(base, cfg.Research.APIKey, cfg.Research.CallbackURL), nil
	case "feed", "":
		var pages research.PageRenderer
		if cfg.Research.RenderWithBrowser {
			pages = browser
		}
		return research.NewFeedResearcher(cfg.Research, httpClient, pages), nil
	default:
		return nil, fmt.Errorf("unknown research mode %q", cfg.Research.Mode)
	}
}

// ImageSearcher chains the stock search, when configured, before the
// source-page fallback.
func ImageSearcher(cfg config.AppConfig, httpClient *http.Client) collaborators.ImageSearcher {
	var chain imagesearch.Chain
	if cfg.ImageSearch.APIKey != "" && cfg.ImageSearch.BaseURL != "" {
		base := httpclient.NewBaseClientWithClient(httpClient, cfg.ImageSearch.BaseURL)
		chain = append(chain, imagesearch.NewStockClient(base, cfg.ImageSearch))
	}
	return append(chain, imagesearch.NewSourceImageFinder(httpClient))
}

// Shutdown disconnects Mongo with a bounded wait.
func Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Disconnect(ctx); err != nil {
		config.Logger.Errorf("failed to disconnect MongoDB: %v", err)
	}
}
