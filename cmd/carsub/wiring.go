package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kstephens0331/carsub/internal/browser"
	"github.com/kstephens0331/carsub/internal/campaign"
	"github.com/kstephens0331/carsub/internal/config"
	"github.com/kstephens0331/carsub/internal/ledger"
	"github.com/kstephens0331/carsub/internal/oracle"
	"github.com/kstephens0331/carsub/internal/session"
	"github.com/kstephens0331/carsub/internal/types"
)

// env is everything a command needs after config resolution.
type env struct {
	cfg     config.Config
	store   *ledger.Store
	planner *campaign.Planner
	dirs    []types.Directory
	profile types.BusinessProfile
}

// loadEnv resolves config, the ledger, the directory list, and the business
// profile. Caller must Close the store.
func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	profile, err := loadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}

	dirs, err := campaign.LoadDirectories(cfg.DirectoriesPath)
	if err != nil {
		return nil, err
	}

	store, err := ledger.Open(cfg.LedgerPath, profile.Name)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	planner := campaign.New(cfg.Campaign, loc, store, dirs)
	return &env{cfg: cfg, store: store, planner: planner, dirs: dirs, profile: profile}, nil
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func loadProfile(path string) (types.BusinessProfile, error) {
	var profile types.BusinessProfile
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read business profile %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parse business profile %s: %w", path, err)
	}
	if profile.Name == "" {
		return profile, fmt.Errorf("business profile %s has no name", path)
	}
	return profile, nil
}

// newOracle builds the genai-backed oracle, or nil when no API key is
// configured.
func newOracle(ctx context.Context, cfg config.OracleConfig) (types.Oracle, error) {
	key := cfg.ResolveAPIKey()
	if key == "" {
		return nil, nil
	}
	llm, err := oracle.NewGenAIClient(ctx, key, cfg.Model, cfg.Timeout())
	if err != nil {
		return nil, err
	}
	return oracle.New(llm), nil
}

// rodOpener adapts the browser manager to the orchestrator's PageOpener.
type rodOpener struct {
	manager *browser.Manager
}

func (o rodOpener) OpenPage(ctx context.Context, url string) (session.PageSession, error) {
	return o.manager.OpenPage(ctx, url)
}
