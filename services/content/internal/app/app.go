package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postcraft/pkg/ai"
	"postcraft/pkg/auth"
	"postcraft/pkg/domain"
	"postcraft/pkg/store"
	"postcraft/services/content/internal/provider"
	"postcraft/services/content/internal/templates"
)

// Provider is the generation backend the pipeline calls.
type Provider interface {
	Generate(ctx context.Context, req provider.Request) (domain.GeneratedContent, error)
	AnalyzeImage(ctx context.Context, img ai.Image) (string, error)
	Optimize(ctx context.Context, content, fromPlatform, toPlatform string) (string, error)
}

// Config holds runtime configuration for the core application.
type Config struct {
	// Store overrides the backend picked from DatabaseURL.
	Store       store.Store
	DatabaseURL string

	// Provider overrides the one built from Generator.
	Provider  Provider
	Generator ai.GeneratorConfig

	// SeedTemplates inserts the default templates when the store has none.
	SeedTemplates bool
}

// App wires storage and the generation provider together.
type App struct {
	store    store.Store
	provider Provider
}

// New constructs the application. Without a DatabaseURL the store is in-memory.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			dataStore = store.NewMemoryStore()
		} else {
			var err error
			dataStore, err = store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
		}
	}

	p := cfg.Provider
	if p == nil {
		gen, err := ai.NewGenerator(cfg.Generator)
		if err != nil {
			return nil, fmt.Errorf("init generator: %w", err)
		}
		adapter, err := provider.New(gen)
		if err != nil {
			return nil, err
		}
		p = adapter
	}

	a := &App{store: dataStore, provider: p}
	if cfg.SeedTemplates {
		if err := a.seedTemplates(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) seedTemplates() error {
	existing, err := a.store.ListTemplates()
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	if _, err := templates.Seed(a.store); err != nil {
		return err
	}
	return nil
}

// EnsureUser returns the named user, creating it with a bcrypt hash on first use.
func (a *App) EnsureUser(username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, &ValidationError{Message: "username required"}
	}
	if u, ok, err := a.store.GetUserByUsername(username); err != nil {
		return domain.User{}, persistErr("get user", err)
	} else if ok {
		return u, nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := a.store.CreateUser(domain.User{Username: username, Password: hash})
	if errors.Is(err, store.ErrUsernameTaken) {
		u, ok, err := a.store.GetUserByUsername(username)
		if err != nil {
			return domain.User{}, persistErr("get user", err)
		}
		if !ok {
			return domain.User{}, persistErr("get user", fmt.Errorf("user %q vanished after conflict", username))
		}
		return u, nil
	}
	if err != nil {
		return domain.User{}, persistErr("create user", err)
	}
	return u, nil
}
