package workspace

import (
	"encoding/json"
	"log/slog"

	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/storage"
)

// Link style modes accepted in configuration.
const (
	LinkModeAuto     = "auto"
	LinkModeMarkdown = "markdown"
	LinkModeWikilink = "wikilink"
)

// DefaultAppConfig is where the note-taking host keeps its vault preferences.
const DefaultAppConfig = ".obsidian/app.json"

type hostAppConfig struct {
	UseMarkdownLinks bool `json:"useMarkdownLinks"`
}

// LinkStyleResolver answers which link syntax the vault uses.
type LinkStyleResolver struct {
	store     storage.Provider
	mode      string
	appConfig string
	logger    *slog.Logger
}

// NewLinkStyleResolver creates a resolver. In auto mode the host's app config
// (vault-relative appConfig) is read on every call so preference changes are
// picked up without a restart.
func NewLinkStyleResolver(store storage.Provider, mode, appConfig string, logger *slog.Logger) *LinkStyleResolver {
	if appConfig == "" {
		appConfig = DefaultAppConfig
	}
	return &LinkStyleResolver{store: store, mode: mode, appConfig: appConfig, logger: logger}
}

// LinkStyle returns the configured link style.
func (r *LinkStyleResolver) LinkStyle() models.LinkStyle {
	switch r.mode {
	case LinkModeMarkdown:
		return models.LinkStyleMarkdown
	case LinkModeWikilink:
		return models.LinkStyleWiki
	}

	data, err := r.store.Read(r.appConfig)
	if err != nil {
		return models.LinkStyleWiki
	}
	var cfg hostAppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		r.logger.Warn("workspace: unreadable host app config",
			slog.String("path", r.appConfig),
			slog.String("error", err.Error()))
		return models.LinkStyleWiki
	}
	if cfg.UseMarkdownLinks {
		return models.LinkStyleMarkdown
	}
	return models.LinkStyleWiki
}
