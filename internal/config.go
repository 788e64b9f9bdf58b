package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pastename/internal/workspace"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Vault       VaultConfig       `yaml:"vault"`
	Settings    SettingsConfig    `yaml:"settings"`
	Journal     JournalConfig     `yaml:"journal"`
	Auth        AuthConfig        `yaml:"auth"`
	Link        LinkConfig        `yaml:"link"`
	Attachments AttachmentsConfig `yaml:"attachments"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.Link.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SettingsConfig locates the persisted rename settings.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// JournalConfig holds the SQLite activity journal configuration.
// Keep is how many notices survive the startup prune; 0 keeps everything.
type JournalConfig struct {
	Path string `yaml:"path"`
	Keep int    `yaml:"keep"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Keep, validation.Min(0)),
	)
}

// LinkConfig selects how image embeds are written in notes.
//
// Style is one of:
//   - "auto" (default): follow useMarkdownLinks in the host's AppConfig file.
//   - "markdown": ![](path/name.png)
//   - "wikilink": ![[path/name.png]]
type LinkConfig struct {
	Style     string `yaml:"style"`
	AppConfig string `yaml:"app_config"`
}

// Validate validates the link configuration.
func (c *LinkConfig) Validate() error {
	if c.Style == "" {
		c.Style = workspace.LinkModeAuto
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Style, validation.In(workspace.LinkModeAuto, workspace.LinkModeMarkdown, workspace.LinkModeWikilink)),
	)
}

// AttachmentsConfig holds where uploaded pastes land, relative to the vault.
type AttachmentsConfig struct {
	Dir string `yaml:"dir"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Settings: SettingsConfig{
			Path: "./pastename.yaml",
		},
		Journal: JournalConfig{
			Path: "./pastename.db",
			Keep: 1000,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Link: LinkConfig{
			Style:     workspace.LinkModeAuto,
			AppConfig: workspace.DefaultAppConfig,
		},
		Attachments: AttachmentsConfig{
			Dir: "attachments",
		},
	}
}
