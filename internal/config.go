package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/samber/lo"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Realtime RealtimeConfig    `yaml:"realtime"`
	Engine   EngineConfig      `yaml:"engine"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Storage, &c.SQLite, &c.Auth, &c.Realtime, &c.Engine} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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

// StorageConfig holds the board snapshot directory and its per-board quota.
type StorageConfig struct {
	Path          string `yaml:"path"`
	MaxBoardBytes int64  `yaml:"max_board_bytes"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxBoardBytes, validation.Min(int64(0))),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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

// RealtimeConfig tunes the SSE stream.
type RealtimeConfig struct {
	// AggregateThrottle bounds how often boards.updated is sent.
	AggregateThrottle time.Duration `yaml:"aggregate_throttle"`
}

// Validate validates the realtime configuration.
func (c *RealtimeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AggregateThrottle, validation.Min(time.Duration(0))),
	)
}

// EngineConfig holds board editing defaults.
type EngineConfig struct {
	PasteOffsetPx    float64     `yaml:"paste_offset_px"`
	DefaultBoardType string      `yaml:"default_board_type"`
	Style            board.Style `yaml:"style"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	types := lo.Map(board.BoardTypes, func(t board.BoardType, _ int) any { return string(t) })
	return validation.ValidateStruct(c,
		validation.Field(&c.PasteOffsetPx, validation.Min(0.0)),
		validation.Field(&c.DefaultBoardType, validation.Required, validation.In(types...)),
		validation.Field(&c.Style, validation.By(func(any) error {
			if c.Style.StrokeWidth < 0 || c.Style.FontSize < 0 {
				return validation.NewError("validation_style", "stroke width and font size must not be negative")
			}
			return nil
		})),
	)
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
		Storage: StorageConfig{
			Path:          "./boards",
			MaxBoardBytes: 5 << 20,
		},
		SQLite: SQLiteConfig{
			Path: "./whiteboard.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Realtime: RealtimeConfig{
			AggregateThrottle: 2 * time.Second,
		},
		Engine: EngineConfig{
			PasteOffsetPx:    20,
			DefaultBoardType: string(board.BoardAdvanced),
			Style:            board.DefaultStyle(),
		},
	}
}
