package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	API   APIConfig   `toml:"api"`
	Board BoardConfig `toml:"board"`
	List  ListConfig  `toml:"list"`
	Keys  KeyConfig   `toml:"keys"`
	Serve ServeConfig `toml:"serve"`
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type BoardConfig struct {
	ColumnLimit      int `toml:"column_limit"`
	ScrollRevealRows int `toml:"scroll_reveal_rows"`
}

type ListConfig struct {
	PageSize      int    `toml:"page_size"`
	SortField     string `toml:"sort_field"`
	SortDirection string `toml:"sort_direction"`
}

type KeyConfig struct {
	GrabCard   string `toml:"grab_card"`
	SearchMode string `toml:"search_mode"`
	ListView   string `toml:"list_view"`
	NewCard    string `toml:"new_card"`
	YankEmail  string `toml:"yank_email"`
}

type ServeConfig struct {
	Listen   string `toml:"listen"`
	Endpoint string `toml:"endpoint"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:3001/api",
			TimeoutSeconds: 15,
		},
		Board: BoardConfig{
			ColumnLimit:      20,
			ScrollRevealRows: 4,
		},
		List: ListConfig{
			PageSize:      25,
			SortField:     "created_at",
			SortDirection: "desc",
		},
		Keys: KeyConfig{
			GrabCard:   " ",
			SearchMode: "/",
			ListView:   "v",
			NewCard:    "n",
			YankEmail:  "y",
		},
		Serve: ServeConfig{
			Listen:   "127.0.0.1:8385",
			Endpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("api.base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds < 0 {
		return errors.New("api.timeout_seconds must be >= 0")
	}

	if c.Board.ColumnLimit <= 0 {
		return errors.New("board.column_limit must be > 0")
	}
	if c.Board.ScrollRevealRows < 0 {
		return errors.New("board.scroll_reveal_rows must be >= 0")
	}

	if c.List.PageSize <= 0 {
		return errors.New("list.page_size must be > 0")
	}
	switch strings.TrimSpace(strings.ToLower(c.List.SortDirection)) {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("invalid list.sort_direction: %q", c.List.SortDirection)
	}

	if strings.TrimSpace(c.Serve.Listen) == "" {
		return errors.New("serve.listen is required")
	}
	if !strings.HasPrefix(strings.TrimSpace(c.Serve.Endpoint), "/") {
		return fmt.Errorf("serve.endpoint must start with /: %q", c.Serve.Endpoint)
	}

	return nil
}

func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
