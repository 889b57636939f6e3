package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Prompts     PromptsConfig     `toml:"prompts"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	OpenAI  OpenAIConfig  `toml:"openai"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	RedirectURI  string `toml:"redirect_uri"`
}

// OpenAIConfig contains OpenAI API credentials.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// PlaylistConfig contains settings for the generated playlist.
type PlaylistConfig struct {
	// NameTemplate is passed to fmt.Sprintf with the target week label.
	NameTemplate string `toml:"name_template"`
	Market       string `toml:"market"`
	Public       bool   `toml:"public"`
}

// PromptsConfig contains optional prompt template file paths.
// Missing files fall back to built-in prompts.
type PromptsConfig struct {
	Recommendations string `toml:"recommendations"`
	Description     string `toml:"description"`
	Artwork         string `toml:"artwork"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidInput)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credential fields from environment variables so secrets
// can stay out of the config file.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret},
		{"SPOTIFY_REFRESH_TOKEN", &c.Credentials.Spotify.RefreshToken},
		{"OPENAI_API_KEY", &c.Credentials.OpenAI.APIKey},
		{"OPENAI_BASE_URL", &c.Credentials.OpenAI.BaseURL},
	}

	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// PlaylistName renders the configured name template for a target week label.
func (c *Config) PlaylistName(targetWeek string) string {
	template := c.Playlist.NameTemplate
	if template == "" {
		template = "Weekly Mix %s"
	}
	return fmt.Sprintf(template, targetWeek)
}

// ReadFileIfExists reads a text file if it exists, else returns "".
func ReadFileIfExists(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
