package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("OPENAI_BASE_URL", "")

	config := DefaultConfig()

	if config.Playlist.NameTemplate != "Weekly Mix %s" {
		t.Errorf("NameTemplate = %q", config.Playlist.NameTemplate)
	}
	if config.Credentials.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("BaseURL = %q", config.Credentials.OpenAI.BaseURL)
	}
	if config.Database.Path != "weeklymix.db" {
		t.Errorf("Database.Path = %q", config.Database.Path)
	}
	if config.Playlist.Public {
		t.Error("expected playlists to default to private")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses a valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[credentials.spotify]
client_id = "abc"
client_secret = "def"

[playlist]
name_template = "Discoveries %s"
market = "US"
public = true
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if config.Credentials.Spotify.ClientID != "abc" {
			t.Errorf("ClientID = %q", config.Credentials.Spotify.ClientID)
		}
		if config.Playlist.Market != "US" {
			t.Errorf("Market = %q", config.Playlist.Market)
		}
		if !config.Playlist.Public {
			t.Error("expected public playlist")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[[[not toml"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "env-refresh")
	t.Setenv("OPENAI_API_KEY", "env-key")

	config := &Config{}
	config.Credentials.Spotify.ClientSecret = "from-file"
	config.ApplyEnv()

	if config.Credentials.Spotify.ClientID != "env-id" {
		t.Errorf("ClientID = %q", config.Credentials.Spotify.ClientID)
	}
	if config.Credentials.Spotify.RefreshToken != "env-refresh" {
		t.Errorf("RefreshToken = %q", config.Credentials.Spotify.RefreshToken)
	}
	if config.Credentials.OpenAI.APIKey != "env-key" {
		t.Errorf("APIKey = %q", config.Credentials.OpenAI.APIKey)
	}
	if config.Credentials.Spotify.ClientSecret != "from-file" {
		t.Error("unset env vars must not clear file values")
	}
}

func TestCreateConfigFile(t *testing.T) {
	t.Run("writes the example config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("CreateConfigFile() error = %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if config.Database.Path != "weeklymix.db" {
			t.Errorf("Database.Path = %q", config.Database.Path)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("# mine"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := CreateConfigFile(path); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func TestPlaylistName(t *testing.T) {
	config := &Config{}
	config.Playlist.NameTemplate = "Fresh Finds %s"

	if got := config.PlaylistName("2026-W35"); got != "Fresh Finds 2026-W35" {
		t.Errorf("PlaylistName() = %q", got)
	}

	config.Playlist.NameTemplate = ""
	if got := config.PlaylistName("2026-W35"); got != "Weekly Mix 2026-W35" {
		t.Errorf("PlaylistName() with empty template = %q", got)
	}
}

func TestReadFileIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.md")
	if err := os.WriteFile(path, []byte("custom prompt"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := ReadFileIfExists(path); got != "custom prompt" {
		t.Errorf("ReadFileIfExists() = %q", got)
	}
	if got := ReadFileIfExists(filepath.Join(t.TempDir(), "missing.md")); got != "" {
		t.Errorf("missing file returned %q", got)
	}
	if got := ReadFileIfExists(""); got != "" {
		t.Errorf("empty path returned %q", got)
	}
}
