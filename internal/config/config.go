package config

import (
	"errors"
	"os"
	"path/filepath"
)

const dbFileName = "backups.db"

// DefaultAPIURL is the remote API base used when GUILDKEEP_API_URL is
// not set.
const DefaultAPIURL = "https://discord.com/api/v10"

// Config holds resolved configuration for the guildkeep directory,
// database, and remote API access.
type Config struct {
	GuildkeepDir string // resolved .guildkeep directory path
	DBPath       string // full path to backups.db
	EnvVarSet    bool   // whether GUILDKEEP_PATH was used
	Token        string // bot token from GUILDKEEP_TOKEN, may be empty
	APIURL       string // remote API base URL
}

// Resolve returns the current configuration by checking GUILDKEEP_PATH
// first, then falling back to $PWD/.guildkeep. The token and API URL
// come from GUILDKEEP_TOKEN and GUILDKEEP_API_URL.
func Resolve() (*Config, error) {
	var dir string
	var envVarSet bool

	if envPath := os.Getenv("GUILDKEEP_PATH"); envPath != "" {
		dir = envPath
		envVarSet = true
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(cwd, ".guildkeep")
	}

	apiURL := os.Getenv("GUILDKEEP_API_URL")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return &Config{
		GuildkeepDir: dir,
		DBPath:       filepath.Join(dir, dbFileName),
		EnvVarSet:    envVarSet,
		Token:        os.Getenv("GUILDKEEP_TOKEN"),
		APIURL:       apiURL,
	}, nil
}

// Exists checks if the guildkeep directory and DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	if _, err := os.Stat(c.GuildkeepDir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := os.Stat(c.DBPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RequireToken returns the configured bot token or an error telling
// the user how to provide one. Commands that talk to the remote API
// call this before building a client.
func (c *Config) RequireToken() (string, error) {
	if c.Token == "" {
		return "", errors.New("no bot token configured: set GUILDKEEP_TOKEN")
	}
	return c.Token, nil
}
