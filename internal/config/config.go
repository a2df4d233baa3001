package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreBackendFile      = "file"
	StoreBackendMemory    = "memory"
	StoreBackendFirestore = "firestore"

	MirrorNone      = "none"
	MirrorGitHub    = "github"
	MirrorFirestore = "firestore"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port       int    `envconfig:"PORT" default:"8080"`
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"http://localhost:5173"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile    string `envconfig:"LOG_FILE"`

	StoreBackend  string        `envconfig:"STORE_BACKEND" default:"file"`
	DataFile      string        `envconfig:"DATA_FILE" default:"teams.json"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	WatchDataFile bool          `envconfig:"WATCH_DATA_FILE" default:"true"`

	Mirror     string `envconfig:"MIRROR" default:"none"`
	MirrorPath string `envconfig:"MIRROR_PATH" default:"teams.json"`

	GitHubToken     string `envconfig:"GITHUB_TOKEN"`
	GitHubRepoOwner string `envconfig:"GITHUB_REPO_OWNER"`
	GitHubRepoName  string `envconfig:"GITHUB_REPO_NAME"`
	GitHubBranch    string `envconfig:"GITHUB_BRANCH"`

	GCPProjectID          string `envconfig:"GCP_PROJECT_ID"`
	FirestoreDatabase     string `envconfig:"FIRESTORE_DATABASE"`
	FirestoreCollection   string `envconfig:"FIRESTORE_COLLECTION" default:"harmony-cup"`
	FirestoreDocument     string `envconfig:"FIRESTORE_DOCUMENT" default:"teams"`
	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE"`
}

// Load reads an optional .env file and then the environment into a Config.
func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend and mirror settings for consistency.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendFile:
		if c.DataFile == "" {
			return errors.New("DATA_FILE is required for the file backend")
		}
	case StoreBackendMemory:
	case StoreBackendFirestore:
		if c.GCPProjectID == "" {
			return errors.New("GCP_PROJECT_ID is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.Mirror {
	case MirrorNone:
	case MirrorGitHub:
		if c.GitHubToken == "" || c.GitHubRepoOwner == "" || c.GitHubRepoName == "" {
			return errors.New("GITHUB_TOKEN, GITHUB_REPO_OWNER and GITHUB_REPO_NAME are required for the github mirror")
		}
	case MirrorFirestore:
		if c.GCPProjectID == "" {
			return errors.New("GCP_PROJECT_ID is required for the firestore mirror")
		}
		if c.StoreBackend == StoreBackendFirestore {
			return errors.New("MIRROR=firestore cannot be combined with STORE_BACKEND=firestore")
		}
	default:
		return fmt.Errorf("unknown MIRROR %q", c.Mirror)
	}

	if c.Mirror != MirrorNone && c.MirrorPath == "" {
		return errors.New("MIRROR_PATH is required when a mirror is configured")
	}
	if c.CacheTTL < 0 {
		return errors.New("CACHE_TTL must not be negative")
	}
	return nil
}
