package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Rooms    RoomsConfig    `yaml:"rooms"`
	Torrent  TorrentConfig  `yaml:"torrent"`
}

type ServerConfig struct {
	HTTPPort    int `yaml:"http_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	SecretKey         string `yaml:"secret_key"`
	PasswordSecretKey string `yaml:"password_secret_key"`
	TokenExpire       int    `yaml:"token_expire"` // seconds
}

type RoomsConfig struct {
	InactivityPeriod int `yaml:"inactivity_period"` // seconds
	SweepInterval    int `yaml:"sweep_interval"`    // seconds
}

type TorrentConfig struct {
	SavePath           string `yaml:"save_path"`             // parent of per-room scratch dirs
	TorrentFilesPath   string `yaml:"torrent_files_path"`    // uploaded .torrent blobs
	MetadataFolder     string `yaml:"metadata_folder"`       // DHT item store and client state
	MaxTorrentFileSize int64  `yaml:"max_torrent_file_size"` // bytes
	AddTimeout         int    `yaml:"add_timeout"`           // seconds
	PieceWaitTimeout   int    `yaml:"piece_wait_timeout"`    // seconds
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    4444,
			MetricsPort: 9300,
		},
		Database: DatabaseConfig{
			Path: "./data/cooplook.db",
		},
		Auth: AuthConfig{
			SecretKey:         "SOME RANDOM AUTH KEY(change for prod use)",
			PasswordSecretKey: "SOME SECRET PW KEY(change for prod use)",
			TokenExpire:       30 * 24 * 60 * 60, // 30 days
		},
		Rooms: RoomsConfig{
			InactivityPeriod: 600,
			SweepInterval:    60,
		},
		Torrent: TorrentConfig{
			SavePath:           "./data/torrents",
			TorrentFilesPath:   "./data/torrent_files",
			MetadataFolder:     "./data/metadata",
			MaxTorrentFileSize: 5 * 1024 * 1024,
			AddTimeout:         60,
			PieceWaitTimeout:   60,
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureDirectories creates required directories
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Database.Path),
		c.Torrent.SavePath,
		c.Torrent.TorrentFilesPath,
		c.Torrent.MetadataFolder,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// InactivityPeriod returns the room eviction threshold as a duration.
func (c *Config) InactivityPeriod() time.Duration {
	return time.Duration(c.Rooms.InactivityPeriod) * time.Second
}

// SweepInterval returns the room sweeper period as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Rooms.SweepInterval) * time.Second
}

// TokenExpire returns the auth token lifetime as a duration.
func (c *Config) TokenExpire() time.Duration {
	return time.Duration(c.Auth.TokenExpire) * time.Second
}
