package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Rooms.InactivityPeriod != 600 {
		t.Errorf("InactivityPeriod = %d, want 600", cfg.Rooms.InactivityPeriod)
	}
	if cfg.Torrent.MaxTorrentFileSize != 5*1024*1024 {
		t.Errorf("MaxTorrentFileSize = %d, want %d", cfg.Torrent.MaxTorrentFileSize, 5*1024*1024)
	}
	if cfg.Torrent.PieceWaitTimeout != 60 {
		t.Errorf("PieceWaitTimeout = %d, want 60", cfg.Torrent.PieceWaitTimeout)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPPort != DefaultConfig().Server.HTTPPort {
		t.Errorf("HTTPPort = %d, want default %d", cfg.Server.HTTPPort, DefaultConfig().Server.HTTPPort)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("rooms:\n  inactivity_period: 42\ntorrent:\n  save_path: /tmp/scratch\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Rooms.InactivityPeriod != 42 {
		t.Errorf("InactivityPeriod = %d, want 42", cfg.Rooms.InactivityPeriod)
	}
	if cfg.Torrent.SavePath != "/tmp/scratch" {
		t.Errorf("SavePath = %q, want /tmp/scratch", cfg.Torrent.SavePath)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.HTTPPort != 4444 {
		t.Errorf("HTTPPort = %d, want 4444", cfg.Server.HTTPPort)
	}
}
