package torrent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/anacrolix/dht/v2"
	tlog "github.com/anacrolix/log"
	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/anacrolix/torrent/storage"

	"github.com/Mr8lueSky/cooplook-back/internal/config"
)

// torrentLogHandler adapts slog for anacrolix/torrent's logger.
type torrentLogHandler struct {
	log *slog.Logger
}

func (h *torrentLogHandler) Handle(r tlog.Record) {
	level := slog.LevelDebug
	switch r.Level {
	case tlog.Critical, tlog.Error:
		level = slog.LevelError
	case tlog.Warning:
		level = slog.LevelWarn
	case tlog.Info:
		level = slog.LevelInfo
	case tlog.Debug:
		level = slog.LevelDebug
	}
	h.log.Log(nil, level, r.Msg.String())
}

// Client owns the shared swarm session. Each room adds its torrent with a
// private scratch directory, so dropping a room's torrent can delete its
// data without touching other rooms.
type Client struct {
	client     *torrent.Client
	itemStore  *ItemStore
	activity   *ActivityManager
	addTimeout time.Duration
	log        *slog.Logger
}

// NewClient creates the swarm session. The peer id persists under the
// metadata folder so the client keeps a stable identity across restarts,
// and the DHT server stores bep44 items in badger under the same folder.
func NewClient(cfg *config.TorrentConfig) (*Client, error) {
	log := slog.With("component", "torrent-client")

	peerID, err := getOrCreatePeerID(filepath.Join(cfg.MetadataFolder, "peer-id"))
	if err != nil {
		return nil, fmt.Errorf("failed to load peer id: %w", err)
	}

	itemStore, err := NewItemStore(filepath.Join(cfg.MetadataFolder, "dht-items"), 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to open dht item store: %w", err)
	}

	torrentCfg := torrent.NewDefaultClientConfig()
	torrentCfg.Seed = true
	torrentCfg.PeerID = string(peerID[:])
	torrentCfg.DataDir = cfg.SavePath

	// Disable IPv6 for simpler networking
	torrentCfg.DisableIPv6 = true

	tl := tlog.NewLogger()
	tl.SetHandlers(&torrentLogHandler{log: log})
	torrentCfg.Logger = tl

	torrentCfg.ConfigureAnacrolixDhtServer = func(dhtCfg *dht.ServerConfig) {
		dhtCfg.Store = itemStore
		dhtCfg.Exp = 2 * time.Hour
		dhtCfg.NoSecurity = false
	}

	client, err := torrent.NewClient(torrentCfg)
	if err != nil {
		itemStore.Close()
		return nil, err
	}

	activity := NewActivityManager(5 * time.Minute)
	activity.Start()

	log.Info("torrent client created", "seeding", true, "ipv6_disabled", true)

	return &Client{
		client:     client,
		itemStore:  itemStore,
		activity:   activity,
		addTimeout: time.Duration(cfg.AddTimeout) * time.Second,
		log:        log,
	}, nil
}

// ValidateTorrentFile parses a .torrent blob without adding it. Used to
// reject bad uploads before a room record is created.
func ValidateTorrentFile(data []byte) (*metainfo.MetaInfo, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTorrent, err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTorrent, err)
	}
	if len(info.UpvertedFiles()) == 0 {
		return nil, ErrNoFiles
	}
	return mi, nil
}

// AddTorrentFile adds a .torrent file with data stored under scratchDir and
// waits for metadata. The torrent starts with nothing wanted; the file
// handler pulls pieces through deadlines.
func (c *Client) AddTorrentFile(ctx context.Context, torrentPath, scratchDir string) (*Handle, error) {
	mi, err := metainfo.LoadFromFile(torrentPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTorrent, err)
	}

	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, err
	}

	spec := torrent.TorrentSpecFromMetaInfo(mi)
	spec.Storage = storage.NewFile(scratchDir)

	t, _, err := c.client.AddTorrentSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to add torrent: %w", err)
	}

	hash := spec.InfoHash.HexString()
	c.log.Info("waiting for torrent metadata", "hash", hash)

	select {
	case <-ctx.Done():
		t.Drop()
		return nil, ctx.Err()
	case <-time.After(c.addTimeout):
		c.log.Warn("timeout waiting for torrent metadata", "hash", hash)
		t.Drop()
		return nil, ErrMetadataTimeout
	case <-t.GotInfo():
	}

	if len(t.Files()) == 0 {
		t.Drop()
		return nil, ErrNoFiles
	}

	c.log.Info("obtained torrent metadata",
		"hash", hash,
		"name", t.Info().Name,
		"files", len(t.Files()),
	)

	h := newHandle(t, scratchDir)
	c.activity.Register(h)
	h.onRemove = func() { c.activity.Unregister(hash) }
	return h, nil
}

// Close shuts down the session and the DHT item store.
func (c *Client) Close() error {
	c.activity.Stop()
	c.client.Close()
	return c.itemStore.Close()
}
