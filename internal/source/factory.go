package source

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Mr8lueSky/cooplook-back/internal/config"
	"github.com/Mr8lueSky/cooplook-back/internal/room"
	"github.com/Mr8lueSky/cooplook-back/internal/store"
	"github.com/Mr8lueSky/cooplook-back/internal/torrent"
)

// Factory materializes video sources from durable room records. Torrent
// rooms get a private scratch directory named after the room id under the
// save path.
type Factory struct {
	client           *torrent.Client
	torrentFilesPath string
	savePath         string
	pieceWaitTimeout time.Duration
	servedHook       func(fromCache bool)
	timeoutHook      func()
}

// NewFactory creates a source factory over the shared torrent client.
func NewFactory(client *torrent.Client, cfg *config.TorrentConfig) *Factory {
	return &Factory{
		client:           client,
		torrentFilesPath: cfg.TorrentFilesPath,
		savePath:         cfg.SavePath,
		pieceWaitTimeout: time.Duration(cfg.PieceWaitTimeout) * time.Second,
	}
}

// SetServedHook installs a callback invoked for every torrent piece served
// to a player. It applies to sources built after the call.
func (f *Factory) SetServedHook(hook func(fromCache bool)) {
	f.servedHook = hook
}

// SetTimeoutHook installs a callback invoked when a piece wait times out.
// It applies to sources built after the call.
func (f *Factory) SetTimeoutHook(hook func()) {
	f.timeoutHook = hook
}

// FromRecord builds the video source a record describes. For torrent rooms
// this adds the torrent to the session and waits for its metadata.
func (f *Factory) FromRecord(ctx context.Context, rec *store.RoomRecord) (room.VideoSource, error) {
	switch rec.SourceKind {
	case store.SourceLink:
		return NewHTTPLinkSource(rec.SourceData), nil

	case store.SourceTorrent:
		torrentPath := filepath.Join(f.torrentFilesPath, rec.SourceData)
		scratchDir := filepath.Join(f.savePath, rec.ID.String())

		h, err := f.client.AddTorrentFile(ctx, torrentPath, scratchDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open torrent for room %s: %w", rec.ID, err)
		}

		fh, err := torrent.NewFileHandler(h, rec.LastFileInd, f.pieceWaitTimeout)
		if err != nil {
			h.Remove(false)
			return nil, err
		}
		if f.servedHook != nil {
			fh.PieceGetter().SetServedHook(f.servedHook)
		}
		if f.timeoutHook != nil {
			fh.PieceGetter().SetTimeoutHook(f.timeoutHook)
		}
		return NewTorrentSource(fh), nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", rec.SourceKind)
	}
}
