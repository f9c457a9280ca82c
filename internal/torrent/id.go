package torrent

import (
	"crypto/rand"
	"os"
)

// getOrCreatePeerID loads the persisted 20-byte BitTorrent peer id, or
// generates and persists a fresh one. A stable id keeps the client
// recognizable to the swarm across restarts.
func getOrCreatePeerID(path string) ([20]byte, error) {
	var out [20]byte

	idb, err := os.ReadFile(path)
	if err == nil && len(idb) >= 20 {
		copy(out[:], idb)
		return out, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}

	if _, err := rand.Read(out[:]); err != nil {
		return out, err
	}
	if err := os.WriteFile(path, out[:], 0644); err != nil {
		return out, err
	}
	return out, nil
}
