package source

import (
	"net/http"
	"net/url"
	"path"

	"github.com/google/uuid"
)

// HTTPLinkSource plays a direct video URL. The server never proxies the
// bytes; players are redirected to the link and fetch it themselves.
type HTTPLinkSource struct {
	link string
	name string
}

// NewHTTPLinkSource creates a source for a direct link.
func NewHTTPLinkSource(link string) *HTTPLinkSource {
	name := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	return &HTTPLinkSource{link: link, name: name}
}

// AvailableFiles lists the single linked file.
func (s *HTTPLinkSource) AvailableFiles() []string {
	return []string{s.name}
}

// SetFileIndex always reports false; a link has exactly one file.
func (s *HTTPLinkSource) SetFileIndex(fileInd int) bool {
	return false
}

// PlayerSource returns the link itself; players load it directly.
func (s *HTTPLinkSource) PlayerSource(roomID uuid.UUID) string {
	return s.link
}

// ServeVideo redirects to the link for clients that hit the file endpoint
// anyway.
func (s *HTTPLinkSource) ServeVideo(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.link, http.StatusSeeOther)
}

// Cleanup is a no-op; nothing is held.
func (s *HTTPLinkSource) Cleanup() error {
	return nil
}
