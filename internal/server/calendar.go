package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/birthday-manager/internal/config"
)

// feedSnapshot is one published rendering of the birthday feed.
type feedSnapshot struct {
	body     []byte
	etag     string
	modified time.Time
}

// Calendar publishes the latest birthday feed. The feed builder calls
// Update; readers never block on it.
type Calendar struct {
	cache atomic.Pointer[feedSnapshot]
	now   func() time.Time
}

// NewCalendar returns an empty Calendar that answers 503 until the first Update.
func NewCalendar() *Calendar {
	return &Calendar{now: time.Now}
}

// Ready reports whether a feed has been published.
func (c *Calendar) Ready() bool {
	return c.cache.Load() != nil
}

// Update publishes data and reports whether it differed from the previous
// feed. Identical content keeps its ETag and modification time.
func (c *Calendar) Update(data []byte) bool {
	sum := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(sum[:]))

	if prev := c.cache.Load(); prev != nil && prev.etag == etag {
		return false
	}
	c.cache.Store(&feedSnapshot{
		body:     data,
		etag:     etag,
		modified: c.now().UTC().Truncate(time.Second),
	})

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
	return true
}

// ServeHTTP answers GET and HEAD. Conditional and range requests are left
// to http.ServeContent, which evaluates If-None-Match before If-Modified-Since.
func (c *Calendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, "GET, HEAD")
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	snap := c.cache.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, snap.etag)

	http.ServeContent(w, r, "", snap.modified, bytes.NewReader(snap.body))
}
