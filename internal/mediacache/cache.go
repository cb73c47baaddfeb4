// Package mediacache opportunistically downloads message attachments so
// deleted media can still be surfaced to the audit log. Caching is
// best-effort: a failed download never blocks message handling, and
// eviction runs both entry-driven and as a directory scan that catches
// files leaked by crashes or partial writes.
package mediacache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/config"
	"github.com/spec-kit/community-agent/internal/domain"
	"github.com/spec-kit/community-agent/internal/events"
	"github.com/spec-kit/community-agent/pkg/util"
)

// Attachment is the gateway's view of one message attachment.
type Attachment struct {
	URL         string
	ContentType string
	Name        string
}

// InboundMessage is the slice of a message-created event the cache needs.
type InboundMessage struct {
	ID          string
	AuthorID    string
	AuthorTag   string
	ChannelID   string
	Attachments []Attachment
}

// Cache owns CachedMedia records and the files they reference.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*domain.CachedMedia
	locks     *util.KeyedMutex
	dir       string
	retention time.Duration
	client    *http.Client
	logger    *zap.Logger
	bus       events.Dispatcher
}

// New creates the cache and its backing directory.
func New(cfg config.MediaConfig, bus events.Dispatcher, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		entries:   make(map[string]*domain.CachedMedia),
		locks:     util.NewKeyedMutex(),
		dir:       cfg.CacheDir,
		retention: cfg.Retention(),
		client:    &http.Client{Timeout: cfg.DownloadTimeout()},
		logger:    logger,
		bus:       bus,
	}, nil
}

// Dir returns the backing storage directory.
func (c *Cache) Dir() string {
	return c.dir
}

// HandleMessage downloads qualifying attachments in listed order and
// records an entry when at least one file was cached. Per-attachment
// failures are logged and skipped.
func (c *Cache) HandleMessage(ctx context.Context, msg InboundMessage) {
	var files, urls []string
	for _, att := range msg.Attachments {
		if !isMedia(att.ContentType) {
			continue
		}
		path, err := c.download(ctx, att.URL, msg.ID, att.Name)
		if err != nil {
			c.logger.Warn("failed to cache media",
				zap.String("message_id", msg.ID),
				zap.String("url", att.URL),
				zap.Error(err))
			continue
		}
		files = append(files, path)
		urls = append(urls, att.URL)
	}
	if len(files) == 0 {
		return
	}

	unlock := c.locks.Lock(msg.ID)
	defer unlock()
	c.mu.Lock()
	c.entries[msg.ID] = &domain.CachedMedia{
		MessageID: msg.ID,
		Files:     files,
		URLs:      urls,
		AuthorID:  msg.AuthorID,
		AuthorTag: msg.AuthorTag,
		ChannelID: msg.ChannelID,
		Timestamp: time.Now(),
	}
	c.mu.Unlock()
}

// HandleDeletion emits the deletion audit record and, when an entry
// exists, replays each cached file in original attachment order before
// evicting the entry. A second deletion of the same message id finds no
// entry and degrades to the plain text-only record.
func (c *Cache) HandleDeletion(ctx context.Context, messageID, authorID, authorTag, channelID string) {
	unlock := c.locks.Lock(messageID)
	defer unlock()

	entry := c.Lookup(messageID)
	cached := 0
	if entry != nil {
		cached = len(entry.Files)
	}
	c.publish(ctx, events.EventMessageDeleted, events.MessageDeletedPayload{
		MessageID:   messageID,
		AuthorID:    authorID,
		AuthorTag:   authorTag,
		ChannelID:   channelID,
		CachedFiles: cached,
	})
	if entry == nil {
		return
	}

	for i, file := range entry.Files {
		c.publish(ctx, events.EventMediaReplayed, events.MediaReplayedPayload{
			MessageID:   messageID,
			AuthorTag:   entry.AuthorTag,
			ChannelID:   entry.ChannelID,
			FilePath:    file,
			OriginalURL: entry.URLs[i],
			Index:       i + 1,
			Total:       len(entry.Files),
		})
	}
	c.evict(messageID)
}

// Lookup returns a snapshot of the entry for a message id, or nil.
func (c *Cache) Lookup(messageID string) *domain.CachedMedia {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[messageID]
	if !ok {
		return nil
	}
	snapshot := *entry
	return &snapshot
}

// Evict removes the entry and its files. Evicting an absent entry is a
// no-op; the call is safe to repeat.
func (c *Cache) Evict(messageID string) bool {
	unlock := c.locks.Lock(messageID)
	defer unlock()
	return c.evict(messageID)
}

func (c *Cache) evict(messageID string) bool {
	c.mu.Lock()
	entry, ok := c.entries[messageID]
	if ok {
		delete(c.entries, messageID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	for _, file := range entry.Files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to delete cached file", zap.String("path", file), zap.Error(err))
		}
	}
	return true
}

// Sweep evicts entries whose age reached the retention window, then
// scans the backing directory for expired files no live entry tracks.
// It returns how many entries were evicted.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	expired := make(map[string]int)
	tracked := make(map[string]bool)
	for id, entry := range c.entries {
		if now.Sub(entry.Timestamp) >= c.retention {
			expired[id] = len(entry.Files)
			continue
		}
		for _, file := range entry.Files {
			tracked[filepath.Clean(file)] = true
		}
	}
	c.mu.Unlock()

	for id, files := range expired {
		if c.Evict(id) {
			c.publish(context.Background(), events.EventMediaEvicted, events.MediaEvictedPayload{
				MessageID: id,
				Files:     files,
				Reason:    "expired",
			})
		}
	}

	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn("failed to scan cache dir", zap.Error(err))
		return len(expired)
	}
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		path := filepath.Clean(filepath.Join(c.dir, de.Name()))
		if tracked[path] {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) >= c.retention {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				c.logger.Warn("failed to delete orphaned file", zap.String("path", path), zap.Error(err))
			}
		}
	}
	return len(expired)
}

// PurgeAll unconditionally drops every entry and every file in the
// backing directory. Invoked at startup, to discard leftovers from an
// unclean prior shutdown, and again on graceful shutdown.
func (c *Cache) PurgeAll() int {
	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	for _, id := range ids {
		c.Evict(id)
	}

	removed := 0
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn("failed to scan cache dir", zap.Error(err))
		return removed
	}
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(c.dir, de.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to purge cached file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) download(ctx context.Context, url, messageID, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download: %d", resp.StatusCode)
	}

	filename := fmt.Sprintf("%s_%d_%s", messageID, time.Now().UnixNano(), sanitizeName(name))
	path := filepath.Join(c.dir, filename)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (c *Cache) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if c.bus == nil {
		return
	}
	_ = c.bus.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func isMedia(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") ||
		strings.HasPrefix(contentType, "video/") ||
		strings.HasPrefix(contentType, "audio/")
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
