package mediacache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/config"
	"github.com/spec-kit/community-agent/internal/events"
)

// recordingBus captures published events in order.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (b *recordingBus) all() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event{}, b.events...)
}

func newTestCache(t *testing.T, bus events.Dispatcher) *Cache {
	t.Helper()
	cfg := config.MediaConfig{
		CacheDir:            t.TempDir(),
		RetentionMinutes:    30,
		SweepIntervalMins:   30,
		DownloadTimeoutSecs: 5,
	}
	c, err := New(cfg, bus, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func mediaServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleMessageCachesMediaAttachments(t *testing.T) {
	srv := mediaServer(t, "fake image bytes")
	c := newTestCache(t, &recordingBus{})

	c.HandleMessage(context.Background(), InboundMessage{
		ID:        "msg-1",
		AuthorID:  "user-1",
		AuthorTag: "user#1",
		ChannelID: "chan-1",
		Attachments: []Attachment{
			{URL: srv.URL + "/cat.png", ContentType: "image/png", Name: "cat.png"},
			{URL: srv.URL + "/notes.txt", ContentType: "text/plain", Name: "notes.txt"},
		},
	})

	entry := c.Lookup("msg-1")
	if entry == nil {
		t.Fatal("expected a cached entry")
	}
	if len(entry.Files) != 1 {
		t.Fatalf("cached files = %d, want 1 (non-media skipped)", len(entry.Files))
	}
	data, err := os.ReadFile(entry.Files[0])
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Fatalf("cached content = %q", data)
	}
	if filepath.Dir(entry.Files[0]) != c.Dir() {
		t.Fatalf("cached file %s not in cache dir %s", entry.Files[0], c.Dir())
	}
}

func TestHandleMessageNoMediaNoEntry(t *testing.T) {
	c := newTestCache(t, &recordingBus{})

	c.HandleMessage(context.Background(), InboundMessage{
		ID: "msg-1",
		Attachments: []Attachment{
			{URL: "http://unused.invalid/a.txt", ContentType: "text/plain", Name: "a.txt"},
		},
	})

	if c.Lookup("msg-1") != nil {
		t.Fatal("expected no entry for text-only attachments")
	}
}

func TestHandleMessageDownloadFailureSkipsAttachment(t *testing.T) {
	good := mediaServer(t, "ok")
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(bad.Close)

	c := newTestCache(t, &recordingBus{})
	c.HandleMessage(context.Background(), InboundMessage{
		ID: "msg-1",
		Attachments: []Attachment{
			{URL: bad.URL + "/gone.png", ContentType: "image/png", Name: "gone.png"},
			{URL: good.URL + "/ok.png", ContentType: "image/png", Name: "ok.png"},
		},
	})

	entry := c.Lookup("msg-1")
	if entry == nil {
		t.Fatal("expected an entry despite one failed download")
	}
	if len(entry.Files) != 1 {
		t.Fatalf("cached files = %d, want 1", len(entry.Files))
	}
}

func TestHandleDeletionReplaysInOrderThenEvicts(t *testing.T) {
	srv := mediaServer(t, "bytes")
	bus := &recordingBus{}
	c := newTestCache(t, bus)

	c.HandleMessage(context.Background(), InboundMessage{
		ID:        "msg-1",
		AuthorID:  "user-1",
		AuthorTag: "user#1",
		ChannelID: "chan-1",
		Attachments: []Attachment{
			{URL: srv.URL + "/a.png", ContentType: "image/png", Name: "a.png"},
			{URL: srv.URL + "/b.mp4", ContentType: "video/mp4", Name: "b.mp4"},
			{URL: srv.URL + "/c.mp3", ContentType: "audio/mpeg", Name: "c.mp3"},
		},
	})
	entry := c.Lookup("msg-1")
	if entry == nil || len(entry.Files) != 3 {
		t.Fatalf("precondition: want 3 cached files, got %+v", entry)
	}
	files := append([]string{}, entry.Files...)

	c.HandleDeletion(context.Background(), "msg-1", "user-1", "user#1", "chan-1")

	got := bus.all()
	if len(got) != 4 {
		t.Fatalf("published %d events, want 4 (1 deletion + 3 replays)", len(got))
	}
	if got[0].Type != events.EventMessageDeleted {
		t.Fatalf("first event = %s, want %s", got[0].Type, events.EventMessageDeleted)
	}
	del := got[0].Payload.(events.MessageDeletedPayload)
	if del.CachedFiles != 3 {
		t.Fatalf("CachedFiles = %d, want 3", del.CachedFiles)
	}
	for i := 1; i <= 3; i++ {
		if got[i].Type != events.EventMediaReplayed {
			t.Fatalf("event %d = %s, want %s", i, got[i].Type, events.EventMediaReplayed)
		}
		p := got[i].Payload.(events.MediaReplayedPayload)
		if p.Index != i || p.Total != 3 {
			t.Fatalf("replay %d: Index=%d Total=%d", i, p.Index, p.Total)
		}
		if p.FilePath != files[i-1] {
			t.Fatalf("replay %d out of order: got %s, want %s", i, p.FilePath, files[i-1])
		}
	}

	if c.Lookup("msg-1") != nil {
		t.Fatal("entry should be evicted after deletion handling")
	}
	for _, f := range files {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Fatalf("file %s should be deleted after eviction", f)
		}
	}
}

func TestHandleDeletionWithoutEntryEmitsPlainRecord(t *testing.T) {
	bus := &recordingBus{}
	c := newTestCache(t, bus)

	c.HandleDeletion(context.Background(), "msg-x", "user-1", "user#1", "chan-1")

	got := bus.all()
	if len(got) != 1 || got[0].Type != events.EventMessageDeleted {
		t.Fatalf("events = %+v, want single message_deleted", got)
	}
	if p := got[0].Payload.(events.MessageDeletedPayload); p.CachedFiles != 0 {
		t.Fatalf("CachedFiles = %d, want 0", p.CachedFiles)
	}
}

func TestEvictIsIdempotent(t *testing.T) {
	srv := mediaServer(t, "bytes")
	c := newTestCache(t, &recordingBus{})

	c.HandleMessage(context.Background(), InboundMessage{
		ID: "msg-1",
		Attachments: []Attachment{
			{URL: srv.URL + "/a.png", ContentType: "image/png", Name: "a.png"},
		},
	})

	if !c.Evict("msg-1") {
		t.Fatal("first Evict should report true")
	}
	if c.Evict("msg-1") {
		t.Fatal("second Evict should be a no-op")
	}
	if c.Evict("never-existed") {
		t.Fatal("evicting an unknown id should be a no-op")
	}
}

func TestSweepEvictsAtRetentionBoundary(t *testing.T) {
	srv := mediaServer(t, "bytes")
	bus := &recordingBus{}
	c := newTestCache(t, bus)

	c.HandleMessage(context.Background(), InboundMessage{
		ID: "old",
		Attachments: []Attachment{
			{URL: srv.URL + "/a.png", ContentType: "image/png", Name: "a.png"},
		},
	})
	c.HandleMessage(context.Background(), InboundMessage{
		ID: "fresh",
		Attachments: []Attachment{
			{URL: srv.URL + "/b.png", ContentType: "image/png", Name: "b.png"},
		},
	})

	oldEntry := c.Lookup("old")

	// Exactly at the boundary the entry is evictable.
	evicted := c.Sweep(oldEntry.Timestamp.Add(30 * time.Minute))
	if evicted < 1 {
		t.Fatalf("Sweep at boundary evicted %d, want >= 1", evicted)
	}
	if c.Lookup("old") != nil {
		t.Fatal("old entry should be gone after sweep")
	}

	found := false
	for _, e := range bus.all() {
		if e.Type == events.EventMediaEvicted {
			p := e.Payload.(events.MediaEvictedPayload)
			if p.MessageID == "old" && p.Reason == "expired" {
				if p.Files != 1 {
					t.Fatalf("evicted payload Files = %d, want 1", p.Files)
				}
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a media_evicted event with reason expired")
	}
}

func TestSweepRemovesOrphanedFiles(t *testing.T) {
	c := newTestCache(t, &recordingBus{})

	orphan := filepath.Join(c.Dir(), "orphan_123_file.png")
	if err := os.WriteFile(orphan, []byte("stale"), 0o644); err != nil {
		t.Fatalf("writing orphan: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(orphan, old, old); err != nil {
		t.Fatalf("aging orphan: %v", err)
	}

	c.Sweep(time.Now())

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("expired orphan file should be removed by sweep")
	}
}

func TestSweepKeepsFreshTrackedFiles(t *testing.T) {
	srv := mediaServer(t, "bytes")
	c := newTestCache(t, &recordingBus{})

	c.HandleMessage(context.Background(), InboundMessage{
		ID: "fresh",
		Attachments: []Attachment{
			{URL: srv.URL + "/a.png", ContentType: "image/png", Name: "a.png"},
		},
	})
	entry := c.Lookup("fresh")

	c.Sweep(time.Now())

	if c.Lookup("fresh") == nil {
		t.Fatal("fresh entry should survive the sweep")
	}
	if _, err := os.Stat(entry.Files[0]); err != nil {
		t.Fatalf("fresh file should survive the sweep: %v", err)
	}
}

func TestPurgeAllClearsEntriesAndDirectory(t *testing.T) {
	srv := mediaServer(t, "bytes")
	c := newTestCache(t, &recordingBus{})

	c.HandleMessage(context.Background(), InboundMessage{
		ID: "msg-1",
		Attachments: []Attachment{
			{URL: srv.URL + "/a.png", ContentType: "image/png", Name: "a.png"},
		},
	})
	leftover := filepath.Join(c.Dir(), "leftover_1_crash.png")
	if err := os.WriteFile(leftover, []byte("stale"), 0o644); err != nil {
		t.Fatalf("writing leftover: %v", err)
	}

	c.PurgeAll()

	if c.Len() != 0 {
		t.Fatalf("Len after PurgeAll = %d, want 0", c.Len())
	}
	dirEntries, err := os.ReadDir(c.Dir())
	if err != nil {
		t.Fatalf("reading cache dir: %v", err)
	}
	if len(dirEntries) != 0 {
		t.Fatalf("cache dir holds %d files after PurgeAll, want 0", len(dirEntries))
	}
}

func TestIsMedia(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/gif", true},
		{"video/mp4", true},
		{"audio/mpeg", true},
		{"text/plain", false},
		{"application/pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isMedia(tt.contentType); got != tt.want {
			t.Errorf("isMedia(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cat.png", "cat.png"},
		{"my file.png", "my_file.png"},
		{"../../etc/passwd", "passwd"},
		{"a:b\\c.png", "a_b_c.png"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
