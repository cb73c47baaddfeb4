package domain

import "time"

// CachedMedia records the locally cached attachments of one source
// message. Files and URLs are parallel slices in original attachment
// order. The entry and its files live no longer than the configured
// retention window.
type CachedMedia struct {
	MessageID string
	Files     []string
	URLs      []string
	AuthorID  string
	AuthorTag string
	ChannelID string
	Timestamp time.Time
}
