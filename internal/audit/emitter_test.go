package audit

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/community-agent/internal/gateway"
)

// stubClient implements only what the emitter touches; the embedded
// interface panics on anything else.
type stubClient struct {
	gateway.Client
	mu      sync.Mutex
	sent    []gateway.Outbound
	sendErr error
}

func (s *stubClient) SendMessage(ctx context.Context, channelID string, msg gateway.Outbound) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sent = append(s.sent, msg)
	return "msg-1", nil
}

func missingAccessErr() error {
	return &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess},
	}
}

func TestEmitSendsRecord(t *testing.T) {
	client := &stubClient{}
	e := NewEmitter(client, "log-chan", zap.NewNop())

	e.Emit(context.Background(), Record{
		Title: "🎫 Ticket Created",
		Body:  "New ticket #1",
		Color: ColorGreen,
		Fields: []gateway.EmbedField{
			{Name: "Ticket", Value: "#1", Inline: true},
		},
	})

	if len(client.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(client.sent))
	}
	embeds := client.sent[0].Embeds
	if len(embeds) != 1 || embeds[0].Title != "🎫 Ticket Created" || embeds[0].Color != ColorGreen {
		t.Fatalf("embeds = %+v", embeds)
	}
	if len(embeds[0].Fields) != 1 || embeds[0].Fields[0].Name != "Ticket" {
		t.Fatalf("fields = %+v", embeds[0].Fields)
	}
}

func TestEmitWithoutChannelIsNoop(t *testing.T) {
	client := &stubClient{}
	e := NewEmitter(client, "", zap.NewNop())

	e.Emit(context.Background(), Record{Title: "anything"})

	if len(client.sent) != 0 {
		t.Fatalf("sent %d messages, want 0", len(client.sent))
	}
}

func TestEmitSwallowsMissingAccess(t *testing.T) {
	client := &stubClient{sendErr: missingAccessErr()}
	e := NewEmitter(client, "log-chan", zap.NewNop())

	// Must not panic or propagate; delivery is best-effort.
	e.Emit(context.Background(), Record{Title: "dropped"})
}

func TestEmitLogsOtherFailures(t *testing.T) {
	client := &stubClient{sendErr: &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: 50013},
	}}
	e := NewEmitter(client, "log-chan", zap.NewNop())

	e.Emit(context.Background(), Record{Title: "dropped"})
}

func TestIsMissingAccessDetection(t *testing.T) {
	if !gateway.IsMissingAccess(missingAccessErr()) {
		t.Fatal("missing-access error not detected")
	}
	other := &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: 50013}}
	if gateway.IsMissingAccess(other) {
		t.Fatal("unrelated platform error reported as missing access")
	}
	if gateway.IsMissingAccess(context.Canceled) {
		t.Fatal("non-platform error reported as missing access")
	}
}
