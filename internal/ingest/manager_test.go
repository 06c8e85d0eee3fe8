package ingest

import (
	"context"
	"errors"
	"testing"

	"stockvault-api/internal/gateway"
	"stockvault-api/internal/model"
	"stockvault-api/internal/service"
)

// fakeCommitter records the last committed pool and can fail on demand.
type fakeCommitter struct {
	kind         model.KeyKind
	name         string
	usageMessage string
	items        []model.Item
	commits      int
	err          error
}

func (f *fakeCommitter) ReplacePool(ctx context.Context, kind model.KeyKind, name, usageMessage string, items []model.Item) error {
	if f.err != nil {
		return f.err
	}
	f.kind = kind
	f.name = name
	f.usageMessage = usageMessage
	f.items = items
	f.commits++
	return nil
}

type fakeBroadcaster struct {
	payload gateway.Payload
	calls   int
}

func (f *fakeBroadcaster) Send(ctx context.Context, payload gateway.Payload) (*service.BroadcastReport, error) {
	f.payload = payload
	f.calls++
	return &service.BroadcastReport{Recipients: 3, Sent: 3}, nil
}

func feed(t *testing.T, m *Manager, adminID int64, in Input) *FeedResult {
	t.Helper()
	res, err := m.Feed(context.Background(), adminID, in)
	if err != nil {
		t.Fatalf("Feed(%+v): %v", in, err)
	}
	return res
}

func TestIngestionFlow(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewManager(committer, nil)
	ctx := context.Background()

	state, err := m.StartIngestion(1, model.KindStandard)
	if err != nil {
		t.Fatalf("StartIngestion: %v", err)
	}
	if state != StateAwaitingPoolKey {
		t.Fatalf("state = %v", state)
	}

	res := feed(t, m, 1, Input{Text: "  Spotify  "})
	if res.State != "awaiting_usage_message" {
		t.Fatalf("after pool key: %q", res.State)
	}

	res = feed(t, m, 1, Input{Text: "Use within 24h."})
	if res.State != "awaiting_items" {
		t.Fatalf("after usage message: %q", res.State)
	}

	res = feed(t, m, 1, Input{Text: "acc1\nacc2"})
	if res.ItemsAdded != 2 || res.TotalItems != 2 {
		t.Fatalf("first batch: %+v", res)
	}
	res = feed(t, m, 1, Input{Text: "acc3"})
	if res.ItemsAdded != 1 || res.TotalItems != 3 {
		t.Fatalf("second batch: %+v", res)
	}

	commit, err := m.Finish(ctx, 1)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if commit.Pool != "spotify" || commit.Kind != model.KindStandard || commit.ItemCount != 3 {
		t.Fatalf("commit = %+v", commit)
	}
	if committer.name != "spotify" || committer.usageMessage != "Use within 24h." {
		t.Fatalf("committed %q / %q", committer.name, committer.usageMessage)
	}
	if len(committer.items) != 3 || committer.items[0].Label != "acc1" || committer.items[2].Label != "acc3" {
		t.Fatalf("committed items: %+v", committer.items)
	}

	// The session is gone.
	if _, err := m.Finish(ctx, 1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("second finish: got %v, want ErrNoSession", err)
	}
}

func TestUsageMessageSentinel(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewManager(committer, nil)
	ctx := context.Background()

	if _, err := m.StartIngestion(1, model.KindCards); err != nil {
		t.Fatalf("StartIngestion: %v", err)
	}
	feed(t, m, 1, Input{Text: "visa"})
	feed(t, m, 1, Input{Text: "N/A"})
	feed(t, m, 1, Input{Text: "card1"})

	if _, err := m.Finish(ctx, 1); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if committer.usageMessage != "" {
		t.Fatalf("sentinel not treated as empty: %q", committer.usageMessage)
	}
}

func TestAttachmentItems(t *testing.T) {
	committer := &fakeCommitter{}
	m := NewManager(committer, nil)
	ctx := context.Background()

	if _, err := m.StartIngestion(1, model.KindStandard); err != nil {
		t.Fatalf("StartIngestion: %v", err)
	}
	feed(t, m, 1, Input{Text: "netflix"})
	feed(t, m, 1, Input{Text: "n/a"})

	// An attachment without a caption has no label and is rejected; the
	// buffer stays as it was.
	if _, err := m.Feed(ctx, 1, Input{AttachmentRef: "file-123", AttachmentKind: model.AttachmentPhoto}); !errors.Is(err, ErrNoLabel) {
		t.Fatalf("captionless attachment: got %v, want ErrNoLabel", err)
	}

	res := feed(t, m, 1, Input{AttachmentRef: "file-123", AttachmentKind: model.AttachmentPhoto, Caption: "screenshot login"})
	if res.ItemsAdded != 1 || res.TotalItems != 1 {
		t.Fatalf("attachment feed: %+v", res)
	}

	if _, err := m.Finish(ctx, 1); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	item := committer.items[0]
	if item.Label != "screenshot login" || item.AttachmentRef != "file-123" || item.AttachmentKind != model.AttachmentPhoto {
		t.Fatalf("committed item: %+v", item)
	}
}

func TestDoubleStartRejected(t *testing.T) {
	m := NewManager(&fakeCommitter{}, &fakeBroadcaster{})

	if _, err := m.StartIngestion(1, model.KindStandard); err != nil {
		t.Fatalf("StartIngestion: %v", err)
	}
	if _, err := m.StartIngestion(1, model.KindStandard); !errors.Is(err, ErrSessionOpen) {
		t.Fatalf("second start: got %v, want ErrSessionOpen", err)
	}
	if _, err := m.StartBroadcast(1); !errors.Is(err, ErrSessionOpen) {
		t.Fatalf("broadcast over open session: got %v, want ErrSessionOpen", err)
	}

	// Another admin is unaffected.
	if _, err := m.StartIngestion(2, model.KindCards); err != nil {
		t.Fatalf("other admin start: %v", err)
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	m := NewManager(&fakeCommitter{}, nil)
	ctx := context.Background()

	if _, err := m.StartIngestion(1, model.KindStandard); err != nil {
		t.Fatalf("StartIngestion: %v", err)
	}
	feed(t, m, 1, Input{Text: "netflix"})
	if err := m.Cancel(1); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := m.Cancel(1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("second cancel: got %v, want ErrNoSession", err)
	}
	if _, err := m.Feed(ctx, 1, Input{Text: "anything"}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("feed after cancel: got %v, want ErrNoSession", err)
	}
	// A fresh session can open right away.
	if _, err := m.StartIngestion(1, model.KindStandard); err != nil {
		t.Fatalf("restart after cancel: %v", err)
	}
}

func TestFinishRejectsEarlyStates(t *testing.T) {
	m := NewManager(&fakeCommitter{}, nil)
	ctx := context.Background()

	if _, err := m.StartIngestion(1, model.KindStandard); err != nil {
		t.Fatalf("StartIngestion: %v", err)
	}
	if _, err := m.Finish(ctx, 1); !errors.Is(err, ErrBadState) {
		t.Fatalf("finish before pool key: got %v, want ErrBadState", err)
	}
	feed(t, m, 1, Input{Text: "netflix"})
	if _, err := m.Finish(ctx, 1); !errors.Is(err, ErrBadState) {
		t.Fatalf("finish before usage message: got %v, want ErrBadState", err)
	}
}

func TestFinishWithEmptyBufferCancels(t *testing.T) {
	m := NewManager(&fakeCommitter{}, nil)
	ctx := context.Background()

	if _, err := m.StartIngestion(1, model.KindStandard); err != nil {
		t.Fatalf("StartIngestion: %v", err)
	}
	feed(t, m, 1, Input{Text: "netflix"})
	feed(t, m, 1, Input{Text: "n/a"})

	if _, err := m.Finish(ctx, 1); !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("empty finish: got %v, want ErrEmptyBuffer", err)
	}
	// The session was discarded, not left open.
	if _, err := m.Feed(ctx, 1, Input{Text: "acc1"}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("feed after empty finish: got %v, want ErrNoSession", err)
	}
}

func TestCommitFailureKeepsSessionOpen(t *testing.T) {
	committer := &fakeCommitter{err: errors.New("store down")}
	m := NewManager(committer, nil)
	ctx := context.Background()

	if _, err := m.StartIngestion(1, model.KindStandard); err != nil {
		t.Fatalf("StartIngestion: %v", err)
	}
	feed(t, m, 1, Input{Text: "netflix"})
	feed(t, m, 1, Input{Text: "n/a"})
	feed(t, m, 1, Input{Text: "acc1"})

	if _, err := m.Finish(ctx, 1); err == nil {
		t.Fatal("finish succeeded despite store failure")
	}

	// Retry succeeds once the store recovers, with the buffer intact.
	committer.err = nil
	commit, err := m.Finish(ctx, 1)
	if err != nil {
		t.Fatalf("retry finish: %v", err)
	}
	if commit.ItemCount != 1 {
		t.Fatalf("retry commit = %+v", commit)
	}
}

func TestBroadcastFlow(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	m := NewManager(&fakeCommitter{}, broadcaster)
	ctx := context.Background()

	state, err := m.StartBroadcast(1)
	if err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}
	if state != StateAwaitingPayload {
		t.Fatalf("state = %v", state)
	}

	if _, err := m.Feed(ctx, 1, Input{}); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("empty payload: got %v, want ErrEmptyPayload", err)
	}

	res := feed(t, m, 1, Input{Text: "maintenance tonight"})
	if res.Broadcast == nil || res.Broadcast.Sent != 3 {
		t.Fatalf("broadcast result: %+v", res)
	}
	if broadcaster.calls != 1 || broadcaster.payload.Text != "maintenance tonight" {
		t.Fatalf("broadcaster saw: calls=%d payload=%+v", broadcaster.calls, broadcaster.payload)
	}

	// The flow is single-exchange: the session closed with the dispatch.
	if _, err := m.Feed(ctx, 1, Input{Text: "again"}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("feed after broadcast: got %v, want ErrNoSession", err)
	}
}

func TestBroadcastUnavailableWithoutGateway(t *testing.T) {
	m := NewManager(&fakeCommitter{}, nil)
	if _, err := m.StartBroadcast(1); err == nil {
		t.Fatal("broadcast started without a gateway")
	}
}
