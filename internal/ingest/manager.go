package ingest

import (
	"context"
	"log"
	"strings"
	"sync"

	"stockvault-api/internal/gateway"
	"stockvault-api/internal/model"
	"stockvault-api/internal/service"
)

// Committer writes a finished batch as the pool entry for its key.
type Committer interface {
	ReplacePool(ctx context.Context, kind model.KeyKind, name, usageMessage string, items []model.Item) error
}

// Broadcaster delivers one payload to every known user.
type Broadcaster interface {
	Send(ctx context.Context, payload gateway.Payload) (*service.BroadcastReport, error)
}

// FeedResult describes what one feed did to the session.
type FeedResult struct {
	State      string                   `json:"state"`
	ItemsAdded int                      `json:"items_added,omitempty"`
	TotalItems int                      `json:"total_items,omitempty"`
	Broadcast  *service.BroadcastReport `json:"broadcast,omitempty"`
}

// CommitResult describes a successful ingestion finish.
type CommitResult struct {
	Pool      string        `json:"pool"`
	Kind      model.KeyKind `json:"kind"`
	ItemCount int           `json:"item_count"`
}

// Manager owns all open sessions, one at most per admin.
type Manager struct {
	mu          sync.Mutex
	sessions    map[int64]*session
	committer   Committer
	broadcaster Broadcaster
}

// NewManager creates a session manager. broadcaster may be nil when the
// deployment has no outbound gateway; the broadcast flow is then rejected
// at start.
func NewManager(committer Committer, broadcaster Broadcaster) *Manager {
	return &Manager{
		sessions:    make(map[int64]*session),
		committer:   committer,
		broadcaster: broadcaster,
	}
}

// StartIngestion opens an add-stock flow of the given kind for the admin.
func (m *Manager) StartIngestion(adminID int64, kind model.KeyKind) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open := m.sessions[adminID]; open {
		return 0, ErrSessionOpen
	}
	m.sessions[adminID] = &session{
		adminID: adminID,
		kind:    kind,
		state:   StateAwaitingPoolKey,
	}
	log.Printf("[IngestManager] admin=%d started %s ingestion", adminID, kind)
	return StateAwaitingPoolKey, nil
}

// StartBroadcast opens the broadcast flow for the admin.
func (m *Manager) StartBroadcast(adminID int64) (State, error) {
	if m.broadcaster == nil {
		return 0, ErrBadState
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open := m.sessions[adminID]; open {
		return 0, ErrSessionOpen
	}
	m.sessions[adminID] = &session{
		adminID:   adminID,
		broadcast: true,
		state:     StateAwaitingPayload,
	}
	log.Printf("[IngestManager] admin=%d started broadcast", adminID)
	return StateAwaitingPayload, nil
}

// Feed advances the admin's open session with one inbound message.
func (m *Manager) Feed(ctx context.Context, adminID int64, in Input) (*FeedResult, error) {
	m.mu.Lock()

	s, open := m.sessions[adminID]
	if !open {
		m.mu.Unlock()
		return nil, ErrNoSession
	}

	if s.broadcast {
		payload, err := broadcastPayload(in)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		// Terminal: the session closes before any delivery happens, so a
		// slow broadcast never blocks other admin flows.
		delete(m.sessions, adminID)
		m.mu.Unlock()

		report, err := m.broadcaster.Send(ctx, payload)
		if err != nil {
			return nil, err
		}
		return &FeedResult{State: "idle", Broadcast: report}, nil
	}

	defer m.mu.Unlock()

	switch s.state {
	case StateAwaitingPoolKey:
		key := strings.ToLower(strings.TrimSpace(in.Text))
		if key == "" {
			return nil, ErrNoLabel
		}
		s.poolKey = key
		s.state = StateAwaitingUsageMessage
		return &FeedResult{State: s.state.String()}, nil

	case StateAwaitingUsageMessage:
		msg := strings.TrimSpace(in.Text)
		if strings.EqualFold(msg, noMessageSentinel) {
			msg = ""
		}
		s.usageMessage = msg
		s.items = []model.Item{}
		s.state = StateAwaitingItems
		return &FeedResult{State: s.state.String()}, nil

	case StateAwaitingItems:
		added, err := extractItems(in)
		if err != nil {
			return nil, err
		}
		s.items = append(s.items, added...)
		return &FeedResult{
			State:      s.state.String(),
			ItemsAdded: len(added),
			TotalItems: len(s.items),
		}, nil

	default:
		return nil, ErrBadState
	}
}

// Finish commits the accumulated buffer as the pool entry and closes the
// session. On a store failure the session stays open so the admin can
// retry.
func (m *Manager) Finish(ctx context.Context, adminID int64) (*CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, open := m.sessions[adminID]
	if !open {
		return nil, ErrNoSession
	}
	if s.broadcast || s.state != StateAwaitingItems {
		return nil, ErrBadState
	}
	if len(s.items) == 0 {
		// The original flow cancels outright here.
		delete(m.sessions, adminID)
		return nil, ErrEmptyBuffer
	}

	if err := m.committer.ReplacePool(ctx, s.kind, s.poolKey, s.usageMessage, s.items); err != nil {
		return nil, err
	}

	result := &CommitResult{Pool: s.poolKey, Kind: s.kind, ItemCount: len(s.items)}
	delete(m.sessions, adminID)
	log.Printf("[IngestManager] admin=%d committed %d item(s) to %s/%s",
		adminID, result.ItemCount, result.Kind, result.Pool)
	return result, nil
}

// Cancel discards the admin's open session, whatever its state.
func (m *Manager) Cancel(adminID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open := m.sessions[adminID]; !open {
		return ErrNoSession
	}
	delete(m.sessions, adminID)
	log.Printf("[IngestManager] admin=%d cancelled session", adminID)
	return nil
}

// extractItems turns one feed into inventory items: a multi-line text feed
// yields one plain item per non-blank line; an attachment feed yields
// exactly one item labelled by its caption.
func extractItems(in Input) ([]model.Item, error) {
	if in.AttachmentRef != "" {
		label := strings.TrimSpace(in.Caption)
		if label == "" {
			return nil, ErrNoLabel
		}
		return []model.Item{{
			Label:          label,
			AttachmentRef:  in.AttachmentRef,
			AttachmentKind: in.AttachmentKind,
		}}, nil
	}

	var items []model.Item
	for _, line := range strings.Split(in.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, model.Item{Label: line})
	}
	if len(items) == 0 {
		return nil, ErrNoLabel
	}
	return items, nil
}

// broadcastPayload validates and converts a broadcast feed.
func broadcastPayload(in Input) (gateway.Payload, error) {
	p := gateway.Payload{
		Text:           strings.TrimSpace(in.Text),
		AttachmentRef:  in.AttachmentRef,
		AttachmentKind: in.AttachmentKind,
		Caption:        strings.TrimSpace(in.Caption),
	}
	if p.Empty() {
		return gateway.Payload{}, ErrEmptyPayload
	}
	return p, nil
}
