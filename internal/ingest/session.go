// Package ingest holds the per-admin interactive workflows: building a new
// inventory pool across several messages, and the single-exchange broadcast
// flow. Sessions live in memory only; a restart abandons them and leaves
// inventory untouched.
package ingest

import (
	"errors"

	"stockvault-api/internal/model"
)

// State is the position of a session in its flow.
type State int

const (
	// StateAwaitingPoolKey waits for the site/bank name.
	StateAwaitingPoolKey State = iota + 1
	// StateAwaitingUsageMessage waits for the per-pool usage note.
	StateAwaitingUsageMessage
	// StateAwaitingItems accumulates items until the finish signal.
	StateAwaitingItems
	// StateAwaitingPayload waits for the single broadcast payload.
	StateAwaitingPayload
)

// String returns the state name for API responses.
func (s State) String() string {
	switch s {
	case StateAwaitingPoolKey:
		return "awaiting_pool_key"
	case StateAwaitingUsageMessage:
		return "awaiting_usage_message"
	case StateAwaitingItems:
		return "awaiting_items"
	case StateAwaitingPayload:
		return "awaiting_payload"
	default:
		return "idle"
	}
}

// noMessageSentinel is what admins type when a pool needs no usage message.
const noMessageSentinel = "n/a"

var (
	// ErrSessionOpen rejects a second start while a flow is open.
	ErrSessionOpen = errors.New("another session is already open for this admin")
	// ErrNoSession rejects feed/finish/cancel without an open flow.
	ErrNoSession = errors.New("no open session for this admin")
	// ErrNoLabel rejects a feed with no extractable item label; the state
	// does not advance.
	ErrNoLabel = errors.New("no extractable label in input")
	// ErrEmptyBuffer rejects finishing with zero accumulated items.
	ErrEmptyBuffer = errors.New("no items were added")
	// ErrBadState rejects a signal the current state does not accept.
	ErrBadState = errors.New("signal not valid in the current state")
	// ErrEmptyPayload rejects a broadcast payload with nothing deliverable.
	ErrEmptyPayload = errors.New("payload carries neither text nor attachment")
)

// Input is one inbound admin message, normalized by the transport layer.
type Input struct {
	Text           string
	AttachmentRef  string
	AttachmentKind model.AttachmentKind
	Caption        string
}

// session is the accumulated state of one admin's open flow.
type session struct {
	adminID      int64
	broadcast    bool
	kind         model.KeyKind
	state        State
	poolKey      string
	usageMessage string
	items        []model.Item
}
