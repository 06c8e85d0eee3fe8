package model

import "fmt"

// AttachmentKind is the media type carried by a rich inventory item.
type AttachmentKind string

const (
	AttachmentNone      AttachmentKind = ""
	AttachmentPhoto     AttachmentKind = "photo"
	AttachmentVideo     AttachmentKind = "video"
	AttachmentAnimation AttachmentKind = "animation"
)

// ParseAttachmentKind validates an attachment kind from the API surface.
// The empty string means no attachment.
func ParseAttachmentKind(s string) (AttachmentKind, error) {
	switch AttachmentKind(s) {
	case AttachmentNone, AttachmentPhoto, AttachmentVideo, AttachmentAnimation:
		return AttachmentKind(s), nil
	}
	return "", fmt.Errorf("unknown attachment kind %q", s)
}

// Item is a single consumable inventory record. Legacy plain-string items
// load with an empty AttachmentRef and AttachmentNone.
type Item struct {
	Label          string         `json:"label"`
	AttachmentRef  string         `json:"attachment_ref,omitempty"`
	AttachmentKind AttachmentKind `json:"attachment_kind,omitempty"`
}

// Pool is the FIFO-consumable inventory for one named site or bank.
// Pool names are matched case-insensitively but keep their original casing.
type Pool struct {
	Kind         KeyKind `json:"kind"`
	Name         string  `json:"name"`
	UsageMessage string  `json:"usage_message,omitempty"`
	Items        []Item  `json:"items"`
}

// PoolSummary is one row of the public stock listing.
type PoolSummary struct {
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
}
