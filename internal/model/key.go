package model

import "fmt"

// KeyKind distinguishes the two independent key/inventory namespaces.
type KeyKind string

const (
	KindStandard KeyKind = "standard"
	KindCards    KeyKind = "cards"
)

// ParseKeyKind validates a kind string coming from the API surface.
func ParseKeyKind(s string) (KeyKind, error) {
	switch KeyKind(s) {
	case KindStandard, KindCards:
		return KeyKind(s), nil
	}
	return "", fmt.Errorf("unknown key kind %q", s)
}

// RedemptionKey is a one-time code that activates a plan when redeemed.
// A code exists in at most one kind at a time and is deleted on redemption.
type RedemptionKey struct {
	Code     string  `json:"code"`
	Kind     KeyKind `json:"kind"`
	PlanName string  `json:"plan_name"`
	MaxUses  int     `json:"max_uses"`
}
