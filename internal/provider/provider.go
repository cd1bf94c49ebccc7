// Package provider defines the boundary to the authoritative DNS service.
//
// The engine only ever needs four scalars back from the service: the current
// record value, its TTL, a change id, and a change status comparable against
// a single terminal-success sentinel. Implementations live in subpackages.
package provider

import (
	"context"
	"errors"
	"strings"
)

// RRType is a host-address record type. Only A and AAAA are supported.
type RRType string

const (
	TypeA    RRType = "A"
	TypeAAAA RRType = "AAAA"
)

func (t RRType) Valid() bool {
	return t == TypeA || t == TypeAAAA
}

// ChangeStatus is the propagation state of a submitted change.
type ChangeStatus string

const (
	StatusPending ChangeStatus = "PENDING"
	StatusInsync  ChangeStatus = "INSYNC"
	StatusFailed  ChangeStatus = "FAILED"
)

// ErrUnparseableResponse is returned when the service response is missing the
// change id or status. The raw transcript still carries the evidence.
var ErrUnparseableResponse = errors.New("unparseable authority response")

// Identity names one record set in one hosted zone.
type Identity struct {
	ZoneID string
	Name   string
	Type   RRType
}

// NewIdentity normalizes name to its fully-qualified form with a trailing dot.
func NewIdentity(zoneID, name string, t RRType) Identity {
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return Identity{ZoneID: zoneID, Name: name, Type: t}
}

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", "*", "wildcard", ":", "_")

// Key returns a filesystem-safe encoding of the identity. Repeated runs for
// the same identity always produce the same key.
func (id Identity) Key() string {
	return keyReplacer.Replace(id.ZoneID + "_" + id.Name + string(id.Type))
}

// Record is the live state of a record set as reported by the service.
type Record struct {
	Value string
	TTL   int64
}

// ChangeInfo identifies a submitted change and its initial status.
type ChangeInfo struct {
	ID     string
	Status ChangeStatus
}

// Client is the authoritative DNS service. SubmitChange and GetChangeStatus
// return a one-line transcript of the raw request/response for the operation
// log; the transcript is populated on error as well.
type Client interface {
	// CurrentRecord fetches the live record set for id, constrained to a
	// single result. It returns nil when no matching record exists.
	CurrentRecord(ctx context.Context, id Identity) (*Record, error)

	// SubmitChange upserts the record set to exactly one value with the given
	// TTL and comment.
	SubmitChange(ctx context.Context, id Identity, value string, ttl int64, comment string) (ChangeInfo, string, error)

	// GetChangeStatus queries the propagation status of a submitted change.
	GetChangeStatus(ctx context.Context, changeID string) (ChangeStatus, string, error)
}
