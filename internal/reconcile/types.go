package reconcile

import (
	"errors"

	"github.com/bradleysepos/aws-ddns/internal/provider"
)

var (
	// ErrAuthorityQueryFailed indicates the live-record lookup failed while
	// the run was explicitly told to trust the authoritative source.
	ErrAuthorityQueryFailed = errors.New("authority lookup failed")

	// ErrAuthorityChangeFailed indicates a change submission or status poll
	// failed at the transport or API level. The cache is deliberately left
	// stale so the next run retries the update.
	ErrAuthorityChangeFailed = errors.New("authority change failed")
)

// Decision is the reconciler's verdict for one run.
type Decision string

const (
	NoOpUpToDate Decision = "noop"
	NeedsUpdate  Decision = "update"
)

// Result describes what one run did.
type Result struct {
	Identity provider.Identity
	Value    string
	Decision Decision
	Reason   string
	ChangeID string
	Status   provider.ChangeStatus
	Polls    int
}
