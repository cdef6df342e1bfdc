// Package retention implements age-based history sweeps.
package retention

import (
	"log/slog"
	"os"
	"time"
)

// Store is the slice of the history store the sweeper needs.
type Store interface {
	DeleteOlderThan(cutoff time.Time) (int, []string, error)
}

// Sweeper deletes entries older than a configured number of days, along
// with the backing files of any swept image entries.
type Sweeper struct {
	store Store
	now   func() time.Time
}

// New returns a Sweeper over st.
func New(st Store) *Sweeper {
	return &Sweeper{store: st, now: time.Now}
}

// Sweep removes every entry older than days days and returns how many
// were deleted. Backing-file removal is best-effort: a file held open by
// another process is logged and left behind.
func (s *Sweeper) Sweep(days int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -days)
	deleted, refs, err := s.store.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	for _, ref := range refs {
		if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
			slog.Warn("backing file not removed", "path", ref, "err", err)
		}
	}
	if deleted > 0 {
		slog.Info("retention sweep", "days", days, "deleted", deleted, "files", len(refs))
	}
	return deleted, nil
}
