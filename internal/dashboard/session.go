package dashboard

import (
	"penguindash/internal/filter"
	"penguindash/internal/penguins"
	"penguindash/internal/reactive"
)

// Session is one browser's dashboard state: a selection cell and a snapshot
// memoized on it. Count, averages, plot and grid all read the same memoized
// snapshot, so a refresh never mixes versions.
type Session struct {
	id        string
	selection *reactive.Cell[filter.Selection]
	snapshot  *reactive.Memo[filter.Selection, Snapshot]
}

// NewSession starts a session at the default selection. Each hook runs
// after every snapshot build.
func NewSession(id string, ds *penguins.Dataset, hooks ...func(Snapshot)) *Session {
	cell := reactive.NewCell(filter.DefaultSelection())
	return &Session{
		id:        id,
		selection: cell,
		snapshot: reactive.NewMemo(cell, func(sel filter.Selection) Snapshot {
			snap := Build(ds, sel)
			for _, hook := range hooks {
				hook(snap)
			}
			return snap
		}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Selection returns the current selection and its version.
func (s *Session) Selection() (filter.Selection, uint64) { return s.selection.Get() }

// SetSelection stores the canonical form of sel and notifies subscribers.
func (s *Session) SetSelection(sel filter.Selection) uint64 {
	return s.selection.Set(filter.NewSelection(sel.Species, sel.MassThreshold))
}

// Snapshot returns the snapshot for the current selection version.
func (s *Session) Snapshot() Snapshot {
	snap, version := s.snapshot.Get()
	snap.Version = version
	return snap
}

// Computations reports how many snapshots have been built.
func (s *Session) Computations() uint64 { return s.snapshot.Computations() }

// Subscribe calls fn with a fresh snapshot after every selection change.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return s.selection.Subscribe(func(filter.Selection, uint64) {
		fn(s.Snapshot())
	})
}

// Subscribers returns the number of active subscriptions.
func (s *Session) Subscribers() int { return s.selection.Subscribers() }
