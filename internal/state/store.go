package state

import (
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/five82/notechain/internal/notes"
)

// LoadState tracks the note collection's synchronization with the ledger.
type LoadState int

const (
	Idle LoadState = iota
	Loading
	Loaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ActionScope decides which like/dislike intents exclude each other.
type ActionScope string

const (
	// ScopeGlobal allows one action in flight across all notes.
	ScopeGlobal ActionScope = "global"
	// ScopeNote allows one action in flight per note index.
	ScopeNote ActionScope = "note"
)

// ParseScope maps a config value to an ActionScope. Empty means global.
func ParseScope(raw string) (ActionScope, error) {
	switch ActionScope(raw) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeNote:
		return ScopeNote, nil
	}
	return "", fmt.Errorf("unknown action scope %q", raw)
}

// PendingUpload is the file selected for the next upload.
type PendingUpload struct {
	Path     string
	Filename string
	Size     int64
}

// OrphanedPin is content that was pinned but never recorded on the ledger.
type OrphanedPin struct {
	ContentID string
	Filename  string
	Err       error
	At        time.Time
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Account             string
	Notes               []notes.Note
	Load                LoadState
	LoadErr             error
	LastLoaded          time.Time
	ConsecutiveFailures int
	Pending             *PendingUpload
	Uploading           bool
	InFlight            []int // ascending
	Notices             []Notice
	Orphans             []OrphanedPin
	Reward              *big.Int
	LastUpdated         time.Time
}

// Connected reports whether a wallet session is present.
func (s Snapshot) Connected() bool {
	return s.Account != ""
}

// IsOffline returns true when the ledger has failed to load several times
// in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// IsInFlight reports whether an action on index is outstanding.
func (s Snapshot) IsInFlight(index int) bool {
	_, found := slices.BinarySearch(s.InFlight, index)
	return found
}

// Busy reports whether any remote work is running.
func (s Snapshot) Busy() bool {
	return s.Load == Loading || s.Uploading || len(s.InFlight) > 0
}

// Stats aggregates the full collection.
func (s Snapshot) Stats() notes.Stats {
	return notes.ComputeStats(s.Notes)
}

// Store coordinates concurrent updates to the snapshot. Every
// check-and-set operation runs in a single critical section. The zero value
// is ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot

	generation uint64
	activeLoad int
	settled    LoadState
	inFlight   map[int]struct{}
	notices    []Notice

	now func() time.Time
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// SetAccount records the wallet session.
func (s *Store) SetAccount(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Account = account
	s.snapshot.LastUpdated = s.clock()
}

// BeginLoad starts a reload and returns its generation. The load state
// stays Loading until every started reload has finished.
func (s *Store) BeginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.activeLoad++
	s.snapshot.Load = Loading
	s.snapshot.LastUpdated = s.clock()
	return s.generation
}

// CompleteLoad replaces the collection with items when gen is the newest
// reload. It reports whether the result was applied.
func (s *Store) CompleteLoad(gen uint64, items []notes.Note) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := s.finishLoadLocked(gen)
	if applied {
		s.snapshot.Notes = notes.Clone(items)
		s.snapshot.LoadErr = nil
		s.snapshot.LastLoaded = s.clock()
		s.snapshot.ConsecutiveFailures = 0
		s.settled = Loaded
	}
	s.settleLocked()
	return applied
}

// FailLoad records a failed reload, keeping the previous collection. It
// reports whether the failure was applied.
func (s *Store) FailLoad(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := s.finishLoadLocked(gen)
	if applied {
		s.snapshot.LoadErr = err
		s.snapshot.ConsecutiveFailures++
		s.settled = LoadFailed
	}
	s.settleLocked()
	return applied
}

func (s *Store) finishLoadLocked(gen uint64) bool {
	if s.activeLoad > 0 {
		s.activeLoad--
	}
	s.snapshot.LastUpdated = s.clock()
	return gen == s.generation
}

func (s *Store) settleLocked() {
	if s.activeLoad > 0 {
		s.snapshot.Load = Loading
		return
	}
	s.snapshot.Load = s.settled
}

// SelectFile sets the pending upload.
func (s *Store) SelectFile(p PendingUpload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Pending = &p
	s.snapshot.LastUpdated = s.clock()
}

// Pending returns the pending upload, if any.
func (s *Store) Pending() (PendingUpload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot.Pending == nil {
		return PendingUpload{}, false
	}
	return *s.snapshot.Pending, true
}

// TryBeginUpload moves the upload state to Uploading. It returns false when
// an upload is already running.
func (s *Store) TryBeginUpload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Uploading {
		return false
	}
	s.snapshot.Uploading = true
	s.snapshot.LastUpdated = s.clock()
	return true
}

// EndUpload returns the upload state to Idle. A successful upload clears
// the pending file.
func (s *Store) EndUpload(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Uploading = false
	if success {
		s.snapshot.Pending = nil
	}
	s.snapshot.LastUpdated = s.clock()
}

// TryAcquireAction marks index in flight unless scope forbids it.
func (s *Store) TryAcquireAction(index int, scope ActionScope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		s.inFlight = make(map[int]struct{})
	}
	switch scope {
	case ScopeNote:
		if _, busy := s.inFlight[index]; busy {
			return false
		}
	default:
		if len(s.inFlight) > 0 {
			return false
		}
	}
	s.inFlight[index] = struct{}{}
	s.snapshot.LastUpdated = s.clock()
	return true
}

// ReleaseAction clears the in-flight mark for index.
func (s *Store) ReleaseAction(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, index)
	s.snapshot.LastUpdated = s.clock()
}

// RecordOrphan remembers a pin without a ledger record.
func (s *Store) RecordOrphan(o OrphanedPin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.At.IsZero() {
		o.At = s.clock()
	}
	s.snapshot.Orphans = append(s.snapshot.Orphans, o)
}

// SetReward records the per-upload reward in wei.
func (s *Store) SetReward(amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount == nil {
		s.snapshot.Reward = nil
		return
	}
	s.snapshot.Reward = new(big.Int).Set(amount)
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Notes = notes.Clone(s.snapshot.Notes)
	if s.snapshot.LoadErr != nil {
		snap.LoadErr = fmt.Errorf("%w", s.snapshot.LoadErr)
	}
	if s.snapshot.Pending != nil {
		p := *s.snapshot.Pending
		snap.Pending = &p
	}
	if len(s.inFlight) > 0 {
		snap.InFlight = make([]int, 0, len(s.inFlight))
		for i := range s.inFlight {
			snap.InFlight = append(snap.InFlight, i)
		}
		slices.Sort(snap.InFlight)
	}
	snap.Notices = liveNotices(s.notices, s.clock())
	snap.Orphans = slices.Clone(s.snapshot.Orphans)
	if s.snapshot.Reward != nil {
		snap.Reward = new(big.Int).Set(s.snapshot.Reward)
	}
	return snap
}
