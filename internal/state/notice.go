package state

import (
	"time"

	"github.com/google/uuid"
)

// NoticeKind classifies a notice for display.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

const (
	defaultNoticeTTL = 6 * time.Second
	errorNoticeTTL   = 12 * time.Second
	maxNotices       = 5
)

// Notice is a user-visible notification.
type Notice struct {
	ID        uuid.UUID
	Kind      NoticeKind
	Message   string
	CreatedAt time.Time
	TTL       time.Duration // zero keeps the notice until dismissed
}

// Expired reports whether the notice should no longer be shown at now.
func (n Notice) Expired(now time.Time) bool {
	return n.TTL > 0 && now.After(n.CreatedAt.Add(n.TTL))
}

// Notify appends a notice and returns it. Only the newest few notices are
// kept.
func (s *Store) Notify(kind NoticeKind, message string) Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	ttl := defaultNoticeTTL
	if kind == NoticeError {
		ttl = errorNoticeTTL
	}
	n := Notice{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   message,
		CreatedAt: s.clock(),
		TTL:       ttl,
	}
	s.notices = append(liveNotices(s.notices, n.CreatedAt), n)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
	s.snapshot.LastUpdated = n.CreatedAt
	return n
}

// Dismiss removes the notice with id.
func (s *Store) Dismiss(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices[:0]
	for _, n := range s.notices {
		if n.ID != id {
			out = append(out, n)
		}
	}
	s.notices = out
}

func liveNotices(items []Notice, now time.Time) []Notice {
	var out []Notice
	for _, n := range items {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}
