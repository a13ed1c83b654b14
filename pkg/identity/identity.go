package identity

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vlhsmylv/standlog-script/pkg/log"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

const (
	visitorKey = "visitor_id"

	visitorPrefix = "visitor"
	anonPrefix    = "anon"
	sessionPrefix = "session"

	randLen   = 9
	randChars = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Store manages the identifier triple: the durable visitor id, the
// tab-scoped anonymous id, and the session id. The anonymous id is stable
// for the lifetime of the store; the session id is stable unless the
// collector reassigns it via AdoptServerSessionID.
type Store struct {
	mu      sync.Mutex
	durable DurableScope

	visitorID   string
	anonymousID string
	sessionID   string

	now    func() time.Time
	logger zerolog.Logger
}

// NewStore creates an identity store over the given durable scope
func NewStore(durable DurableScope) *Store {
	return &Store{
		durable: durable,
		now:     time.Now,
		logger:  log.WithComponent("identity"),
	}
}

// NewID generates an identifier of the form {prefix}_{wallClockMillis}_{rand9}.
// Uniqueness is probabilistic: a collision only merges unrelated sessions,
// which degrades statistics cosmetically and is accepted.
func NewID(prefix string) string {
	return newIDAt(prefix, time.Now())
}

func newIDAt(prefix string, at time.Time) string {
	suffix := make([]byte, randLen)
	for i := range suffix {
		suffix[i] = randChars[rand.Intn(len(randChars))]
	}
	return fmt.Sprintf("%s_%d_%s", prefix, at.UnixMilli(), suffix)
}

// EnsureVisitorID returns the durable visitor id, generating and persisting
// a new one when the durable scope has none. Storage loss or failure is
// treated as "new visitor", never as an error.
func (s *Store) EnsureVisitorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visitorID != "" {
		return s.visitorID
	}

	if id, ok, err := s.durable.Get(visitorKey); err == nil && ok && id != "" {
		s.visitorID = id
		return s.visitorID
	} else if err != nil {
		s.logger.Debug().Err(err).Msg("durable scope read failed, regenerating visitor id")
	}

	s.visitorID = newIDAt(visitorPrefix, s.now())
	if err := s.durable.Put(visitorKey, s.visitorID); err != nil {
		// Best effort: the visitor id simply won't survive this tab.
		s.logger.Debug().Err(err).Msg("durable scope write failed")
	}
	return s.visitorID
}

// EnsureAnonymousID returns the tab-scoped anonymous id, generating it on
// first use. It never touches durable storage.
func (s *Store) EnsureAnonymousID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.anonymousID == "" {
		s.anonymousID = newIDAt(anonPrefix, s.now())
	}
	return s.anonymousID
}

// CurrentSessionID returns the session id, generating it on first use
func (s *Store) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID == "" {
		s.sessionID = newIDAt(sessionPrefix, s.now())
	}
	return s.sessionID
}

// AdoptServerSessionID replaces the locally generated session id with the
// canonical id assigned by the collector. Empty ids are ignored.
func (s *Store) AdoptServerSessionID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

// Identity returns the current identifier triple, generating any ids not
// yet established
func (s *Store) Identity() types.Identity {
	return types.Identity{
		VisitorID:   s.EnsureVisitorID(),
		AnonymousID: s.EnsureAnonymousID(),
		SessionID:   s.CurrentSessionID(),
	}
}

// Close releases the underlying durable scope
func (s *Store) Close() error {
	return s.durable.Close()
}
