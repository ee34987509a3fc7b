package server

import (
	"sync"
	"time"

	"github.com/roach88/formstep/internal/engine"
	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/store"
)

// DefaultSessionTTL is how long a session may sit idle before it is
// evicted.
const DefaultSessionTTL = 30 * time.Minute

// liveSession is one respondent's session held in memory.
// mu serializes every operation on the engine session.
type liveSession struct {
	mu      sync.Mutex
	id      string
	formID  string
	session *engine.Session

	// final is set by the completion callback.
	final form.Answers

	// pending holds a submission whose delivery failed; advancing a
	// completed session retries it.
	pending *store.Submission

	submissionID string

	// lastSeen is guarded by the registry mutex.
	lastSeen time.Time
}

// registry maps session ids to live sessions. Sessions idle for longer
// than ttl are invisible to get and removed by sweep. A ttl <= 0 keeps
// sessions until they are removed explicitly.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	ttl      time.Duration
	now      func() time.Time
}

func newRegistry(ttl time.Duration, now func() time.Time) *registry {
	return &registry{
		sessions: make(map[string]*liveSession),
		ttl:      ttl,
		now:      now,
	}
}

func (r *registry) add(ls *liveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls.lastSeen = r.now()
	r.sessions[ls.id] = ls
}

// get returns a live session and marks it as seen.
func (r *registry) get(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if r.expired(ls, now) {
		return nil, false
	}
	ls.lastSeen = now
	return ls, true
}

func (r *registry) remove(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return ls, ok
}

// sweep removes and returns the sessions that have expired.
func (r *registry) sweep() []*liveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ttl <= 0 {
		return nil
	}

	now := r.now()
	var evicted []*liveSession
	for id, ls := range r.sessions {
		if r.expired(ls, now) {
			delete(r.sessions, id)
			evicted = append(evicted, ls)
		}
	}
	return evicted
}

func (r *registry) expired(ls *liveSession, now time.Time) bool {
	return r.ttl > 0 && now.Sub(ls.lastSeen) > r.ttl
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
