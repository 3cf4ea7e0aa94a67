package session

import "sync"

// Registry is the owned session table, keyed by peer identity. It is
// injected into the orchestrator rather than living as package state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Get(peer string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[peer]
	return s, ok
}

// GetOrCreate returns the existing session for peer, or registers the
// one produced by create. The factory runs under the registry lock so
// two concurrent handshake attempts for the same peer cannot both
// create a session.
func (r *Registry) GetOrCreate(peer string, create func() (*Session, error)) (s *Session, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[peer]; ok {
		return existing, false, nil
	}
	s, err = create()
	if err != nil {
		return nil, false, err
	}
	r.sessions[peer] = s
	return s, true, nil
}

// Range visits every session until fn returns false.
func (r *Registry) Range(fn func(peer string, s *Session) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for peer, s := range r.sessions {
		if !fn(peer, s) {
			return
		}
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		_ = s.Close()
	}
	r.sessions = make(map[string]*Session)
}
