package push

import "sync"

// Registry is the process-scoped index of connected sessions. It is not a
// source of truth: it starts empty, fills on Register, drains on
// Unregister, and a restart simply loses it — reconnecting clients catch up
// through history and unread queries.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Session // userID -> connID -> session
	byConn map[string]*Session            // connID -> session
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*Session),
		byConn: make(map[string]*Session),
	}
}

func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byUser[s.UserID]
	if m == nil {
		m = make(map[string]*Session)
		r.byUser[s.UserID] = m
	}
	m[s.ConnID] = s
	r.byConn[s.ConnID] = s
}

func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.byUser[s.UserID]; m != nil {
		delete(m, s.ConnID)
		if len(m) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
	delete(r.byConn, s.ConnID)
}

func (r *Registry) ListByUser(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Session, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}

// ListByUsers collects the sessions of all given users in one pass.
func (r *Registry) ListByUsers(userIDs []string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, uid := range userIDs {
		for _, s := range r.byUser[uid] {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) GetByConnID(connID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
