package push

import "sync"

// Session is one connected device of one user. A user may hold any number
// of sessions; each has its own outbound queue drained by a single writer.
//
// Send is never closed: fanout workers on other shards may still hold the
// session when it is torn down, and a send into a closed channel panics.
// Teardown closes done instead; the writer exits on it and late payloads
// land in a queue nobody drains.
type Session struct {
	ConnID string
	UserID string
	Send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(connID, userID string, sendQueueSize int) *Session {
	return &Session{
		ConnID: connID,
		UserID: userID,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Close signals teardown exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }
