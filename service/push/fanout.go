package push

import (
	"hash/fnv"

	"github.com/homeproapp/realtorapp-server-sub001/logger"
	"github.com/homeproapp/realtorapp-server-sub001/tools/safe"
)

type fanoutJob struct {
	sessions []*Session
	payload  []byte
}

// Fanout delivers payloads to session queues through a fixed pool of
// workers. Jobs are sharded by conversation id onto per-worker queues, so
// events of one conversation are delivered in enqueue order while distinct
// conversations spread across workers.
type Fanout struct {
	queues []chan fanoutJob
	onSlow func(*Session)
}

// NewFanout starts shards workers with queueSize-deep queues. onSlow is
// invoked for a session whose queue is full; callers typically tear the
// session down there. Pass nil to just drop.
func NewFanout(shards, queueSize int, onSlow func(*Session)) *Fanout {
	if shards <= 0 {
		shards = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	f := &Fanout{
		queues: make([]chan fanoutJob, shards),
		onSlow: onSlow,
	}
	for i := range f.queues {
		q := make(chan fanoutJob, queueSize)
		f.queues[i] = q
		safe.Go(func() { f.run(q) })
	}
	return f
}

func (f *Fanout) run(q chan fanoutJob) {
	for job := range q {
		for _, s := range job.sessions {
			select {
			case s.Send <- job.payload:
			case <-s.Done():
				// Torn down under us; drop silently.
			default:
				// Slow consumer: push is best-effort, never block the shard.
				logger.Warnf("push queue full, dropping conn=%s user=%s", s.ConnID, s.UserID)
				if f.onSlow != nil {
					f.onSlow(s)
				}
			}
		}
	}
}

// Broadcast enqueues payload for the sessions on the conversation's shard.
func (f *Fanout) Broadcast(conversationID string, sessions []*Session, payload []byte) {
	if len(sessions) == 0 || len(payload) == 0 {
		return
	}
	f.queues[f.shardFor(conversationID)] <- fanoutJob{sessions: sessions, payload: payload}
}

func (f *Fanout) shardFor(conversationID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return int(h.Sum32() % uint32(len(f.queues)))
}
