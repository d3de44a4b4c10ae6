package store

import (
	"context"
	"sync"
	"time"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

// MemoryStore is the in-process Store used by tests and single-node runs.
// One lock guards everything; the per-conversation seq is the length of the
// conversation's log (tombstoned entries stay in place, so seqs are never
// renumbered).
type MemoryStore struct {
	mu      sync.RWMutex
	convs   map[string]*model.Conversation
	msgs    map[string][]*model.Message // conversationID -> log, msgs[i].Seq == i+1
	byDedup map[string]*model.Message   // conv|sender|dedup -> message
	reads   map[string]*model.ReadState // user|conv -> state
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs:   make(map[string]*model.Conversation),
		msgs:    make(map[string][]*model.Message),
		byDedup: make(map[string]*model.Message),
		reads:   make(map[string]*model.ReadState),
	}
}

func dedupKey(conv, sender, dedup string) string { return conv + "|" + sender + "|" + dedup }
func readKey(user, conv string) string           { return user + "|" + conv }

func (s *MemoryStore) UpsertConversation(ctx context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.convs[c.ConversationID]; ok {
		if cur.IsDeleted() {
			return errs.ErrNotFound.WrapMsg("conversation deleted", "conv", c.ConversationID)
		}
		return nil // participant set is immutable outside Add/RemoveParticipant
	}
	cp := *c
	cp.Participants = append([]model.Participant(nil), c.Participants...)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.convs[c.ConversationID] = &cp
	return nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getConversationLocked(conversationID)
}

func (s *MemoryStore) getConversationLocked(conversationID string) (*model.Conversation, error) {
	c, ok := s.convs[conversationID]
	if !ok || c.IsDeleted() {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	cp := *c
	cp.Participants = append([]model.Participant(nil), c.Participants...)
	return &cp, nil
}

func (s *MemoryStore) ListConversationsByUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Conversation
	for _, c := range s.convs {
		if c.IsDeleted() || !c.HasParticipant(userID) {
			continue
		}
		cp := *c
		cp.Participants = append([]model.Participant(nil), c.Participants...)
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) TouchConversation(ctx context.Context, conversationID string, seq, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok || c.IsDeleted() {
		return errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	if seq > c.LastSeq {
		c.LastSeq = seq
	}
	if at > c.UpdatedAt {
		c.UpdatedAt = at
	}
	return nil
}

func (s *MemoryStore) AddParticipant(ctx context.Context, conversationID string, p model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok || c.IsDeleted() {
		return errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	if c.HasParticipant(p.UserID) {
		return nil
	}
	c.Participants = append(c.Participants, p)
	return nil
}

func (s *MemoryStore) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok || c.IsDeleted() {
		return errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	for i, p := range c.Participants {
		if p.UserID == userID {
			c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound.WrapMsg("participant", "user", userID)
}

func (s *MemoryStore) SoftDeleteConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conversationID]
	if !ok || c.IsDeleted() {
		return errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[m.ConversationID]
	if !ok || c.IsDeleted() {
		return errs.ErrNotFound.WrapMsg("conversation", "conv", m.ConversationID)
	}
	log := s.msgs[m.ConversationID]

	now := time.Now().UnixMilli()
	if n := len(log); n > 0 && log[n-1].CreatedAt > now {
		// createdAt must be non-decreasing in seq order even if the clock
		// stalls at millisecond granularity.
		now = log[n-1].CreatedAt
	}
	m.Seq = int64(len(log)) + 1
	m.CreatedAt = now
	m.UpdatedAt = now

	cp := *m
	cp.Attachments = append([]model.Attachment(nil), m.Attachments...)
	s.msgs[m.ConversationID] = append(log, &cp)
	if m.DedupID != "" {
		s.byDedup[dedupKey(m.ConversationID, m.SenderID, m.DedupID)] = &cp
	}
	return nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, conversationID string, seq int64) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.msgs[conversationID]
	if seq < 1 || seq > int64(len(log)) {
		return nil, errs.ErrNotFound.WrapMsg("message", "conv", conversationID, "seq", seq)
	}
	m := log[seq-1]
	if m.Deleted {
		return nil, errs.ErrNotFound.WrapMsg("message deleted", "conv", conversationID, "seq", seq)
	}
	cp := *m
	cp.Attachments = append([]model.Attachment(nil), m.Attachments...)
	return &cp, nil
}

func (s *MemoryStore) FindByDedupID(ctx context.Context, conversationID, senderID, dedupID string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byDedup[dedupKey(conversationID, senderID, dedupID)]
	if !ok || m.Deleted {
		return nil, nil
	}
	cp := *m
	cp.Attachments = append([]model.Attachment(nil), m.Attachments...)
	return &cp, nil
}

func (s *MemoryStore) PageMessages(ctx context.Context, conversationID string, cur Cursor, limit int) (*Page, error) {
	if limit <= 0 {
		return nil, errs.ErrArgs.WrapMsg("limit must be positive", "limit", limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.getConversationLocked(conversationID); err != nil {
		return nil, err
	}

	log := s.msgs[conversationID]
	page := &Page{}
	for i := len(log) - 1; i >= 0; i-- {
		m := log[i]
		if m.Deleted || !cur.admits(m.CreatedAt, m.Seq) {
			continue
		}
		if len(page.Messages) == limit {
			page.HasMore = true
			break
		}
		cp := *m
		cp.Attachments = append([]model.Attachment(nil), m.Attachments...)
		page.Messages = append(page.Messages, &cp)
	}
	if n := len(page.Messages); n > 0 {
		oldest := page.Messages[n-1]
		page.NextBefore = oldest.CreatedAt
		page.NextBeforeSeq = oldest.Seq
	}
	return page, nil
}

func (s *MemoryStore) UpdateMessageText(ctx context.Context, conversationID string, seq int64, text string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.msgs[conversationID]
	if seq < 1 || seq > int64(len(log)) || log[seq-1].Deleted {
		return errs.ErrNotFound.WrapMsg("message", "conv", conversationID, "seq", seq)
	}
	m := log[seq-1]
	m.Text = text
	if at > m.UpdatedAt {
		m.UpdatedAt = at
	}
	return nil
}

func (s *MemoryStore) SoftDeleteMessage(ctx context.Context, conversationID string, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.msgs[conversationID]
	if seq < 1 || seq > int64(len(log)) || log[seq-1].Deleted {
		return errs.ErrNotFound.WrapMsg("message", "conv", conversationID, "seq", seq)
	}
	log[seq-1].Deleted = true
	return nil
}

func (s *MemoryStore) MaxSeq(ctx context.Context, conversationID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.getConversationLocked(conversationID); err != nil {
		return 0, err
	}
	return int64(len(s.msgs[conversationID])), nil
}

func (s *MemoryStore) GetReadState(ctx context.Context, userID, conversationID string) (*model.ReadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.reads[readKey(userID, conversationID)]; ok {
		cp := *r
		return &cp, nil
	}
	return &model.ReadState{UserID: userID, ConversationID: conversationID}, nil
}

func (s *MemoryStore) AdvanceReadState(ctx context.Context, userID, conversationID string, uptoSeq, at int64) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := readKey(userID, conversationID)
	r, ok := s.reads[k]
	if !ok {
		r = &model.ReadState{UserID: userID, ConversationID: conversationID}
		s.reads[k] = r
	}
	prev := r.LastReadSeq
	if uptoSeq > r.LastReadSeq {
		r.LastReadSeq = uptoSeq
		r.UpdatedAt = at
	}
	return prev, r.LastReadSeq, nil
}

func (s *MemoryStore) CountFrom(ctx context.Context, conversationID string, afterSeq int64, excludeSender string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.msgs[conversationID] {
		if m.Seq > afterSeq && !m.Deleted && m.SenderID != excludeSender {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) SeqsFrom(ctx context.Context, conversationID string, fromSeq, uptoSeq int64, excludeSender string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int64
	for _, m := range s.msgs[conversationID] {
		if m.Seq > fromSeq && m.Seq <= uptoSeq && !m.Deleted && m.SenderID != excludeSender {
			out = append(out, m.Seq)
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
