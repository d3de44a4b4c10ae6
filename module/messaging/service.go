package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/homeproapp/realtorapp-server-sub001/logger"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/store"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
	"github.com/homeproapp/realtorapp-server-sub001/tools/ids"
)

// Dispatcher receives committed events for fan-out to connected sessions.
// Delivery is best-effort: a dispatcher must never fail the call that
// produced the event.
type Dispatcher interface {
	MessageAppended(conv *model.Conversation, msg *model.Message)
	ReadStateChanged(conv *model.Conversation, userID string, uptoSeq, at int64)
}

// Service is the entry point of the messaging core: send, mark-read, list
// and history, with the error taxonomy and retry behavior of the outer API.
type Service struct {
	store    store.Store
	resolver *Resolver
	unread   *UnreadTracker
	agg      *Aggregator
	dispatch Dispatcher // optional

	// One gate per conversation. The gate is the logical per-conversation
	// sequencer: it makes seq order equal commit order for concurrent sends
	// and keeps dispatch order aligned with commit order. Different
	// conversations never contend.
	gates sync.Map // conversationID -> *sync.Mutex
}

func NewService(s store.Store, dispatch Dispatcher) *Service {
	r := NewResolver(s)
	u := NewUnreadTracker(s)
	return &Service{
		store:    s,
		resolver: r,
		unread:   u,
		agg:      NewAggregator(s, r, u),
		dispatch: dispatch,
	}
}

func (s *Service) Resolver() *Resolver     { return s.resolver }
func (s *Service) Unread() *UnreadTracker  { return s.unread }
func (s *Service) Aggregator() *Aggregator { return s.agg }

func (s *Service) gate(conversationID string) *sync.Mutex {
	v, _ := s.gates.LoadOrStore(conversationID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// SendMessageRequest carries one send. Either ConversationID addresses an
// existing conversation, or ListingID+Participants create one on first
// send. DedupID is the client-supplied idempotency key.
type SendMessageRequest struct {
	ConversationID string              `json:"conversationId"`
	ListingID      string              `json:"listingId"`
	Participants   []model.Participant `json:"participants"`
	Text           string              `json:"text"`
	Attachments    []model.Attachment  `json:"attachments"`
	DedupID        string              `json:"dedupId"`
}

// SendMessage appends one message: resolve/create the conversation, check
// membership, allocate the seq, commit, bump the conversation waterline and
// dispatch the event. A resend carrying a known DedupID returns the already
// committed message. A transient storage failure is retried once with the
// dedup key before Unavailable surfaces; after a surfaced failure the
// outcome is unknown and callers must re-query before resubmitting.
func (s *Service) SendMessage(ctx context.Context, p Principal, req SendMessageRequest) (*model.Message, error) {
	if req.Text == "" && len(req.Attachments) == 0 {
		return nil, errs.ErrArgs.WrapMsg("empty message")
	}

	convID := req.ConversationID
	if convID == "" {
		id, err := s.resolver.Resolve(ctx, p.Scope, req.ListingID, req.Participants)
		if err != nil {
			return nil, err
		}
		convID = id
	}
	conv, err := s.store.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(p.UserID) {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "conv", convID)
	}

	g := s.gate(convID)
	g.Lock()
	defer g.Unlock()

	if req.DedupID != "" {
		if existing, err := s.store.FindByDedupID(ctx, convID, p.UserID, req.DedupID); err == nil && existing != nil {
			return existing, nil
		}
	}

	msg := &model.Message{
		ServerMsgID:    ids.GenerateString(),
		ConversationID: convID,
		SenderID:       p.UserID,
		Text:           req.Text,
		Attachments:    req.Attachments,
		DedupID:        req.DedupID,
	}
	if err := s.appendWithRetry(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.store.TouchConversation(ctx, convID, msg.Seq, msg.CreatedAt); err != nil {
		// The message is committed; the waterline catches up on the next
		// append. Not a caller-visible failure.
		logger.Warnf("touch conversation failed conv=%s seq=%d: %v", convID, msg.Seq, err)
	}
	conv.LastSeq = msg.Seq
	conv.UpdatedAt = msg.CreatedAt

	if s.dispatch != nil {
		s.dispatch.MessageAppended(conv, msg)
	}
	return msg, nil
}

func (s *Service) appendWithRetry(ctx context.Context, msg *model.Message) error {
	err := s.store.AppendMessage(ctx, msg)
	if err == nil || !errors.Is(err, errs.ErrUnavailable) {
		return err
	}
	// The first attempt may have committed before the error reached us.
	if msg.DedupID != "" {
		if existing, ferr := s.store.FindByDedupID(ctx, msg.ConversationID, msg.SenderID, msg.DedupID); ferr == nil && existing != nil {
			*msg = *existing
			return nil
		}
	}
	return s.store.AppendMessage(ctx, msg)
}

// MarkRead advances the caller's watermark and dispatches a read receipt to
// every participant session, the caller's other devices included. A repeat
// call is a no-op and dispatches nothing.
func (s *Service) MarkRead(ctx context.Context, p Principal, conversationID string, uptoSeq int64) (*MarkReadResult, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(p.UserID) {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}

	g := s.gate(conversationID)
	g.Lock()
	defer g.Unlock()

	res, err := s.unread.MarkRead(ctx, p.UserID, conversationID, uptoSeq)
	if err != nil && errors.Is(err, errs.ErrUnavailable) {
		// Advancement is a monotonic max: retrying cannot over-apply.
		res, err = s.unread.MarkRead(ctx, p.UserID, conversationID, uptoSeq)
	}
	if err != nil {
		return nil, err
	}

	// Dispatch on any watermark movement, not only on transitions: an
	// advance over the caller's own messages marks nothing yet still
	// changes state the caller's other devices must converge on.
	if s.dispatch != nil && res.Advanced() {
		s.dispatch.ReadStateChanged(conv, p.UserID, res.ReadSeq, time.Now().UnixMilli())
	}
	return res, nil
}

// ListConversations returns the caller's grouped list view for their role.
func (s *Service) ListConversations(ctx context.Context, p Principal, limit, offset int) (*ConversationListResponse, error) {
	switch p.Role {
	case model.RoleAgent:
		return s.agg.ListForAgent(ctx, p.UserID, limit, offset)
	case model.RoleClient:
		return s.agg.ListForClient(ctx, p.UserID, limit, offset)
	default:
		return nil, errs.ErrArgs.WrapMsg("unknown role", "role", p.Role)
	}
}

// GetHistory pages history for the caller. Read-only and safely retriable.
func (s *Service) GetHistory(ctx context.Context, p Principal, conversationID string, cur store.Cursor, limit int) (*MessageHistoryResponse, error) {
	return s.agg.GetHistory(ctx, p.UserID, conversationID, cur, limit)
}

// EditMessage changes a message's text. Only the sender may edit; seq,
// sender and createdAt stay immutable.
func (s *Service) EditMessage(ctx context.Context, p Principal, conversationID string, seq int64, text string) error {
	if text == "" {
		return errs.ErrArgs.WrapMsg("empty text")
	}
	m, err := s.store.GetMessage(ctx, conversationID, seq)
	if err != nil {
		return err
	}
	if m.SenderID != p.UserID {
		return errs.ErrNotFound.WrapMsg("message", "conv", conversationID, "seq", seq)
	}
	return s.store.UpdateMessageText(ctx, conversationID, seq, text, time.Now().UnixMilli())
}

// DeleteMessage tombstones a message. It disappears from history and from
// unread computation; seqs are never renumbered.
func (s *Service) DeleteMessage(ctx context.Context, p Principal, conversationID string, seq int64) error {
	m, err := s.store.GetMessage(ctx, conversationID, seq)
	if err != nil {
		return err
	}
	if m.SenderID != p.UserID {
		return errs.ErrNotFound.WrapMsg("message", "conv", conversationID, "seq", seq)
	}
	return s.store.SoftDeleteMessage(ctx, conversationID, seq)
}
