package messaging

import (
	"context"
	"sort"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/store"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

// Aggregator composes the resolver, the store and the unread tracker into
// the grouped list views and the decorated history view. It is read-only;
// results reflect whatever is committed at query time.
type Aggregator struct {
	store    store.Store
	resolver *Resolver
	unread   *UnreadTracker
}

func NewAggregator(s store.Store, r *Resolver, u *UnreadTracker) *Aggregator {
	return &Aggregator{store: s, resolver: r, unread: u}
}

// ListForAgent lists the agent's conversations grouped by client.
func (a *Aggregator) ListForAgent(ctx context.Context, agentID string, limit, offset int) (*ConversationListResponse, error) {
	return a.list(ctx, agentID, model.RoleAgent, limit, offset)
}

// ListForClient lists the client's conversations grouped by agent.
func (a *Aggregator) ListForClient(ctx context.Context, clientID string, limit, offset int) (*ConversationListResponse, error) {
	return a.list(ctx, clientID, model.RoleClient, limit, offset)
}

func (a *Aggregator) list(ctx context.Context, userID, role string, limit, offset int) (*ConversationListResponse, error) {
	if limit <= 0 || offset < 0 {
		return nil, errs.ErrArgs.WrapMsg("bad pagination", "limit", limit, "offset", offset)
	}
	groups, err := a.resolver.project(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationGroupView, 0, len(groups))
	for _, g := range groups {
		gv, err := a.groupView(ctx, userID, g)
		if err != nil {
			return nil, err
		}
		views = append(views, gv)
	}

	// Newest activity first; ties broken by the group's newest conversation
	// id, descending, so repeated calls over unchanged data are stable.
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].UpdatedAt != views[j].UpdatedAt {
			return views[i].UpdatedAt > views[j].UpdatedAt
		}
		return newestConvID(views[i]) > newestConvID(views[j])
	})

	total := len(views)
	resp := &ConversationListResponse{
		TotalCount: total,
		HasMore:    offset+limit < total,
	}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		resp.Items = views[offset:end]
	} else {
		resp.Items = []ConversationGroupView{}
	}
	return resp, nil
}

func newestConvID(v ConversationGroupView) string {
	if len(v.Conversations) == 0 {
		return ""
	}
	return v.Conversations[0].ConversationID
}

func (a *Aggregator) groupView(ctx context.Context, userID string, g *ConversationGroup) (ConversationGroupView, error) {
	gv := ConversationGroupView{Counterpart: g.Counterpart}

	for _, c := range g.Conversations {
		rs, err := a.store.GetReadState(ctx, userID, c.ConversationID)
		if err != nil {
			return gv, err
		}
		n, err := a.store.CountFrom(ctx, c.ConversationID, rs.LastReadSeq, userID)
		if err != nil {
			return gv, err
		}
		entry := ConversationEntryView{
			ConversationID: c.ConversationID,
			ListingID:      c.ListingID,
			UpdatedAt:      c.UpdatedAt,
			UnreadCount:    n,
		}
		page, err := a.store.PageMessages(ctx, c.ConversationID, store.Cursor{}, 1)
		if err != nil {
			return gv, err
		}
		if len(page.Messages) > 0 {
			mv := viewOf(page.Messages[0], rs.LastReadSeq, userID)
			entry.LastMessage = &mv
		}

		gv.Conversations = append(gv.Conversations, entry)
		gv.UnreadCount += n
		if c.UpdatedAt > gv.UpdatedAt {
			gv.UpdatedAt = c.UpdatedAt
		}
		if entry.LastMessage != nil &&
			(gv.LastMessage == nil || entry.LastMessage.CreatedAt > gv.LastMessage.CreatedAt ||
				(entry.LastMessage.CreatedAt == gv.LastMessage.CreatedAt && entry.LastMessage.Seq > gv.LastMessage.Seq)) {
			gv.LastMessage = entry.LastMessage
		}
	}
	gv.HasUnread = gv.UnreadCount > 0

	// Sibling entries newest first, ties by conversation id descending.
	sort.SliceStable(gv.Conversations, func(i, j int) bool {
		if gv.Conversations[i].UpdatedAt != gv.Conversations[j].UpdatedAt {
			return gv.Conversations[i].UpdatedAt > gv.Conversations[j].UpdatedAt
		}
		return gv.Conversations[i].ConversationID > gv.Conversations[j].ConversationID
	})
	return gv, nil
}

// GetHistory pages one conversation's history for the requesting user,
// decorating each message with the user's read flag. Requests from
// non-participants fail as not-found.
func (a *Aggregator) GetHistory(ctx context.Context, userID, conversationID string, cur store.Cursor, limit int) (*MessageHistoryResponse, error) {
	conv, err := a.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errs.ErrNotFound.WrapMsg("conversation", "conv", conversationID)
	}

	page, err := a.store.PageMessages(ctx, conversationID, cur, limit)
	if err != nil {
		return nil, err
	}
	rs, err := a.store.GetReadState(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	resp := &MessageHistoryResponse{
		ConversationID: conversationID,
		Messages:       make([]MessageView, 0, len(page.Messages)),
		HasMore:        page.HasMore,
		NextBefore:     page.NextBefore,
		NextBeforeID:   page.NextBeforeSeq,
	}
	for _, m := range page.Messages {
		resp.Messages = append(resp.Messages, viewOf(m, rs.LastReadSeq, userID))
	}
	return resp, nil
}
