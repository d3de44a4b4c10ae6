package messaging

import (
	"context"
	"sort"
	"strings"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/model"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/store"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

// ConversationID derives the stable identity of a conversation from its
// listing and participant set. The participant ids are sorted first, so the
// same (listing, participant-set) tuple always maps to the same id and
// different participant sets on one listing map to different ids.
func ConversationID(listingID string, participantIDs []string) string {
	ids := append([]string(nil), participantIDs...)
	sort.Strings(ids)
	return "lst:" + listingID + ":" + strings.Join(ids, "_")
}

// Resolver maps (listing, participant-set) tuples onto canonical
// conversations, creating the conversation row on first resolution.
type Resolver struct {
	store store.Store
}

func NewResolver(s store.Store) *Resolver { return &Resolver{store: s} }

// Resolve returns the conversation id for the tuple, creating the
// conversation when it does not exist yet. Listing and participants outside
// the caller's scope fail as not-found.
func (r *Resolver) Resolve(ctx context.Context, scope Scope, listingID string, participants []model.Participant) (string, error) {
	if listingID == "" || len(participants) < 2 {
		return "", errs.ErrArgs.WrapMsg("listing and at least two participants required")
	}
	if !scope.AllowsListing(listingID) {
		return "", errs.ErrNotFound.WrapMsg("listing", "listing", listingID)
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if !scope.AllowsUser(p.UserID) {
			return "", errs.ErrNotFound.WrapMsg("participant", "user", p.UserID)
		}
		ids = append(ids, p.UserID)
	}

	convID := ConversationID(listingID, ids)
	conv := &model.Conversation{
		ConversationID: convID,
		ListingID:      listingID,
		Participants:   participants,
	}
	if err := r.store.UpsertConversation(ctx, conv); err != nil {
		return "", err
	}
	return convID, nil
}

// ConversationGroup is one row of a grouped projection: every per-listing
// conversation the viewer shares with one counterpart, as sibling entries.
type ConversationGroup struct {
	Counterpart   model.Participant
	Conversations []*model.Conversation
}

// groupByCounterpart projects conversations onto per-counterpart groups.
// viewerRole is the viewer's role; counterparts are the participants with
// any other role. A conversation with several counterparts contributes to
// each of their groups.
func groupByCounterpart(convs []*model.Conversation, viewerRole string) []*ConversationGroup {
	byUser := make(map[string]*ConversationGroup)
	var order []string
	for _, c := range convs {
		for _, p := range c.Counterparts(viewerRole) {
			g, ok := byUser[p.UserID]
			if !ok {
				g = &ConversationGroup{Counterpart: p}
				byUser[p.UserID] = g
				order = append(order, p.UserID)
			}
			g.Conversations = append(g.Conversations, c)
		}
	}
	out := make([]*ConversationGroup, 0, len(order))
	for _, id := range order {
		out = append(out, byUser[id])
	}
	return out
}

// ProjectForAgent groups the agent's conversations by client.
func (r *Resolver) ProjectForAgent(ctx context.Context, agentID string) ([]*ConversationGroup, error) {
	return r.project(ctx, agentID, model.RoleAgent)
}

// ProjectForClient groups the client's conversations by agent.
func (r *Resolver) ProjectForClient(ctx context.Context, clientID string) ([]*ConversationGroup, error) {
	return r.project(ctx, clientID, model.RoleClient)
}

func (r *Resolver) project(ctx context.Context, userID, role string) ([]*ConversationGroup, error) {
	convs, err := r.store.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	kept := convs[:0]
	for _, c := range convs {
		if c.RoleOf(userID) == role {
			kept = append(kept, c)
		}
	}
	return groupByCounterpart(kept, role), nil
}
