package messaging

// Principal is the verified identity the auth collaborator attaches to a
// request. The core trusts it as-is and never re-verifies credentials.
//
// Scope is the set of listings and users the principal may see. A nil set
// means unrestricted (internal callers, tests); out-of-scope lookups fail
// as not-found so existence of foreign data never leaks.
type Principal struct {
	UserID string
	Role   string // model.RoleAgent or model.RoleClient
	Scope  Scope
}

type Scope struct {
	Listings map[string]struct{}
	Users    map[string]struct{}
}

func (s Scope) AllowsListing(listingID string) bool {
	if s.Listings == nil {
		return true
	}
	_, ok := s.Listings[listingID]
	return ok
}

func (s Scope) AllowsUser(userID string) bool {
	if s.Users == nil {
		return true
	}
	_, ok := s.Users[userID]
	return ok
}

// ScopeOf builds a Scope from explicit id lists; empty lists stay
// unrestricted.
func ScopeOf(listingIDs, userIDs []string) Scope {
	var sc Scope
	if len(listingIDs) > 0 {
		sc.Listings = make(map[string]struct{}, len(listingIDs))
		for _, id := range listingIDs {
			sc.Listings[id] = struct{}{}
		}
	}
	if len(userIDs) > 0 {
		sc.Users = make(map[string]struct{}, len(userIDs))
		for _, id := range userIDs {
			sc.Users[id] = struct{}{}
		}
	}
	return sc
}
