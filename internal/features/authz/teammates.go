package authz

import (
	"context"
	"sync"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamMembershipIndex computes the visibility group used for Team scope:
// every user sharing at least one team with the given user, including the
// user itself, or the empty set for users with no team. It is purely
// membership-based — which role granted the Team scope is irrelevant.
//
// The set is recomputed on every call; membership can change between
// requests, so only a request-scoped memo (see RequestMemo) may cache it.
type TeamMembershipIndex struct {
	teams TeamDirectory
}

func NewTeamMembershipIndex(teams TeamDirectory) *TeamMembershipIndex {
	return &TeamMembershipIndex{teams: teams}
}

func (i *TeamMembershipIndex) TeammatesOf(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	members, err := i.teams.TeammatesOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(members), nil
}

// RequestMemo wraps the index with a short-lived memo so a handler that
// filters several record sets in one request hits storage once per user.
// Never hold one beyond a single request.
type RequestMemo struct {
	index *TeamMembershipIndex

	mu     sync.Mutex
	cached map[primitive.ObjectID][]primitive.ObjectID
}

func NewRequestMemo(index *TeamMembershipIndex) *RequestMemo {
	return &RequestMemo{
		index:  index,
		cached: make(map[primitive.ObjectID][]primitive.ObjectID),
	}
}

func (m *RequestMemo) TeammatesOf(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	if members, ok := m.cached[userID]; ok {
		m.mu.Unlock()
		return members, nil
	}
	m.mu.Unlock()

	members, err := m.index.TeammatesOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cached[userID] = members
	m.mu.Unlock()
	return members, nil
}
