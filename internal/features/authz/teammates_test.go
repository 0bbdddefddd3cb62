package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type countingTeams struct {
	fakeTeams
	calls int
}

func (c *countingTeams) TeammatesOf(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	c.calls++
	return c.fakeTeams.TeammatesOf(ctx, userID)
}

func TestTeamMembershipIndexDeduplicates(t *testing.T) {
	user := primitive.NewObjectID()
	mate := primitive.NewObjectID()

	// Two shared teams report the same member twice.
	teams := &fakeTeams{teammates: map[primitive.ObjectID][]primitive.ObjectID{
		user: {user, mate, mate, user},
	}}

	index := NewTeamMembershipIndex(teams)
	got, err := index.TeammatesOf(context.Background(), user)
	require.NoError(t, err)
	assert.ElementsMatch(t, []primitive.ObjectID{user, mate}, got)
}

func TestRequestMemoHitsStorageOnce(t *testing.T) {
	user := primitive.NewObjectID()
	teams := &countingTeams{fakeTeams: fakeTeams{
		teammates: map[primitive.ObjectID][]primitive.ObjectID{user: {user}},
	}}

	memo := NewRequestMemo(NewTeamMembershipIndex(teams))
	for i := 0; i < 3; i++ {
		_, err := memo.TeammatesOf(context.Background(), user)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, teams.calls)
}
