package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
	"github.com/sakif/connection-points/internal/repository/sqlite"
)

// =========================================================================
// END TO END ON SQLITE
// =========================================================================

func newSQLiteStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBootstrapRegisterLogin_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteStore(t)

	cfg, err := NewBootstrapper(db, discardLogger()).EnsureReady(ctx)
	require.NoError(t, err)

	for _, table := range repository.Tables {
		exists, err := db.TableExists(ctx, table)
		require.NoError(t, err)
		assert.True(t, exists, "table %s", table)
	}
	assert.GreaterOrEqual(t, len(cfg.Key), 43)
	assert.Equal(t, model.DefaultExpiryDays, cfg.ExpiryDays)

	again, err := NewBootstrapper(db, discardLogger()).EnsureReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.Key, again.Key)

	n := &fakeNotifier{}
	identity, err := NewIdentityService(db, cfg, testPasswords, n, 0, discardLogger())
	require.NoError(t, err)

	_, err = identity.Register(ctx, registerInput("bob", "bob@example.com", "pw1"))
	require.NoError(t, err)

	stored, err := db.GetUserByName(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", stored.Email)
	assert.NoError(t, testPasswords.Verify(stored.Password, "pw1"))

	session, err := identity.Login(ctx, "bob", "pw1")
	require.NoError(t, err)
	email, err := identity.Tokens().Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", email)

	_, err = identity.Login(ctx, "bob", "wrong")
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	_, err = identity.Register(ctx, registerInput("bob", "robert@example.com", "pw2"))
	assert.True(t, errors.Is(err, apperror.ErrConflict))

	require.NoError(t, identity.ForgotPassword(ctx, "bob"))
	require.Len(t, n.sent, 1)
	_, err = identity.Login(ctx, "bob", n.sent[0].password)
	assert.NoError(t, err)
}

func TestHouseholdFlow_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteStore(t)
	cfg, err := NewBootstrapper(db, discardLogger()).EnsureReady(ctx)
	require.NoError(t, err)

	identity, err := NewIdentityService(db, cfg, testPasswords, &fakeNotifier{}, 0, discardLogger())
	require.NoError(t, err)
	_, err = identity.Register(ctx, registerInput("alice", alice, "pw"))
	require.NoError(t, err)
	_, err = identity.Register(ctx, registerInput("bobby", bob, "pw"))
	require.NoError(t, err)

	parties := NewPartyService(db, db, discardLogger())
	party, err := parties.Create(ctx, alice, CreatePartyInput{Name: "Home"})
	require.NoError(t, err)
	_, err = parties.Join(ctx, bob, JoinPartyInput{Name: "Home", InviteKey: party.InviteKey})
	require.NoError(t, err)

	challenges := NewChallengeService(db, db, db, discardLogger())
	c, err := challenges.Create(ctx, alice, party.ID, CreateChallengeInput{Name: "Dishes", Points: 15})
	require.NoError(t, err)
	_, err = challenges.Accept(ctx, bob, c.ID)
	require.NoError(t, err)
	_, err = challenges.Complete(ctx, bob, c.ID)
	require.NoError(t, err)
	_, err = challenges.Credit(ctx, alice, c.ID)
	require.NoError(t, err)

	points := NewPointsService(db, db, db)
	rewards := NewRewardService(db, db, db, points, discardLogger())
	r, err := rewards.Create(ctx, alice, party.ID, CreateRewardInput{Name: "Pick the movie", Cost: 10})
	require.NoError(t, err)
	_, err = rewards.Claim(ctx, bob, r.ID)
	require.NoError(t, err)
	_, err = rewards.Approve(ctx, alice, r.ID)
	require.NoError(t, err)

	pts, err := points.Balance(ctx, bob, party.ID)
	require.NoError(t, err)
	assert.Equal(t, Points{Earned: 15, Spent: 10, Balance: 5}, *pts)
}
