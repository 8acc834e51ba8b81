package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	carol = "carol@example.com"
)

// household is a party owned by alice with bob as a member. carol exists
// but has not joined.
type household struct {
	store *fakeStore
	party *model.Party
}

func addUser(store *fakeStore, email, name string) {
	store.users[email] = model.User{Email: email, Name: name, DisplayName: name, Parties: []string{}}
}

func newHousehold(t *testing.T) *household {
	t.Helper()
	store := newFakeStore()
	addUser(store, alice, "alice")
	addUser(store, bob, "bob")
	addUser(store, carol, "carol")

	parties := NewPartyService(store, store, discardLogger())
	party, err := parties.Create(context.Background(), alice, CreatePartyInput{Name: "Home"})
	require.NoError(t, err)
	_, err = parties.Join(context.Background(), bob, JoinPartyInput{Name: "Home", InviteKey: party.InviteKey})
	require.NoError(t, err)

	return &household{store: store, party: party}
}

func TestPartyCreate(t *testing.T) {
	store := newFakeStore()
	addUser(store, alice, "alice")
	s := NewPartyService(store, store, discardLogger())

	p, err := s.Create(context.Background(), alice, CreatePartyInput{Name: "  Home ", Description: "our flat"})
	require.NoError(t, err)

	assert.Equal(t, "Home", p.Name)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, alice, p.Owner)
	assert.Equal(t, model.PartyActive, p.Status)
	assert.GreaterOrEqual(t, len(p.InviteKey), 43)
	assert.Contains(t, store.users[alice].Parties, p.ID)
}

func TestPartyCreate_DuplicateName(t *testing.T) {
	h := newHousehold(t)
	s := NewPartyService(h.store, h.store, discardLogger())

	_, err := s.Create(context.Background(), carol, CreatePartyInput{Name: "Home"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "Party name already taken", appMessage(t, err))
	assert.Empty(t, h.store.users[carol].Parties)
}

func TestPartyCreate_Validation(t *testing.T) {
	store := newFakeStore()
	addUser(store, alice, "alice")
	s := NewPartyService(store, store, discardLogger())

	_, err := s.Create(context.Background(), alice, CreatePartyInput{Name: "   "})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestPartyJoin(t *testing.T) {
	h := newHousehold(t)
	s := NewPartyService(h.store, h.store, discardLogger())

	assert.Contains(t, h.store.users[bob].Parties, h.party.ID)

	// Joining twice does not duplicate membership.
	_, err := s.Join(context.Background(), bob, JoinPartyInput{Name: "Home", InviteKey: h.party.InviteKey})
	require.NoError(t, err)
	assert.Len(t, h.store.users[bob].Parties, 1)
}

func TestPartyJoin_Rejected(t *testing.T) {
	h := newHousehold(t)
	s := NewPartyService(h.store, h.store, discardLogger())

	tests := []struct {
		name string
		in   JoinPartyInput
	}{
		{"wrong key", JoinPartyInput{Name: "Home", InviteKey: "guess"}},
		{"unknown party", JoinPartyInput{Name: "Elsewhere", InviteKey: h.party.InviteKey}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Join(context.Background(), carol, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrForbidden))
			assert.Equal(t, "invalid party name or invite key", appMessage(t, err))
		})
	}
	assert.Empty(t, h.store.users[carol].Parties)
}

func TestPartyJoin_Archived(t *testing.T) {
	h := newHousehold(t)
	archived := *h.party
	archived.Status = model.PartyArchived
	require.NoError(t, h.store.UpdateParty(context.Background(), &archived))

	s := NewPartyService(h.store, h.store, discardLogger())
	_, err := s.Join(context.Background(), carol, JoinPartyInput{Name: "Home", InviteKey: h.party.InviteKey})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestPartyGet(t *testing.T) {
	h := newHousehold(t)
	s := NewPartyService(h.store, h.store, discardLogger())

	p, err := s.Get(context.Background(), bob, h.party.ID)
	require.NoError(t, err)
	assert.Equal(t, "Home", p.Name)

	_, err = s.Get(context.Background(), carol, h.party.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = s.Get(context.Background(), "ghost@example.com", h.party.ID)
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
}
