package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory repository.Store. Error fields simulate
// backend failures; hooks let tests interleave a competing writer.
type fakeStore struct {
	mu sync.Mutex

	tables       map[string]bool
	createdOrder []string
	authConfig   *model.AuthConfig
	users        map[string]model.User
	parties      map[string]model.Party
	challenges   map[string]model.Challenge
	rewards      map[string]model.Reward

	tableExistsErr   error
	createTableErr   error
	getAuthErr       error
	createAuthErr    error
	beforeCreateAuth func()
	listUsersErr     error
	putChallengeErr  error
	getAuthCalls     int
	createAuthCalls  int
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:     map[string]bool{},
		users:      map[string]model.User{},
		parties:    map[string]model.Party{},
		challenges: map[string]model.Challenge{},
		rewards:    map[string]model.Reward{},
	}
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) TableExists(_ context.Context, table string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tableExistsErr != nil {
		return false, f.tableExistsErr
	}
	return f.tables[table], nil
}

func (f *fakeStore) CreateTable(_ context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTableErr != nil {
		return f.createTableErr
	}
	f.tables[table] = true
	f.createdOrder = append(f.createdOrder, table)
	return nil
}

func (f *fakeStore) GetAuthConfig(_ context.Context, name string) (*model.AuthConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getAuthCalls++
	if f.getAuthErr != nil {
		return nil, f.getAuthErr
	}
	if f.authConfig == nil || f.authConfig.Name != name {
		return nil, apperror.NotFound("auth config", name)
	}
	cfg := *f.authConfig
	return &cfg, nil
}

func (f *fakeStore) CreateAuthConfig(_ context.Context, cfg *model.AuthConfig) error {
	if f.beforeCreateAuth != nil {
		f.beforeCreateAuth()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createAuthCalls++
	if f.createAuthErr != nil {
		return f.createAuthErr
	}
	if f.authConfig != nil {
		return apperror.Conflict("auth config", cfg.Name)
	}
	stored := *cfg
	f.authConfig = &stored
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return apperror.Conflict("user", user.Email)
	}
	f.users[user.Email] = cloneUser(*user)
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	c := cloneUser(u)
	return &c, nil
}

func (f *fakeStore) GetUserByName(_ context.Context, name string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", name)
}

func (f *fakeStore) ListUsers(_ context.Context, opts repository.ListOptions) (*repository.Page[model.User], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listUsersErr != nil {
		return nil, f.listUsersErr
	}
	return paginate(f.users, opts, func(u model.User) string { return u.Email }), nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, email, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return apperror.NotFound("user", email)
	}
	u.Password = hash
	f.users[email] = u
	return nil
}

func (f *fakeStore) AddParty(_ context.Context, email, partyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return apperror.NotFound("user", email)
	}
	if !slices.Contains(u.Parties, partyID) {
		u.Parties = append(slices.Clone(u.Parties), partyID)
	}
	f.users[email] = u
	return nil
}

func (f *fakeStore) CreateParty(_ context.Context, p *model.Party) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.parties[p.Name]; ok {
		return apperror.Conflict("party", p.Name)
	}
	f.parties[p.Name] = *p
	return nil
}

func (f *fakeStore) GetParty(_ context.Context, name string) (*model.Party, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.parties[name]
	if !ok {
		return nil, apperror.NotFound("party", name)
	}
	return &p, nil
}

func (f *fakeStore) GetPartyByID(_ context.Context, id string) (*model.Party, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.parties {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, apperror.NotFound("party", id)
}

func (f *fakeStore) UpdateParty(_ context.Context, p *model.Party) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.parties[p.Name]; !ok {
		return apperror.NotFound("party", p.Name)
	}
	f.parties[p.Name] = *p
	return nil
}

func (f *fakeStore) PutChallenge(_ context.Context, c *model.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putChallengeErr != nil {
		return f.putChallengeErr
	}
	f.challenges[c.ID] = *c
	return nil
}

func (f *fakeStore) GetChallenge(_ context.Context, id string) (*model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, apperror.NotFound("challenge", id)
	}
	return &c, nil
}

func (f *fakeStore) ListChallengesByParty(_ context.Context, partyID string, opts repository.ListOptions) (*repository.Page[model.Challenge], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inParty := map[string]model.Challenge{}
	for id, c := range f.challenges {
		if c.PartyID == partyID {
			inParty[id] = c
		}
	}
	return paginate(inParty, opts, func(c model.Challenge) string { return c.ID }), nil
}

func (f *fakeStore) PutReward(_ context.Context, r *model.Reward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewards[r.ID] = *r
	return nil
}

func (f *fakeStore) GetReward(_ context.Context, id string) (*model.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rewards[id]
	if !ok {
		return nil, apperror.NotFound("reward", id)
	}
	return &r, nil
}

func (f *fakeStore) ListRewardsByParty(_ context.Context, partyID string, opts repository.ListOptions) (*repository.Page[model.Reward], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inParty := map[string]model.Reward{}
	for id, r := range f.rewards {
		if r.PartyID == partyID {
			inParty[id] = r
		}
	}
	return paginate(inParty, opts, func(r model.Reward) string { return r.ID }), nil
}

// paginate mimics keyset pagination over a map.
func paginate[T any](items map[string]T, opts repository.ListOptions, key func(T) string) *repository.Page[T] {
	opts = opts.Normalize()
	all := make([]T, 0, len(items))
	for _, v := range items {
		if key(v) > opts.After {
			all = append(all, v)
		}
	}
	sort.Slice(all, func(i, j int) bool { return key(all[i]) < key(all[j]) })

	page := &repository.Page[T]{Items: all}
	if len(all) > opts.Limit {
		page.Items = all[:opts.Limit]
		page.Next = key(all[opts.Limit-1])
	}
	return page
}

func cloneUser(u model.User) model.User {
	u.Parties = slices.Clone(u.Parties)
	if u.Parties == nil {
		u.Parties = []string{}
	}
	return u
}

// =========================================================================
// FAKE NOTIFIER
// =========================================================================

type sentReset struct {
	to, password string
}

type fakeNotifier struct {
	sent []sentReset
	err  error
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, to, newPassword string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentReset{to: to, password: newPassword})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
