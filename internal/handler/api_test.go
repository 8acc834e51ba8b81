package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/connection-points/internal/auth"
	"github.com/sakif/connection-points/internal/handler"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository/sqlite"
	"github.com/sakif/connection-points/internal/service"
)

// testAPI mounts the party, challenge and reward handlers on real services
// over in-memory SQLite. The X-Test-User header stands in for the session.
type testAPI struct {
	router http.Handler
	db     *sqlite.DB
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = service.NewBootstrapper(db, logger).EnsureReady(ctx)
	require.NoError(t, err)

	for _, u := range []string{"alice", "bob", "carol"} {
		require.NoError(t, db.CreateUser(ctx, &model.User{
			Email: u + "@example.com", Name: u, DisplayName: u, Password: "x",
		}))
	}

	points := service.NewPointsService(db, db, db)
	parties := handler.NewPartyHandler(service.NewPartyService(db, db, logger), points, logger)
	challenges := handler.NewChallengeHandler(service.NewChallengeService(db, db, db, logger), logger)
	rewards := handler.NewRewardHandler(service.NewRewardService(db, db, db, points, logger), logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if email := req.Header.Get("X-Test-User"); email != "" {
				req = req.WithContext(auth.WithEmail(req.Context(), email))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/parties", parties.HandleCreate)
	r.Post("/api/parties/join", parties.HandleJoin)
	r.Get("/api/parties/{partyID}", parties.HandleGet)
	r.Get("/api/parties/{partyID}/points", parties.HandlePoints)
	r.Get("/api/parties/{partyID}/challenges", challenges.HandleList)
	r.Post("/api/parties/{partyID}/challenges", challenges.HandleCreate)
	r.Post("/api/challenges/{id}/accept", challenges.HandleAccept)
	r.Post("/api/challenges/{id}/complete", challenges.HandleComplete)
	r.Post("/api/challenges/{id}/credit", challenges.HandleCredit)
	r.Get("/api/parties/{partyID}/rewards", rewards.HandleList)
	r.Post("/api/parties/{partyID}/rewards", rewards.HandleCreate)
	r.Post("/api/rewards/{id}/claim", rewards.HandleClaim)
	r.Post("/api/rewards/{id}/approve", rewards.HandleApprove)

	return &testAPI{router: r, db: db}
}

func (a *testAPI) do(t *testing.T, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = postJSON(path, body)
		req.Method = method
	}
	if user != "" {
		req.Header.Set("X-Test-User", user+"@example.com")
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v), rr.Body.String())
}

type partyWithKey struct {
	model.Party
	InviteKey string `json:"inviteKey"`
}

func (a *testAPI) createHousehold(t *testing.T) partyWithKey {
	t.Helper()
	rr := a.do(t, "alice", http.MethodPost, "/api/parties", `{"name":"Home","description":"flat 4"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var p partyWithKey
	decodeInto(t, rr, &p)
	require.NotEmpty(t, p.InviteKey)

	rr = a.do(t, "bob", http.MethodPost, "/api/parties/join",
		fmt.Sprintf(`{"name":"Home","inviteKey":%q}`, p.InviteKey))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return p
}

func TestPartyAPI(t *testing.T) {
	api := newTestAPI(t)
	p := api.createHousehold(t)

	rr := api.do(t, "bob", http.MethodGet, "/api/parties/"+p.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), p.InviteKey, "members never see the key again")

	rr = api.do(t, "carol", http.MethodGet, "/api/parties/"+p.ID, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, "carol", http.MethodPost, "/api/parties/join", `{"name":"Home","inviteKey":"guess"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, "carol", http.MethodPost, "/api/parties", `{"name":"Home"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do(t, "", http.MethodGet, "/api/parties/"+p.ID, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChallengeAndRewardAPI(t *testing.T) {
	api := newTestAPI(t)
	p := api.createHousehold(t)
	base := "/api/parties/" + p.ID

	rr := api.do(t, "alice", http.MethodPost, base+"/challenges",
		`{"name":"Dishes","points":15,"recurring":"weekly","dueDate":"2024-03-04T18:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var c model.Challenge
	decodeInto(t, rr, &c)
	assert.Equal(t, model.ChallengeOpen, c.Status)

	rr = api.do(t, "alice", http.MethodPost, base+"/challenges", `{"name":"Bad","recurring":"hourly"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for _, step := range []struct{ user, action string }{
		{"bob", "accept"}, {"bob", "complete"}, {"alice", "credit"},
	} {
		rr = api.do(t, step.user, http.MethodPost, "/api/challenges/"+c.ID+"/"+step.action, "")
		require.Equal(t, http.StatusOK, rr.Code, "%s: %s", step.action, rr.Body.String())
	}

	rr = api.do(t, "alice", http.MethodPost, "/api/challenges/"+c.ID+"/credit", "")
	assert.Equal(t, http.StatusConflict, rr.Code, "credited once")

	rr = api.do(t, "bob", http.MethodGet, base+"/challenges?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page handler.PageResponse[model.Challenge]
	decodeInto(t, rr, &page)
	assert.Len(t, page.Items, 1)
	assert.NotEmpty(t, page.Next, "the next weekly occurrence is on a second page")

	rr = api.do(t, "alice", http.MethodPost, base+"/rewards", `{"name":"Pick the movie","cost":10}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var reward model.Reward
	decodeInto(t, rr, &reward)

	rr = api.do(t, "bob", http.MethodPost, "/api/rewards/"+reward.ID+"/claim", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = api.do(t, "bob", http.MethodPost, "/api/rewards/"+reward.ID+"/approve", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = api.do(t, "alice", http.MethodPost, "/api/rewards/"+reward.ID+"/approve", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = api.do(t, "bob", http.MethodGet, base+"/points", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var pts service.Points
	decodeInto(t, rr, &pts)
	assert.Equal(t, service.Points{Earned: 15, Spent: 10, Balance: 5}, pts)

	rr = api.do(t, "bob", http.MethodGet, base+"/rewards?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, "carol", http.MethodGet, base+"/rewards", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestChallengeAPI_UnknownID(t *testing.T) {
	api := newTestAPI(t)
	api.createHousehold(t)

	rr := api.do(t, "bob", http.MethodPost, "/api/challenges/nope/accept", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
