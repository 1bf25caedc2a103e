package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EgoistMa/tokomo-app/internal/api"
	"github.com/EgoistMa/tokomo-app/internal/model"
	"github.com/EgoistMa/tokomo-app/internal/pkg/lock"
	"github.com/EgoistMa/tokomo-app/internal/repository"
	"github.com/EgoistMa/tokomo-app/internal/stash"
)

const (
	testPassword = "secret1"
	testToken    = "tok-neo"
	testUserID   = int64(42)
	gameCost     = int64(80)
)

// fakeBackend is an in-memory rendition of the storefront REST API for one user.
type fakeBackend struct {
	mu sync.Mutex

	token        string
	loginToken   string
	profile      model.Profile
	profileFails bool
	games        []model.Game
	owned        map[string]bool
	codes        map[string]string // code -> "vip" | "payment"
	used         map[string]bool
	history      []model.PaymentCode
	txs          map[string]*fakeTx
	calls        map[string]int
}

// fakeTx is a deposit as the backend stores it; ids are numeric on the wire.
type fakeTx struct {
	id     int64
	key    string
	amount int64
	status string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		token:      testToken,
		loginToken: testToken,
		profile:    model.Profile{ID: 7, Username: "neo", Points: 100, IsActive: true},
		games: []model.Game{
			{ID: "1", GameName: "Mario Bros", GameType: "Platformer", DownloadURL: "https://dl/mario", Password: "pw"},
			{ID: "2", GameName: "Zelda", GameType: "Adventure", DownloadURL: "https://dl/zelda"},
			{ID: "3", GameName: "Metroid", GameType: "Action"},
		},
		owned: map[string]bool{},
		codes: map[string]string{"ABC123": "vip", "VIP777": "vip", "PAY500": "payment"},
		used:  map[string]bool{"ABC123": true},
		txs:   map[string]*fakeTx{},
		calls: map[string]int{},
	}
}

func (f *fakeBackend) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeBackend) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) setPoints(points int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile.Points = points
}

func reply(w http.ResponseWriter, status int, state, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": state, "message": message, "data": data})
}

func ok(w http.ResponseWriter, data any) { reply(w, http.StatusOK, "ok", "", data) }

func fail(w http.ResponseWriter, status int, message string) {
	reply(w, status, "error", message, nil)
}

// gameJSON renders a game with the backend's field names. Search results
// carry no secrets.
func gameJSON(g model.Game, secrets bool) map[string]any {
	out := map[string]any{"id": g.ID, "gameName": g.GameName, "gameType": g.GameType}
	if secrets {
		out["downloadUrl"] = g.DownloadURL
		out["password"] = g.Password
		out["extractPassword"] = g.ExtractPassword
	}
	return out
}

func (f *fakeBackend) detailJSON(g model.Game) map[string]any {
	return map[string]any{"game": gameJSON(g, true), "remainingPoints": f.profile.Points}
}

func (f *fakeBackend) txJSON(tx *fakeTx) map[string]any {
	return map[string]any{
		"transactionId":          tx.id,
		"type":                   model.TxTypeWeChatPay,
		"amount":                 tx.amount,
		"fromUser":               f.profile.ID,
		"externalTransactionKey": tx.key,
		"createdAt":              "2025-03-01T10:15:30.123",
		"status":                 tx.status,
	}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls[r.Method+" "+path]++

	var body map[string]any
	if r.Body != nil && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	str := func(k string) string {
		s, _ := body[k].(string)
		return s
	}
	num := func(k string) int64 {
		n, _ := body[k].(float64)
		return int64(n)
	}

	switch path {
	case "/api/user/login":
		if str("username") != f.profile.Username || str("password") != testPassword {
			fail(w, http.StatusUnauthorized, "密码错误")
			return
		}
		if f.loginToken == "" {
			ok(w, nil)
			return
		}
		f.token = f.loginToken
		ok(w, map[string]string{"token": f.loginToken})
		return
	case "/api/user/register":
		if str("username") == "taken" {
			fail(w, http.StatusBadRequest, "Username already exists")
			return
		}
		f.profile.Username = str("username")
		ok(w, map[string]any{"id": 8, "username": str("username")})
		return
	case "/api/user/password/security-question":
		if r.URL.Query().Get("username") != f.profile.Username {
			fail(w, http.StatusBadRequest, "User not found")
			return
		}
		ok(w, "Favourite colour?")
		return
	case "/api/user/password/reset":
		if str("securityAnswer") != "blue" {
			fail(w, http.StatusBadRequest, "Incorrect security answer")
			return
		}
		ok(w, nil)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	switch {
	case path == "/api/user/profile":
		if f.profileFails {
			fail(w, http.StatusInternalServerError, "boom")
			return
		}
		ok(w, f.profile)

	case path == "/api/games/search":
		kw := strings.ToLower(r.URL.Query().Get("keyword"))
		out := []map[string]any{}
		for _, g := range f.games {
			if strings.Contains(strings.ToLower(g.GameName), kw) {
				out = append(out, gameJSON(g, false))
			}
		}
		ok(w, out)

	case path == "/api/games/purchased":
		out := []map[string]any{}
		for _, g := range f.games {
			if f.owned[g.ID] {
				out = append(out, gameJSON(g, true))
			}
		}
		ok(w, out)

	case path == "/api/games/purchase":
		id := str("gameId")
		g, found := f.game(id)
		switch {
		case !found:
			fail(w, http.StatusInternalServerError, "Error purchasing game: Game not found")
		case f.owned[id]:
			fail(w, http.StatusInternalServerError, "Error purchasing game: You already own this game")
		case f.isVIP():
			f.owned[id] = true
			ok(w, f.detailJSON(g))
		case f.profile.Points < gameCost:
			fail(w, http.StatusInternalServerError, "Error purchasing game: Insufficient points")
		default:
			f.profile.Points -= gameCost
			f.owned[id] = true
			ok(w, f.detailJSON(g))
		}

	case strings.HasPrefix(path, "/api/games/"):
		id := strings.TrimPrefix(path, "/api/games/")
		g, found := f.game(id)
		if !found {
			fail(w, http.StatusInternalServerError, "Game not found")
			return
		}
		if !f.owned[id] && !f.isVIP() {
			fail(w, http.StatusForbidden, fmt.Sprintf("Please purchase the game first. Required points: %d", gameCost))
			return
		}
		ok(w, f.detailJSON(g))

	case path == "/api/user/redeem-vip", path == "/api/user/redeem-payment":
		code := str("code")
		kind := "vip"
		if path == "/api/user/redeem-payment" {
			kind = "payment"
		}
		if f.used[code] {
			fail(w, http.StatusBadRequest, "Code already used")
			return
		}
		if f.codes[code] != kind {
			fail(w, http.StatusBadRequest, "Invalid code")
			return
		}
		f.used[code] = true
		if kind == "vip" {
			exp := &model.Timestamp{Time: time.Now().Add(30 * 24 * time.Hour)}
			f.profile.VIPExpireDate = exp
			ok(w, model.VIPRedemption{ExpireDate: exp})
			return
		}
		f.profile.Points += 500
		uid := f.profile.ID
		f.history = append(f.history, model.PaymentCode{ID: 1, Code: code, Points: 500, Used: true, UsedBy: &uid})
		ok(w, model.PaymentRedemption{Points: 500, TotalPoints: f.profile.Points})

	case path == "/api/user/payment-history":
		ok(w, f.history)

	case path == "/api/payment/create":
		n := int64(len(f.txs) + 1)
		tx := &fakeTx{id: n, key: fmt.Sprintf("TX_%d_%d", n, f.profile.ID), amount: num("amount"), status: model.TxStatusPending}
		f.txs[tx.key] = tx
		ok(w, map[string]any{"transaction": f.txJSON(tx)})

	case path == "/api/payment/resolve":
		tx, found := f.txs[str("externalTransactionKey")]
		if !found {
			fail(w, http.StatusBadRequest, "Transaction not found")
			return
		}
		tx.status = model.TxStatusCompleted
		f.profile.Points += tx.amount
		ok(w, f.txJSON(tx))

	case strings.HasPrefix(path, "/api/admin/"):
		if !f.profile.IsAdmin {
			fail(w, http.StatusForbidden, "Access Denied")
			return
		}
		f.serveAdmin(w, r, path)

	default:
		fail(w, http.StatusNotFound, "not found")
	}
}

func (f *fakeBackend) serveAdmin(w http.ResponseWriter, r *http.Request, path string) {
	switch {
	case path == "/api/admin/games" && r.Method == http.MethodGet:
		out := make([]map[string]any, 0, len(f.games))
		for _, g := range f.games {
			out = append(out, gameJSON(g, true))
		}
		ok(w, out)
	case strings.HasPrefix(path, "/api/admin/games/") && r.Method == http.MethodDelete:
		if f.owned[strings.TrimPrefix(path, "/api/admin/games/")] {
			fail(w, http.StatusInternalServerError, "could not execute statement; SQL [n/a]; constraint [fk_user_games_game]")
			return
		}
		ok(w, nil)
	case path == "/api/admin/codes":
		ok(w, []map[string]any{
			{"id": 1, "code": "ABC123", "type": "VIP", "days": 30, "used": true, "usedBy": "neo"},
			{"id": "2", "code": "PAY,500", "type": "PAYMENT", "points": 500, "used": false, "usedBy": nil},
		})
	case path == "/api/admin/codes/generate":
		ok(w, []map[string]any{{"id": 9, "code": "NEW1", "type": "PAYMENT", "points": 100, "used": false}})
	default:
		fail(w, http.StatusNotFound, "not found")
	}
}

func (f *fakeBackend) game(id string) (model.Game, bool) {
	for _, g := range f.games {
		if g.ID == id {
			return g, true
		}
	}
	return model.Game{}, false
}

func (f *fakeBackend) isVIP() bool {
	return f.profile.IsVIP(time.Now())
}

// memSessions is an in-memory SessionRepository.
type memSessions struct {
	mu       sync.Mutex
	sessions map[int64]model.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[int64]model.Session{}}
}

func (m *memSessions) Get(_ context.Context, id int64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memSessions) Save(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt, s.UpdatedAt = time.Now(), time.Now()
	m.sessions[s.TelegramID] = *s
	return nil
}

func (m *memSessions) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// harness wires every service against a fake backend.
type harness struct {
	backend  *fakeBackend
	client   *api.Client
	repo     *memSessions
	results  *stash.Memory
	userLock *lock.UserLock
	sessions *SessionService
	profiles *ProfileService
	catalog  *CatalogService
	redeem   *RedeemService
	deposit  *DepositService
	admin    *AdminService
	password *PasswordService
}

const testRefreshDelay = 20 * time.Millisecond

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := api.NewWithHTTPClient(srv.URL, srv.Client())
	h := &harness{
		backend:  backend,
		client:   client,
		repo:     newMemSessions(),
		results:  stash.NewMemory(),
		userLock: lock.NewUserLock(),
	}
	h.sessions = NewSessionService(h.repo, client)
	h.profiles = NewProfileService(h.sessions, client)
	t.Cleanup(h.profiles.Stop)
	h.catalog = NewCatalogService(h.sessions, h.profiles, client, h.results, time.Minute, h.userLock)
	h.redeem = NewRedeemService(h.sessions, h.profiles, client, h.userLock, testRefreshDelay)
	h.deposit = NewDepositService(h.sessions, h.profiles, client, h.userLock, 10000, testRefreshDelay)
	h.admin = NewAdminService(h.sessions, h.profiles, client)
	h.password = NewPasswordService(client)
	return h
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	if _, err := h.sessions.Login(context.Background(), testUserID, "neo", testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
}
