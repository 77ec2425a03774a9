package httpapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"lanepos/backend/internal/domain"
	jmemory "lanepos/backend/internal/journal/memory"
)

func loginReq(username, password string) domain.LoginRequest {
	return domain.LoginRequest{Username: username, Password: password}
}

func cashierReq(username, password string) domain.CashierCreateRequest {
	return domain.CashierCreateRequest{Username: username, Password: password}
}

func legacyUser(username, password, role string) domain.UserAccount {
	return domain.UserAccount{
		Username:  username,
		Password:  password,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	return NewAuthManager("test-secret-key", time.Hour, jmemory.NewSeeded())
}

func TestTokenRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(loginReq("admin", "admin123"))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("role = %q", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestParseTokenRejectsGarbageAndForeignSignature(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.ParseToken("not-a-jwt"); err == nil {
		t.Fatal("garbage token accepted")
	}

	other := NewAuthManager("a-completely-different-secret", time.Hour, jmemory.NewSeeded())
	resp, err := other.Login(loginReq("admin", "admin123"))
	if err != nil {
		t.Fatalf("login on other manager: %v", err)
	}
	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	auth := newTestAuth(t)
	token, err := auth.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	store := jmemory.NewSeeded()
	auth := NewAuthManager("test-secret-key", time.Hour, store)

	created, err := auth.CreateCashier(cashierReq("lane9", "secret9"))
	if err != nil {
		t.Fatalf("create cashier: %v", err)
	}
	store.SetUserActive(created.Username, false)

	if _, err := auth.Login(loginReq("lane9", "secret9")); err == nil {
		t.Fatal("inactive account logged in")
	}
}

func TestCreateCashierValidation(t *testing.T) {
	auth := newTestAuth(t)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "secret9"},
		{"username with space", "lane nine", "secret9"},
		{"short password", "lane9", "123"},
		{"duplicate username", "cashier", "secret9"},
	}
	for _, tc := range cases {
		if _, err := auth.CreateCashier(cashierReq(tc.username, tc.password)); err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
	}

	created, err := auth.CreateCashier(cashierReq("  Lane9  ", "secret9"))
	if err != nil {
		t.Fatalf("valid cashier rejected: %v", err)
	}
	if created.Username != "lane9" || created.Role != "cashier" {
		t.Fatalf("created = %+v", created)
	}
}

func TestListCashiersExcludesAdmins(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.CreateCashier(cashierReq("aaaa", "secret9")); err != nil {
		t.Fatalf("create cashier: %v", err)
	}

	cashiers := auth.ListCashiers()
	if len(cashiers) != 2 {
		t.Fatalf("cashiers = %d, want 2", len(cashiers))
	}
	if cashiers[0].Username != "aaaa" || cashiers[1].Username != "cashier" {
		t.Fatalf("unexpected order: %q, %q", cashiers[0].Username, cashiers[1].Username)
	}
	for _, c := range cashiers {
		if c.Role != "cashier" {
			t.Fatalf("non-cashier listed: %+v", c)
		}
	}
}

func TestLegacyPlainTextPasswordIsUpgraded(t *testing.T) {
	store := jmemory.New()
	if err := store.CreateUser(context.Background(), legacyUser("oldtimer", "plain-secret", "cashier")); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	auth := NewAuthManager("test-secret-key", time.Hour, store)
	if _, err := auth.Login(loginReq("oldtimer", "plain-secret")); err != nil {
		t.Fatalf("login with legacy password: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("password not upgraded to bcrypt: %+v", users)
	}
}

func TestCashierRouteViaHTTP(t *testing.T) {
	api := newTestAPI(t)
	adminToken := login(t, api, "admin", "admin123")
	cashierToken := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, cashierToken, http.MethodPost, "/api/v1/users/cashiers", cashierReq("lane9", "secret9"))
	if res.Code != http.StatusForbidden {
		t.Fatalf("cashier creating cashier: %d, want 403", res.Code)
	}

	res = doJSON(t, api, adminToken, http.MethodPost, "/api/v1/users/cashiers", cashierReq("lane9", "secret9"))
	if res.Code != http.StatusCreated {
		t.Fatalf("admin creating cashier: %d %s", res.Code, res.Body.String())
	}

	// The new account can log in straight away.
	login(t, api, "lane9", "secret9")
}
