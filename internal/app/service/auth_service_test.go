package service_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"codearena/internal/app/service"
	"codearena/internal/common/security"
	"codearena/internal/domain/model"
)

func newAuthService() (*service.AuthService, *fakeUserRepo, *security.TokenManager) {
	users := newFakeUserRepo()
	tokens := security.NewTokenManager([]byte("access-secret"), time.Hour, []byte("refresh-secret"), 24*time.Hour)
	return service.NewAuthService(users, tokens), users, tokens
}

func TestRegister(t *testing.T) {
	svc, users, tokens := newAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, service.RegisterRequest{Name: "ada lovelace", Email: " ada@example.com ", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.User.Role != model.RoleUser || resp.User.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if resp.User.HashedPassword != "" {
		t.Fatalf("hash must not leave the service")
	}
	if !strings.HasPrefix(resp.User.Image, "https://placehold.co/150x150/") || !strings.HasSuffix(resp.User.Image, "text=AL") {
		t.Fatalf("unexpected avatar %q", resp.User.Image)
	}
	if resp.AccessToken == "" || resp.RefreshToken != "" {
		t.Fatalf("register issues only an access token")
	}

	claims, err := tokens.ParseAccessToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if id, _ := security.GetUserIDFromClaims(claims); id != resp.User.ID {
		t.Fatalf("token carries %q, want %q", id, resp.User.ID)
	}

	stored := users.users[resp.User.ID]
	if stored == nil || !security.CheckPasswordHash("Passw0rd!", stored.HashedPassword) {
		t.Fatalf("password not stored hashed")
	}
}

func TestRegisterErrors(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, service.RegisterRequest{Email: "a@b.co", Password: "Passw0rd!"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	cases := []struct {
		name    string
		req     service.RegisterRequest
		status  int
		message string
	}{
		{name: "duplicate email", req: service.RegisterRequest{Email: "a@b.co", Password: "Passw0rd!"}, status: http.StatusConflict, message: "Email already exists, please login"},
		{name: "weak password", req: service.RegisterRequest{Email: "c@d.co", Password: "password1"}, status: http.StatusBadRequest, message: "Validation failed"},
		{name: "bad email", req: service.RegisterRequest{Email: "nope", Password: "Passw0rd!"}, status: http.StatusBadRequest, message: "Validation failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			if statusOf(err) != tc.status || messageOf(err) != tc.message {
				t.Fatalf("expected %d %q, got %d %q", tc.status, tc.message, statusOf(err), messageOf(err))
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, service.RegisterRequest{Email: "a@b.co", Password: "Passw0rd!"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	resp, err := svc.Login(ctx, service.LoginRequest{Email: "a@b.co", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("login must issue both tokens")
	}

	_, err = svc.Login(ctx, service.LoginRequest{Email: "a@b.co", Password: "Wrong0ne!"})
	if statusOf(err) != http.StatusUnauthorized || messageOf(err) != "Invalid credentials" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	_, err = svc.Login(ctx, service.LoginRequest{Email: "x@b.co", Password: "Passw0rd!"})
	if statusOf(err) != http.StatusUnauthorized || messageOf(err) != "User not found" {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, service.RegisterRequest{Email: "a@b.co", Password: "Passw0rd!"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	login, err := svc.Login(ctx, service.LoginRequest{Email: "a@b.co", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	resp, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if resp.AccessToken == "" || resp.User.ID != login.User.ID {
		t.Fatalf("unexpected refresh response: %+v", resp)
	}

	if _, err := svc.Refresh(ctx, login.AccessToken); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("an access token must not refresh, got %v", err)
	}
	if _, err := svc.Refresh(ctx, ""); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("missing token must be 401, got %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	reg, err := svc.Register(ctx, service.RegisterRequest{Email: "a@b.co", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, err := svc.CurrentUser(ctx, reg.User.ID)
	if err != nil || user == nil || user.HashedPassword != "" {
		t.Fatalf("unexpected current user: %+v %v", user, err)
	}
	user, err = svc.CurrentUser(ctx, "gone")
	if err != nil || user != nil {
		t.Fatalf("missing user must be nil without error, got %+v %v", user, err)
	}
}
