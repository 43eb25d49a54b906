package social

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/festago/festago/internal/user"
)

func TestStateStoreSingleUse(t *testing.T) {
	store := NewStateStore()
	state := store.Issue()

	if !store.Redeem(state) {
		t.Fatal("fresh state must redeem")
	}
	if store.Redeem(state) {
		t.Fatal("state must not redeem twice")
	}
	if store.Redeem("never-issued") {
		t.Fatal("unknown state must not redeem")
	}
}

func TestStateStoreExpiry(t *testing.T) {
	store := NewStateStore()
	state := store.Issue()

	store.now = func() time.Time { return time.Now().Add(stateTTL + time.Minute) }
	if store.Redeem(state) {
		t.Fatal("expired state must not redeem")
	}
}

func TestAuthURLContainsState(t *testing.T) {
	states := NewStateStore()
	svc := NewService(user.NewInMemoryRepository(), states, slog.Default(),
		NewKakaoProvider(ProviderCredentials{ClientID: "kid", RedirectURL: "http://localhost/cb"}),
	)

	url, err := svc.AuthURL(user.ProviderKakao)
	if err != nil {
		t.Fatalf("auth url: %v", err)
	}
	if !strings.Contains(url, "kauth.kakao.com") {
		t.Errorf("unexpected authorize host: %q", url)
	}
	if !strings.Contains(url, "state=") {
		t.Errorf("state missing from url: %q", url)
	}

	if _, err := svc.AuthURL("github"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestLoginRejectsBadState(t *testing.T) {
	svc := NewService(user.NewInMemoryRepository(), NewStateStore(), slog.Default(),
		NewGoogleProvider(ProviderCredentials{ClientID: "gid"}),
	)

	_, _, err := svc.Login(context.Background(), user.ProviderGoogle, "code", "forged")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestLoginUpsertsProfile(t *testing.T) {
	users := user.NewInMemoryRepository()
	states := NewStateStore()

	// Stub the provider: skip the real exchange and serve a fixed profile.
	p := &Provider{Name: user.ProviderKakao}
	p.profile = func(ctx context.Context, client *http.Client) (user.SocialProfile, error) {
		return user.SocialProfile{
			Provider: user.ProviderKakao,
			SocialID: "12345",
			Email:    "person@example.com",
			Nickname: "person",
		}, nil
	}
	svc := NewService(users, states, slog.Default(), p)

	profile, err := p.profile(context.Background(), nil)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	u, created, err := user.UpsertSocial(users, profile)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Fatal("expected account creation")
	}
	if u.Role != user.RoleConsumer {
		t.Errorf("social signups default to consumer, got %q", u.Role)
	}
	if u.Username != "kakao_12345" {
		t.Errorf("unexpected username: %q", u.Username)
	}

	// Same identity again links instead of creating.
	again, created, err := user.UpsertSocial(users, profile)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created || again.ID != u.ID {
		t.Errorf("expected existing account reuse, created=%v id=%q", created, again.ID)
	}

	if got := svc.Providers(); len(got) != 1 || got[0] != user.ProviderKakao {
		t.Errorf("unexpected provider list: %v", got)
	}
}

func TestUpsertSocialLinksByEmail(t *testing.T) {
	users := user.NewInMemoryRepository()
	existing := &user.User{Username: "longtime", Email: "person@example.com", Role: user.RoleConsumer}
	if err := existing.SetPassword("correcthorse"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := users.Insert(existing); err != nil {
		t.Fatalf("insert: %v", err)
	}

	u, created, err := user.UpsertSocial(users, user.SocialProfile{
		Provider: user.ProviderNaver,
		SocialID: "n-1",
		Email:    "person@example.com",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created {
		t.Fatal("matching email must link, not create")
	}
	if u.ID != existing.ID {
		t.Errorf("linked wrong account: %q vs %q", u.ID, existing.ID)
	}
	if u.SocialProvider != user.ProviderNaver || u.SocialID != "n-1" {
		t.Errorf("social identity not recorded: %q/%q", u.SocialProvider, u.SocialID)
	}
}
