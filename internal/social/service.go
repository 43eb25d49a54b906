package social

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/festago/festago/internal/user"
)

// Service runs the authorization-code flow for the configured
// providers and resolves the resulting profile into a local account.
type Service struct {
	providers map[string]*Provider
	users     user.Repository
	states    *StateStore
	logger    *slog.Logger
}

// NewService creates a social login Service over the given providers.
func NewService(users user.Repository, states *StateStore, logger *slog.Logger, providers ...*Provider) *Service {
	byName := make(map[string]*Provider, len(providers))
	for _, p := range providers {
		byName[p.Name] = p
	}
	return &Service{
		providers: byName,
		users:     users,
		states:    states,
		logger:    logger,
	}
}

// AuthURL returns the provider's consent page URL with a fresh state.
func (s *Service) AuthURL(provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	state := s.states.Issue()
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Login redeems the callback: the state is validated, the code is
// exchanged for a token, the provider profile is fetched and upserted
// into the account store. Returns the user and whether it was created.
func (s *Service) Login(ctx context.Context, provider, code, state string) (*user.User, bool, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, false, ErrUnknownProvider
	}
	if !s.states.Redeem(state) {
		return nil, false, ErrInvalidState
	}

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, false, fmt.Errorf("code exchange failed: %w", err)
	}

	profile, err := p.profile(ctx, p.Config.Client(ctx, token))
	if err != nil {
		return nil, false, fmt.Errorf("profile fetch failed: %w", err)
	}

	u, created, err := user.UpsertSocial(s.users, profile)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("created account from social login",
			"provider", provider,
			"user_id", u.ID,
		)
	}
	return u, created, nil
}

// Providers lists the configured provider names.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}
