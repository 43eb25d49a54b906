// Package social implements OAuth login against Kakao, Naver and
// Google, resolving provider profiles into local accounts.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/festago/festago/internal/user"
)

var (
	// ErrUnknownProvider is returned for a provider name outside the
	// configured set.
	ErrUnknownProvider = errors.New("unknown social provider")

	// ErrInvalidState is returned when the OAuth state parameter does
	// not match an issued one.
	ErrInvalidState = errors.New("invalid oauth state")
)

var (
	kakaoEndpoint = oauth2.Endpoint{
		AuthURL:  "https://kauth.kakao.com/oauth/authorize",
		TokenURL: "https://kauth.kakao.com/oauth/token",
	}
	naverEndpoint = oauth2.Endpoint{
		AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
		TokenURL: "https://nid.naver.com/oauth2.0/token",
	}
	googleEndpoint = oauth2.Endpoint{
		AuthURL:  "https://accounts.google.com/o/oauth2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
	}
)

// Provider couples an OAuth config with its profile endpoint.
type Provider struct {
	Name    string
	Config  *oauth2.Config
	profile func(ctx context.Context, client *http.Client) (user.SocialProfile, error)
}

// ProviderCredentials is one provider's client registration.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewKakaoProvider builds the Kakao provider.
func NewKakaoProvider(creds ProviderCredentials) *Provider {
	return &Provider{
		Name: user.ProviderKakao,
		Config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     kakaoEndpoint,
		},
		profile: fetchKakaoProfile,
	}
}

// NewNaverProvider builds the Naver provider.
func NewNaverProvider(creds ProviderCredentials) *Provider {
	return &Provider{
		Name: user.ProviderNaver,
		Config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     naverEndpoint,
		},
		profile: fetchNaverProfile,
	}
}

// NewGoogleProvider builds the Google provider.
func NewGoogleProvider(creds ProviderCredentials) *Provider {
	return &Provider{
		Name: user.ProviderGoogle,
		Config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleEndpoint,
		},
		profile: fetchGoogleProfile,
	}
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchKakaoProfile(ctx context.Context, client *http.Client) (user.SocialProfile, error) {
	var payload struct {
		ID         int64 `json:"id"`
		Properties struct {
			Nickname     string `json:"nickname"`
			ProfileImage string `json:"profile_image"`
		} `json:"properties"`
		KakaoAccount struct {
			Email string `json:"email"`
		} `json:"kakao_account"`
	}
	if err := fetchJSON(ctx, client, "https://kapi.kakao.com/v2/user/me", &payload); err != nil {
		return user.SocialProfile{}, err
	}

	id := strconv.FormatInt(payload.ID, 10)
	email := payload.KakaoAccount.Email
	if email == "" {
		// Kakao only shares email with extra consent.
		email = "kakao_" + id + "@social.festago.local"
	}
	return user.SocialProfile{
		Provider:     user.ProviderKakao,
		SocialID:     id,
		Email:        email,
		Nickname:     payload.Properties.Nickname,
		ProfileImage: payload.Properties.ProfileImage,
	}, nil
}

func fetchNaverProfile(ctx context.Context, client *http.Client) (user.SocialProfile, error) {
	var payload struct {
		Response struct {
			ID           string `json:"id"`
			Email        string `json:"email"`
			Nickname     string `json:"nickname"`
			ProfileImage string `json:"profile_image"`
		} `json:"response"`
	}
	if err := fetchJSON(ctx, client, "https://openapi.naver.com/v1/nid/me", &payload); err != nil {
		return user.SocialProfile{}, err
	}

	email := payload.Response.Email
	if email == "" {
		email = "naver_" + payload.Response.ID + "@social.festago.local"
	}
	return user.SocialProfile{
		Provider:     user.ProviderNaver,
		SocialID:     payload.Response.ID,
		Email:        email,
		Nickname:     payload.Response.Nickname,
		ProfileImage: payload.Response.ProfileImage,
	}, nil
}

func fetchGoogleProfile(ctx context.Context, client *http.Client) (user.SocialProfile, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := fetchJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return user.SocialProfile{}, err
	}
	return user.SocialProfile{
		Provider:     user.ProviderGoogle,
		SocialID:     payload.ID,
		Email:        payload.Email,
		Nickname:     payload.Name,
		ProfileImage: payload.Picture,
	}, nil
}
