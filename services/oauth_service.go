package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/royamoon/FoodLens/config"
	"github.com/royamoon/FoodLens/models"
	"github.com/royamoon/FoodLens/utils"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

// Fallback used when the client does not supply its own deep link.
const defaultOAuthRedirect = "foodlens://auth/login-callback"

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	ErrOAuthNotConfigured = errors.New("GOOGLE_CLIENT_ID is not configured")
	ErrInvalidOAuthState  = errors.New("invalid OAuth state")
)

func googleOAuthConfig(redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		redirectURI = defaultOAuthRedirect
	}
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  redirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleAuthorizationURL builds the provider URL the client opens in a
// browser to start the OAuth flow. The state parameter is a signed nonce the
// callback hands back for verification.
func GoogleAuthorizationURL(redirectURI string) (string, error) {
	conf := googleOAuthConfig(redirectURI)
	if conf.ClientID == "" {
		return "", ErrOAuthNotConfigured
	}
	return conf.AuthCodeURL(
		MintOAuthState(),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// MintOAuthState produces a nonce signed with the server secret, so callback
// validation needs no server-side session storage.
func MintOAuthState() string {
	nonce := utils.GenerateRandomToken(24)
	return nonce + "." + signOAuthState(nonce)
}

// ValidOAuthState reports whether a callback state was minted by this server.
func ValidOAuthState(state string) bool {
	nonce, sig, ok := strings.Cut(state, ".")
	if !ok || nonce == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(signOAuthState(nonce)))
}

func signOAuthState(nonce string) string {
	mac := hmac.New(sha256.New, []byte(os.Getenv("JWT_SECRET")))
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ExchangeGoogleCode completes the authorization-code flow: exchange the
// code, fetch the Google identity, upsert the account and issue a session.
// A forwarded state must carry a valid signature; clients that cannot
// forward it rely on the app-private redirect scheme delivering the code
// only to this app.
func ExchangeGoogleCode(ctx context.Context, code, state, redirectURI string) (*models.User, *SessionTokens, error) {
	if state != "" && !ValidOAuthState(state) {
		return nil, nil, ErrInvalidOAuthState
	}

	conf := googleOAuthConfig(redirectURI)
	if conf.ClientID == "" {
		return nil, nil, ErrOAuthNotConfigured
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("OAuth code exchange failed: %w", err)
	}

	resp, err := conf.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, nil, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, nil, fmt.Errorf("failed to decode Google user info: %w", err)
	}
	if info.Email == "" {
		return nil, nil, errors.New("Google account has no email")
	}

	user, err := upsertGoogleUser(&info)
	if err != nil {
		return nil, nil, err
	}

	if err := EnsureUserProfile(user); err != nil {
		return nil, nil, err
	}

	tokens, err := IssueSession(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func upsertGoogleUser(info *googleUserInfo) (*models.User, error) {
	var user models.User
	err := config.DB.Where("email = ?", info.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			UserID:    uuid.NewString(),
			Email:     info.Email,
			FullName:  info.Name,
			AvatarURL: info.Picture,
			Provider:  "google",
		}
		if err := config.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, ErrInvalidCredentials
	}

	// Keep name/avatar fresh on repeat logins.
	updates := map[string]interface{}{}
	if info.Name != "" && info.Name != user.FullName {
		updates["full_name"] = info.Name
	}
	if info.Picture != "" && info.Picture != user.AvatarURL {
		updates["avatar_url"] = info.Picture
	}
	if len(updates) > 0 {
		if err := config.DB.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}
