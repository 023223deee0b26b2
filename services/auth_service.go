package services

import (
	"errors"
	"time"

	"github.com/royamoon/FoodLens/config"
	"github.com/royamoon/FoodLens/models"
	"github.com/royamoon/FoodLens/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

// SessionTokens is the access/refresh pair handed to the client.
type SessionTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthUser is the identity shape echoed by verify/login responses.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toAuthUser(user *models.User) *AuthUser {
	name := user.FullName
	if name == "" {
		name = user.Email
	}
	return &AuthUser{ID: user.UserID, Email: user.Email, Name: name}
}

func RegisterUser(email, password, fullName string) (*models.User, *SessionTokens, error) {
	var existing models.User
	if err := config.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, nil, ErrEmailTaken
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user := models.User{
		UserID:   uuid.NewString(),
		Email:    email,
		Password: hashedPassword,
		FullName: fullName,
		Provider: "email",
	}
	if err := config.DB.Create(&user).Error; err != nil {
		return nil, nil, err
	}

	if err := EnsureUserProfile(&user); err != nil {
		return nil, nil, err
	}

	tokens, err := IssueSession(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

func AuthenticateUser(email, password string) (*models.User, *SessionTokens, error) {
	var user models.User
	result := config.DB.Where("email = ? AND disabled = ?", email, false).First(&user)
	if result.Error != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if user.Password == "" || !utils.CheckPasswordHash(password, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	if err := EnsureUserProfile(&user); err != nil {
		return nil, nil, err
	}

	tokens, err := IssueSession(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

// IssueSession mints an access/refresh pair and records the refresh token so
// logout can invalidate it.
func IssueSession(user *models.User) (*SessionTokens, error) {
	access, err := utils.GenerateAccessToken(user.UserID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, jti, err := utils.GenerateRefreshToken(user.UserID)
	if err != nil {
		return nil, err
	}

	session := models.Session{
		UserID:         user.UserID,
		RefreshTokenID: jti,
		ExpiresAt:      time.Now().Add(utils.RefreshTokenTTL),
	}
	if err := config.DB.Create(&session).Error; err != nil {
		return nil, err
	}

	return &SessionTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// EnsureUserProfile upserts the secondary profile row. Idempotent by user id.
func EnsureUserProfile(user *models.User) error {
	var profile models.UserProfile
	err := config.DB.Where("user_id = ?", user.UserID).First(&profile).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	profile = models.UserProfile{
		UserID:    user.UserID,
		Email:     user.Email,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		Provider:  user.Provider,
	}
	return config.DB.Create(&profile).Error
}

// VerifyAccessToken checks a bearer token and returns the identity it carries.
// Stateless: refresh tokens are rejected by their typ claim.
func VerifyAccessToken(tokenString string) (*AuthUser, error) {
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != "access" {
		return nil, ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if userID == "" {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := config.DB.Where("user_id = ? AND disabled = ?", userID, false).First(&user).Error; err != nil {
		return nil, ErrInvalidToken
	}
	if email != "" && user.Email != email {
		return nil, ErrInvalidToken
	}
	return toAuthUser(&user), nil
}

// RefreshSession rotates a session: the old refresh token is revoked and a
// fresh pair is issued.
func RefreshSession(refreshToken string) (*models.User, *SessionTokens, error) {
	claims, err := utils.ParseToken(refreshToken)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return nil, nil, ErrInvalidToken
	}
	jti, _ := claims["jti"].(string)
	userID, _ := claims["sub"].(string)
	if jti == "" || userID == "" {
		return nil, nil, ErrInvalidToken
	}

	var session models.Session
	err = config.DB.Where("refresh_token_id = ? AND revoked = ?", jti, false).First(&session).Error
	if err != nil || session.UserID != userID || time.Now().After(session.ExpiresAt) {
		return nil, nil, ErrInvalidToken
	}

	var user models.User
	if err := config.DB.Where("user_id = ? AND disabled = ?", userID, false).First(&user).Error; err != nil {
		return nil, nil, ErrInvalidToken
	}

	if err := config.DB.Model(&session).Update("revoked", true).Error; err != nil {
		return nil, nil, err
	}

	tokens, err := IssueSession(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

// RevokeUserSessions invalidates every refresh token of the user (logout).
func RevokeUserSessions(userID string) error {
	return config.DB.Model(&models.Session{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
