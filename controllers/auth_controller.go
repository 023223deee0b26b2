package controllers

import (
	"errors"
	"net/http"

	"github.com/royamoon/FoodLens/config"
	"github.com/royamoon/FoodLens/models"
	"github.com/royamoon/FoodLens/services"
	"github.com/royamoon/FoodLens/utils"

	"github.com/gin-gonic/gin"
)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
}

func Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, tokens, err := services.RegisterUser(input.Email, input.Password, input.FullName)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Best effort; registration succeeds regardless.
	utils.SendWelcomeEmail(user.Email, user.FullName)

	c.JSON(http.StatusCreated, gin.H{
		"user":    sessionUser(user),
		"session": tokens,
		"message": "Registration successful. Please check your email to verify your account.",
	})
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, tokens, err := services.AuthenticateUser(input.Email, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         sessionUser(user),
		"session":      tokens,
		"access_token": tokens.AccessToken,
	})
}

type GoogleLoginInput struct {
	RedirectURI string `json:"redirectUri"`
}

// LoginWithGoogle hands the client the provider authorization URL.
func LoginWithGoogle(c *gin.Context) {
	// The body is optional; clients may omit it to get the default redirect.
	var input GoogleLoginInput
	_ = c.ShouldBindJSON(&input)

	url, err := services.GoogleAuthorizationURL(input.RedirectURI)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "provider": "google"})
}

type OAuthCallbackInput struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Code         string `json:"code"`
	State        string `json:"state"`
	RedirectURI  string `json:"redirectUri"`
}

// OAuthCallback finishes either OAuth variant: an authorization code is
// exchanged with the provider, an access token is verified as-is.
func OAuthCallback(c *gin.Context) {
	var input OAuthCallbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Code != "" {
		user, tokens, err := services.ExchangeGoogleCode(c.Request.Context(), input.Code, input.State, input.RedirectURI)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "OAuth callback failed: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": sessionUser(user), "session": tokens})
		return
	}

	if input.AccessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access_token or code is required"})
		return
	}

	user, err := services.VerifyAccessToken(input.AccessToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "OAuth callback failed: invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
		"session": services.SessionTokens{
			AccessToken:  input.AccessToken,
			RefreshToken: input.RefreshToken,
		},
	})
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, tokens, err := services.RefreshSession(input.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": sessionUser(user), "session": tokens})
}

func Logout(c *gin.Context) {
	userID := c.GetString("userID")
	if err := services.RevokeUserSessions(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func Verify(c *gin.Context) {
	user, err := services.VerifyAccessToken(c.GetString("accessToken"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user": user})
}

func GetProfile(c *gin.Context) {
	userID := c.GetString("userID")

	var profile models.UserProfile
	if err := config.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    profile.UserID,
		"email":      profile.Email,
		"full_name":  profile.FullName,
		"avatar_url": profile.AvatarURL,
		"provider":   profile.Provider,
	})
}

func sessionUser(user *models.User) gin.H {
	name := user.FullName
	if name == "" {
		name = user.Email
	}
	return gin.H{"id": user.UserID, "email": user.Email, "name": name}
}
