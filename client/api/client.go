// Package api is the typed HTTP client the mobile shell uses against the
// FoodLens backend. Calls are sequential and never retried; a failure is
// surfaced once to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/royamoon/FoodLens/models"
)

// ErrUnknownFood marks an analysis the model could not classify; the caller
// should prompt for a new photo instead of saving an entry.
var ErrUnknownFood = errors.New("could not identify food in the image")

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	Message string   `json:"message"`
}

func (c *Client) Register(ctx context.Context, email, password, fullName string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GoogleLoginURL asks the backend for the provider authorization URL.
func (c *Client) GoogleLoginURL(ctx context.Context, redirectURI string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/auth/login/google", "", map[string]string{
		"redirectUri": redirectURI,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

// ExchangeCallback trades an authorization code for a session.
func (c *Client) ExchangeCallback(ctx context.Context, code, state, redirectURI string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/auth/callback", "", map[string]string{
		"code":        code,
		"state":       state,
		"redirectUri": redirectURI,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SessionFromTokens submits implicit-flow tokens for verification and
// profile provisioning.
func (c *Client) SessionFromTokens(ctx context.Context, accessToken, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/auth/callback", "", map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, accessToken string) (*User, error) {
	var out struct {
		Valid bool  `json:"valid"`
		User  *User `json:"user"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/auth/verify", accessToken, nil, &out)
	if err != nil {
		return nil, err
	}
	if !out.Valid || out.User == nil {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "invalid session"}
	}
	return out.User, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": refreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", accessToken, struct{}{}, nil)
}

// FoodAnalysis mirrors the analysis gateway's foodAnalysis payload.
type FoodAnalysis struct {
	IdentifiedFood           string                `json:"identifiedFood"`
	PortionSize              string                `json:"portionSize"`
	RecognizedServingSize    string                `json:"recognizedServingSize"`
	NutritionFactsPerPortion models.NutritionFacts `json:"nutritionFactsPerPortion"`
	AdditionalNotes          []string              `json:"additionalNotes"`
}

// Unknown reports whether the model answered the unidentifiable-food
// sentinel.
func (a *FoodAnalysis) Unknown() bool {
	return a.IdentifiedFood == "unknown"
}

func (c *Client) Analyze(ctx context.Context, base64Data, mimeType string) (*FoodAnalysis, error) {
	body := map[string]interface{}{
		"image": map[string]interface{}{
			"inlineData": map[string]string{
				"data":     base64Data,
				"mimeType": mimeType,
			},
		},
	}
	var out struct {
		Success bool `json:"success"`
		Data    struct {
			FoodAnalysis *FoodAnalysis `json:"foodAnalysis"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/analyze", "", body, &out); err != nil {
		return nil, err
	}
	if out.Data.FoodAnalysis == nil {
		return nil, &APIError{Status: http.StatusInternalServerError, Message: "empty analysis response"}
	}
	return out.Data.FoodAnalysis, nil
}

// CreateFoodRequest is the create payload, camelCase like the backend DTO.
type CreateFoodRequest struct {
	IdentifiedFood           string                `json:"identifiedFood"`
	Image                    string                `json:"image"`
	MealType                 string                `json:"mealType,omitempty"`
	Notes                    string                `json:"notes,omitempty"`
	PortionSize              string                `json:"portionSize"`
	RecognizedServingSize    string                `json:"recognizedServingSize"`
	NutritionFactsPerPortion models.NutritionFacts `json:"nutritionFactsPerPortion"`
	AdditionalNotes          []string              `json:"additionalNotes"`
	Timestamp                *time.Time            `json:"timestamp,omitempty"`
}

// EntryFromAnalysis builds the create payload for a confirmed analysis.
// Refuses the unknown-food sentinel: those results are never saved.
func EntryFromAnalysis(a *FoodAnalysis, image, mealType, notes string) (*CreateFoodRequest, error) {
	if a == nil || a.Unknown() {
		return nil, ErrUnknownFood
	}
	return &CreateFoodRequest{
		IdentifiedFood:           a.IdentifiedFood,
		Image:                    image,
		MealType:                 mealType,
		Notes:                    notes,
		PortionSize:              a.PortionSize,
		RecognizedServingSize:    a.RecognizedServingSize,
		NutritionFactsPerPortion: a.NutritionFactsPerPortion,
		AdditionalNotes:          a.AdditionalNotes,
	}, nil
}

func (c *Client) CreateFood(ctx context.Context, accessToken string, req *CreateFoodRequest) (*models.FoodEntry, error) {
	var out models.FoodEntry
	if err := c.doJSON(ctx, http.MethodPost, "/food", accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListFood(ctx context.Context, accessToken string) ([]models.FoodEntry, error) {
	entries := []models.FoodEntry{}
	if err := c.doJSON(ctx, http.MethodGet, "/food", accessToken, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) GetFood(ctx context.Context, accessToken, id string) (*models.FoodEntry, error) {
	var out models.FoodEntry
	if err := c.doJSON(ctx, http.MethodGet, "/food/"+id, accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFood sends a partial camelCase payload; only the provided keys are
// touched.
func (c *Client) UpdateFood(ctx context.Context, accessToken, id string, updates map[string]interface{}) (*models.FoodEntry, error) {
	var out models.FoodEntry
	if err := c.doJSON(ctx, http.MethodPatch, "/food/"+id, accessToken, updates, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFood(ctx context.Context, accessToken, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/food/"+id, accessToken, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
