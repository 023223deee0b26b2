package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEntryFromAnalysis(t *testing.T) {
	analysis := &FoodAnalysis{
		IdentifiedFood: "Banana",
		PortionSize:    "120g",
	}

	req, err := EntryFromAnalysis(analysis, "https://cdn.example/banana.jpg", "Snack", "")
	if err != nil {
		t.Fatalf("EntryFromAnalysis failed: %v", err)
	}
	if req.IdentifiedFood != "Banana" || req.MealType != "Snack" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestEntryFromAnalysisRefusesUnknown(t *testing.T) {
	analysis := &FoodAnalysis{IdentifiedFood: "unknown"}

	if _, err := EntryFromAnalysis(analysis, "", "", ""); !errors.Is(err, ErrUnknownFood) {
		t.Errorf("err = %v, want ErrUnknownFood", err)
	}
	if _, err := EntryFromAnalysis(nil, "", "", ""); !errors.Is(err, ErrUnknownFood) {
		t.Errorf("err for nil analysis = %v, want ErrUnknownFood", err)
	}
}

func TestAnalyzeUnwrapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"foodAnalysis": map[string]interface{}{
					"identifiedFood": "Oatmeal",
					"portionSize":    "200g",
				},
			},
		})
	}))
	defer srv.Close()

	analysis, err := New(srv.URL).Analyze(context.Background(), "aW1n", "image/jpeg")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.IdentifiedFood != "Oatmeal" {
		t.Errorf("IdentifiedFood = %q", analysis.IdentifiedFood)
	}
}

func TestAnalyzeSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "AI service quota exceeded. Please try again later."})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Analyze(context.Background(), "aW1n", "image/jpeg")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", apiErr.Status)
	}
}
