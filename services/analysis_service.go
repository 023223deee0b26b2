package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/royamoon/FoodLens/models"

	"github.com/tidwall/gjson"
)

var (
	ErrMissingAPIKey = errors.New("API key not configured. Please add GEMINI_API_KEY to your environment variables.")
	ErrModelResponse = errors.New("Invalid response format from AI service. Please try again.")
	ErrQuota         = errors.New("AI service quota exceeded. Please try again later.")
)

// UnknownFood is the sentinel the model answers when it cannot identify
// food in the image.
const UnknownFood = "unknown"

const defaultGeminiModel = "gemini-2.0-flash-exp"
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const analysisPrompt = `Analyze this food image and provide detailed nutritional information in the following JSON format:
    {
      "foodAnalysis": {
        "identifiedFood": "Name of what you see in the image",
        "portionSize": "Estimated portion size in grams",
        "recognizedServingSize": "Estimated serving size in grams",
        "nutritionFactsPerPortion": {
          "calories": "Estimated calories",
          "protein": "Estimated protein in grams",
          "carbs": "Estimated carbs in grams",
          "fat": "Estimated fat in grams",
          "fiber": "Estimated fiber in grams",
          "sugar": "Estimated sugar in grams",
          "sodium": "Estimated sodium in mg",
          "cholesterol": "Estimated cholesterol in mg"
        },
        "additionalNotes": [
          "Any notable nutritional characteristics",
          "Presence of allergens",
          "Whether it's vegetarian/vegan/gluten-free if applicable"
        ]
      }
    }

    Ensure the response is in valid JSON format exactly as specified above, without any markdown formatting.
    If you cannot identify any food in the image, set "identifiedFood" to "unknown".
    Provide realistic estimates based on typical portion sizes and nutritional databases.
    Be as specific and accurate as possible in identifying the food and its components.`

// FoodAnalysis is the structured estimate returned by the model.
type FoodAnalysis struct {
	IdentifiedFood           string                `json:"identifiedFood"`
	PortionSize              string                `json:"portionSize"`
	RecognizedServingSize    string                `json:"recognizedServingSize"`
	NutritionFactsPerPortion models.NutritionFacts `json:"nutritionFactsPerPortion"`
	AdditionalNotes          []string              `json:"additionalNotes"`
}

type AnalysisService struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewAnalysisService() *AnalysisService {
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultGeminiModel
	}
	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &AnalysisService{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Analyze submits one inline image to the model and parses its estimate.
// Nutrition strings are passed through untouched.
func (s *AnalysisService) Analyze(ctx context.Context, data, mimeType string) (*FoodAnalysis, error) {
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: analysisPrompt},
				{InlineData: &geminiInlineData{MimeType: mimeType, Data: data}},
			},
		}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach AI service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrQuota
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("AI service error: %s", msg)
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text").String()
	if text == "" {
		return nil, ErrModelResponse
	}

	return parseAnalysisText(text)
}

// parseAnalysisText turns raw model output into a FoodAnalysis. Markdown
// fences are stripped first; when direct parsing fails the first JSON object
// embedded in the text is extracted as a fallback.
func parseAnalysisText(text string) (*FoodAnalysis, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	analysis, ok := decodeAnalysis(cleaned)
	if !ok {
		extracted := extractJSONObject(cleaned)
		if extracted == "" {
			return nil, ErrModelResponse
		}
		analysis, ok = decodeAnalysis(extracted)
		if !ok {
			return nil, ErrModelResponse
		}
	}

	if analysis.IdentifiedFood == "" {
		return nil, ErrModelResponse
	}
	if analysis.AdditionalNotes == nil {
		analysis.AdditionalNotes = []string{}
	}
	return analysis, nil
}

func decodeAnalysis(text string) (*FoodAnalysis, bool) {
	if !gjson.Valid(text) {
		return nil, false
	}

	// The model usually wraps the payload in "foodAnalysis"; accept a bare
	// object too.
	candidate := text
	if wrapped := gjson.Get(text, "foodAnalysis"); wrapped.Exists() {
		candidate = wrapped.Raw
	}

	var analysis FoodAnalysis
	if err := json.Unmarshal([]byte(candidate), &analysis); err != nil {
		return nil, false
	}
	return &analysis, true
}

// extractJSONObject returns the outermost {...} span of the text, or "".
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}
