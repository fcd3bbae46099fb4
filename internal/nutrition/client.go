// Package nutrition calls the external meal-analysis service: an image goes
// in, a structured nutritional breakdown comes out. The analysis itself
// (vision model, prompt, response extraction) is the service's problem.
package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"mealcraft/internal/models"
)

// Analysis is the service's breakdown of one meal photo.
type Analysis struct {
	Description   string        `json:"description"`
	TotalCalories int           `json:"totalCalories"`
	Dishes        []models.Dish `json:"dishes"`
}

// Client talks to the analysis service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a client for the analysis service at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Analyze uploads a meal photo and returns its nutritional breakdown.
func (c *Client) Analyze(ctx context.Context, fileName string, image io.Reader) (*Analysis, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("photo", fileName)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := writer.Close(); err != nil {
		return nil, models.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &body)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("analysis request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return nil, models.NewInternalError(fmt.Errorf("analysis service: %s", apiErr.Error))
	}

	var analysis Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("analysis response malformed: %w", err))
	}
	if analysis.Dishes == nil {
		analysis.Dishes = []models.Dish{}
	}
	return &analysis, nil
}
