package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// OpenAIChecker implements health checking for the chatbot's LLM upstream.
type OpenAIChecker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAIChecker creates a checker against the OpenAI API. An empty baseURL
// defaults to the public endpoint.
func NewOpenAIChecker(baseURL, apiKey string) *OpenAIChecker {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIChecker{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck verifies the LLM upstream is reachable and the API key is
// accepted by listing models.
func (o *OpenAIChecker) HealthCheck(ctx context.Context) error {
	if o.apiKey == "" {
		return fmt.Errorf("openai api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("openai unhealthy: unexpected status code %d", resp.StatusCode)
	}

	return nil
}
