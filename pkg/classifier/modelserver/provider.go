package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-diagnosis-be/pkg/classifier"
)

// Provider calls an external model-serving endpoint that hosts the trained
// NLP pipeline. The model itself (training, vectorizer, label encoder) lives
// behind that service; this client only speaks its predict contract.
type Provider struct {
	BaseURL string
	Client  *http.Client
}

// Ensure Provider implements classifier.Provider
var _ classifier.Provider = &Provider{}

func NewProvider(baseURL string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Request/Response structs (internal to this package) ---

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

// Predict posts the normalized text to the model server and returns its
// per-label probabilities with lowercased label keys.
func (p *Provider) Predict(ctx context.Context, normalizedText string) (map[string]float64, error) {
	if p.BaseURL == "" {
		return nil, fmt.Errorf("model server is not configured")
	}

	payload, err := json.Marshal(predictRequest{Text: normalizedText})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/predict", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode predict response: %w", err)
	}

	probs := make(map[string]float64, len(decoded.Probabilities))
	for label, prob := range decoded.Probabilities {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			continue
		}
		probs[key] = prob
	}
	return probs, nil
}
