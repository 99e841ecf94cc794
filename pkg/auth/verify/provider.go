package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/lumen-labs/lumen/pkg/auth"
)

// HTTPProvider talks to the external verification service over its REST
// surface. Timeouts are the service client's concern; this provider sets
// none of its own.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider against baseURL. client may be nil,
// in which case http.DefaultClient is used.
func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{baseURL: baseURL, client: client}
}

func (p *HTTPProvider) SendCode(ctx context.Context, phone, widgetToken string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"phoneNumber": phone,
		"widgetToken": widgetToken,
	})
	if err != nil {
		return "", fmt.Errorf("encoding challenge request: %w", err)
	}

	var out struct {
		ChallengeID string `json:"challengeId"`
	}
	if err := p.post(ctx, "/v1/challenges", body, &out); err != nil {
		return "", err
	}
	if out.ChallengeID == "" {
		return "", fmt.Errorf("verification service returned no challenge id")
	}
	return out.ChallengeID, nil
}

func (p *HTTPProvider) Confirm(ctx context.Context, challengeID, code string) (auth.Credential, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return auth.Credential{}, fmt.Errorf("encoding confirm request: %w", err)
	}

	var out struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	path := "/v1/challenges/" + url.PathEscape(challengeID) + "/confirm"
	if err := p.post(ctx, path, body, &out); err != nil {
		return auth.Credential{}, err
	}
	return auth.Credential{ChallengeID: challengeID, PhoneNumber: out.PhoneNumber}, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling verification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Message != "" {
			return fmt.Errorf("verification service: %s", payload.Message)
		}
		return fmt.Errorf("verification service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// tokenWidget is a single-use widget minting one opaque token.
type tokenWidget struct {
	mu       sync.Mutex
	consumed bool
	token    string
}

func (w *tokenWidget) Token() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.consumed {
		return "", ErrWidgetConsumed
	}
	w.consumed = true
	return w.token, nil
}

// TokenWidgetFactory mints single-use widgets with random opaque tokens.
// Each widget's token may be obtained exactly once.
func TokenWidgetFactory() (Widget, error) {
	return &tokenWidget{token: uuid.NewString()}, nil
}
