package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSender posts a signed JSON payload to the delivery service.
type HTTPSender struct {
	url        string
	secret     string
	httpClient *http.Client
}

func NewHTTPSender(url, secret string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSender) SendInvitation(ctx context.Context, inv Invitation) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invitation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event", EventInvitationCreated)
	req.Header.Set("X-Signature", Sign(payload, s.secret))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver invitation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("delivery service rejected invitation (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload in the "sha256=<hex>" form.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}
