// Package gateway holds the HMAC and HTTP plumbing shared by provider adapters.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/picklepickle/picklepay/internal/payment/domain"
)

const maxResponseBytes = 1 << 20

// DefaultTimeout bounds a single status query round trip.
const DefaultTimeout = 10 * time.Second

func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

func SignSHA256(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func SignSHA512(key, message string) string {
	mac := hmac.New(sha512.New, []byte(key))
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares hex signatures in constant time, ignoring case.
func Equal(expected, actual string) bool {
	return hmac.Equal([]byte(strings.ToLower(expected)), []byte(strings.ToLower(strings.TrimSpace(actual))))
}

// PostJSON sends body as JSON and decodes a JSON response into out.
// It returns the raw response alongside so callers can store it.
func PostJSON(ctx context.Context, client *http.Client, endpoint string, body any, out any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, req, out)
}

// PostForm sends form values and decodes a JSON response into out.
func PostForm(ctx context.Context, client *http.Client, endpoint string, form url.Values, out any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, req, out)
}

func do(client *http.Client, req *http.Request, out any) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderQuery, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrProviderQuery, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, fmt.Errorf("%w: status %d", domain.ErrProviderQuery, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("%w: decode: %v", domain.ErrProviderQuery, err)
	}
	return raw, nil
}

// Endpoint joins a configured base URL and a path.
func Endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
