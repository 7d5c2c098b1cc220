// Package session is the client-side view of a signed-in user's entitlements.
// The snapshot only changes through explicit calls: Refresh, Run, SignOut and
// DeleteAccount.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/sirupsen/logrus"
)

const (
	checkPath  = "/functions/v1/check-subscription"
	deletePath = "/functions/v1/delete-account"

	// DefaultInterval matches the polling period of the web client.
	DefaultInterval = 60 * time.Second
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("session: %d %s", e.StatusCode, e.Message)
}

type Option func(*Session)

func WithHTTPClient(hc *http.Client) Option { return func(s *Session) { s.hc = hc } }

func WithLogger(l logrus.FieldLogger) Option { return func(s *Session) { s.log = l } }

type Session struct {
	base string
	hc   *http.Client
	log  logrus.FieldLogger

	mu     sync.RWMutex
	token  string
	status entitlements.Status
}

// New starts a session for token against the service at baseURL. The status
// is free until the first Refresh.
func New(baseURL, token string, opts ...Option) *Session {
	s := &Session{
		base:   strings.TrimRight(baseURL, "/"),
		hc:     &http.Client{Timeout: 15 * time.Second},
		token:  token,
		status: entitlements.FreeStatus(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		s.log = l
	}
	return s
}

func (s *Session) Status() entitlements.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Meets applies the entitlement resolver to the last known status.
func (s *Session) Meets(required entitlements.Tier) bool {
	return s.Status().Meets(required)
}

func (s *Session) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// SetToken replaces the bearer token, e.g. after the identity provider rotates it.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// SignOut drops the token and resets the status to free.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.token = ""
	s.status = entitlements.FreeStatus()
	s.mu.Unlock()
}

// Refresh asks the service to reconcile and stores the result. On error the
// previous status is kept.
func (s *Session) Refresh(ctx context.Context) (entitlements.Status, error) {
	var st entitlements.Status
	if err := s.post(ctx, checkPath, nil, &st); err != nil {
		s.log.WithError(err).Warn("entitlement refresh failed")
		return s.Status(), err
	}
	st.Tier = entitlements.Normalize(string(st.Tier))
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
	return st, nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Refresh errors are logged and the loop continues.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if s.SignedIn() {
			_, _ = s.Refresh(ctx)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// DeleteAccount asks the service to erase the account and signs out on success.
func (s *Session) DeleteAccount(ctx context.Context, confirmEmail string) error {
	body := map[string]string{"confirmEmail": confirmEmail}
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := s.post(ctx, deletePath, body, &out); err != nil {
		return err
	}
	if !out.Success {
		return &APIError{StatusCode: http.StatusOK, Message: "deletion not confirmed"}
	}
	s.SignOut()
	return nil
}

func (s *Session) post(ctx context.Context, path string, body, out any) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return &APIError{StatusCode: http.StatusUnauthorized, Message: "not signed in"}
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
