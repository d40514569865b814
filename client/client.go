// Package client is a small Go SDK that keeps a local snapshot of the enabled
// features of one namespace/environment pair.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	v1 "github.com/gdrocha-io/togglr-backend/pkg/api/v1"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
	requestTimeout      = 10 * time.Second
)

var errUnauthorized = errors.New("unauthorized")

type Config struct {
	Addr         string
	Namespace    string
	Environment  string
	ClientID     string
	ClientSecret string
	PollInterval time.Duration
}

// TogglrClient polls the enabled features and answers lookups from memory.
// A failed poll keeps the last snapshot.
type TogglrClient struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.RWMutex
	features map[string]v1.Feature
	token    string
	synced   time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewTogglrClient(cfg Config) *TogglrClient {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TogglrClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		features:   make(map[string]v1.Feature),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start loads the first snapshot and keeps it fresh in the background.
func (c *TogglrClient) Start() error {
	if err := c.refresh(c.ctx); err != nil {
		return err
	}
	go c.runPollLoop()
	return nil
}

func (c *TogglrClient) Close() {
	c.cancel()
}

func (c *TogglrClient) runPollLoop() {
	wait := c.cfg.PollInterval
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := c.refresh(c.ctx); err != nil {
			if c.ctx.Err() != nil {
				return
			}
			wait = nextBackoff(wait, c.cfg.PollInterval)
			logger.Warn("feature poll failed, keeping last snapshot",
				zap.Error(err), zap.Duration("retry_in", wait))
			continue
		}
		wait = c.cfg.PollInterval
	}
}

// nextBackoff doubles the wait up to maxBackoff and adds up to 50% jitter.
func nextBackoff(current, base time.Duration) time.Duration {
	if current < base {
		current = base
	}
	next := current * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	return next + time.Duration(rand.Int63n(int64(next/2)+1))
}

func (c *TogglrClient) refresh(ctx context.Context) error {
	features, err := c.fetchEnabled(ctx)
	if errors.Is(err, errUnauthorized) {
		c.setToken("")
		features, err = c.fetchEnabled(ctx)
	}
	if err != nil {
		return err
	}

	snapshot := make(map[string]v1.Feature, len(features))
	for _, f := range features {
		snapshot[f.Name] = f
	}

	c.mu.Lock()
	c.features = snapshot
	c.synced = time.Now()
	c.mu.Unlock()
	logger.Debug("feature snapshot refreshed", zap.Int("enabled", len(snapshot)))
	return nil
}

func (c *TogglrClient) fetchEnabled(ctx context.Context) ([]v1.Feature, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("namespace", c.cfg.Namespace)
	q.Set("environment", c.cfg.Environment)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Addr+"/api/v1/features/enabled?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var features []v1.Feature
	if err := json.NewDecoder(resp.Body).Decode(&features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return features, nil
}

// accessToken logs in with the client credentials when none is cached.
// Without credentials requests go out anonymously.
func (c *TogglrClient) accessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" || c.cfg.ClientID == "" {
		return token, nil
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Addr+"/api/v1/auth/client-login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("client login: %w", decodeError(resp))
	}

	var tok v1.Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	c.setToken(tok.AccessToken)
	return tok.AccessToken, nil
}

func (c *TogglrClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func decodeError(resp *http.Response) error {
	var body v1.Error
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Message == "" {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, body.Message)
}

// IsEnabled reports whether name was enabled in the last snapshot. Unknown
// features are disabled.
func (c *TogglrClient) IsEnabled(name string) bool {
	c.mu.RLock()
	_, ok := c.features[name]
	c.mu.RUnlock()
	return ok
}

// Metadata decodes the metadata of an enabled feature into dst. It returns
// false when the feature is unknown or carries no metadata.
func (c *TogglrClient) Metadata(name string, dst any) bool {
	c.mu.RLock()
	f, ok := c.features[name]
	c.mu.RUnlock()
	if !ok || len(f.Metadata) == 0 {
		return false
	}
	if err := json.Unmarshal(f.Metadata, dst); err != nil {
		logger.Warn("feature metadata undecodable", zap.String("name", name), zap.Error(err))
		return false
	}
	return true
}

// LastSync is the time of the last successful poll.
func (c *TogglrClient) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}
