// Package sentinel implements imagery.Provider on top of the Sentinel Hub
// Catalog and Process APIs of the Copernicus Data Space Ecosystem.
package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/cache"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/properties"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	catalogPath = "/api/v1/catalog/1.0.0/search"
	processPath = "/api/v1/process"
)

type Config struct {
	BaseURL string
	// ClientIDs and ClientSecrets are comma separated and paired by position.
	// A credential rejected with 401 or 403 hands the request to the next one.
	ClientIDs         string
	ClientSecrets     string
	TokenURL          string
	RequestsPerMinute int
	// ReflectanceCollection is exported band by band; other collections are
	// categorical labels.
	ReflectanceCollection string
}

func ConfigFromProperties(cfg properties.Config) Config {
	return Config{
		BaseURL:           cfg.SentinelBaseURL,
		ClientIDs:         cfg.ClientID,
		ClientSecrets:     cfg.ClientSecret,
		TokenURL:          cfg.TokenURL,
		RequestsPerMinute: cfg.RequestsPerMinute,

		ReflectanceCollection: cfg.ImageryCollection,
	}
}

type Client struct {
	baseURL               string
	reflectanceCollection string
	clients               []*http.Client
	limiter               *rate.Limiter
	cache                 cache.CacheService[[]imagery.Image]
	log                   logrus.FieldLogger
}

type Option func(*Client)

// WithSearchCache serves repeated catalog searches from c.
func WithSearchCache(c cache.CacheService[[]imagery.Image]) Option {
	return func(cl *Client) { cl.cache = c }
}

// New builds a client per credential pair. Token requests use the HTTP
// client stored in ctx under oauth2.HTTPClient, if any.
func New(ctx context.Context, cfg Config, log logrus.FieldLogger, opts ...Option) (*Client, error) {
	if cfg.ClientIDs == "" || cfg.ClientSecrets == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("missing required environment variables: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET, or COPERNICUS_TOKEN_URL")
	}
	clientIDList := strings.Split(cfg.ClientIDs, ",")
	clientSecretList := strings.Split(cfg.ClientSecrets, ",")
	if len(clientIDList) != len(clientSecretList) {
		return nil, fmt.Errorf("mismatched number of client IDs and secrets")
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}
	c := &Client{
		baseURL:               strings.TrimRight(cfg.BaseURL, "/"),
		reflectanceCollection: cfg.ReflectanceCollection,
		limiter:               rate.NewLimiter(limit, 1),
		log:                   log,
	}
	for i, clientID := range clientIDList {
		credentials := &clientcredentials.Config{
			ClientID:     strings.TrimSpace(clientID),
			ClientSecret: strings.TrimSpace(clientSecretList[i]),
			TokenURL:     cfg.TokenURL,
		}
		c.clients = append(c.clients, credentials.Client(ctx))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ imagery.Provider = (*Client)(nil)

// post sends payload to the API path and returns the successful response.
// The caller closes the body.
func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var lastErr error
	for i, httpClient := range c.clients {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(requestBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		response, err := httpClient.Do(req)
		var tokenErr *oauth2.RetrieveError
		if errors.As(err, &tokenErr) {
			lastErr = fmt.Errorf("failed to obtain token: %w", err)
			c.log.WithField("credential", i).WithError(err).Warn("Token request rejected, trying next credential")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("request to %s failed: %w", path, err)
		}
		if response.StatusCode == http.StatusOK {
			return response, nil
		}

		body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		response.Body.Close()
		lastErr = fmt.Errorf("request to %s failed with status %d: %s", path, response.StatusCode, strings.TrimSpace(string(body)))
		if response.StatusCode != http.StatusUnauthorized && response.StatusCode != http.StatusForbidden {
			return nil, lastErr
		}
		c.log.WithField("credential", i).Warn("Unauthorized access, check your client ID and secret")
	}
	return nil, lastErr
}
