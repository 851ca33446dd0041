package tvdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/missingtv/missingtv/internal/config"
	"github.com/missingtv/missingtv/internal/httpclient"
)

var (
	ErrAPIKeyMissing  = errors.New("TVDB API key is not configured")
	ErrSeriesNotFound = errors.New("series not found")
	ErrAPIError       = errors.New("TVDB API error")
	ErrAuthFailed     = errors.New("TVDB authentication failed")
	ErrRateLimited    = errors.New("TVDB API rate limited")
)

// Client is a TVDB API client.
type Client struct {
	http   *resty.Client
	config config.TVDBConfig
	logger zerolog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a new TVDB client.
func NewClient(cfg config.TVDBConfig, httpCfg config.HTTPConfig, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "tvdb").Logger()
	return &Client{
		http: httpclient.New(httpclient.Options{
			BaseURL: cfg.BaseURL,
			Timeout: httpCfg.Timeout,
			Retries: httpCfg.Retries,
		}, logger),
		config: cfg,
		logger: logger,
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Login exchanges the configured credentials for a bearer token. There is no
// retry beyond the transport's handling of connection faults.
func (c *Client) Login(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(LoginRequest{
			APIKey:   c.config.APIKey,
			UserKey:  c.config.UserKey,
			Username: c.config.Username,
		}).
		Post("/login")
	if err != nil {
		return fmt.Errorf("%w: login request failed: %w", ErrAuthFailed, err)
	}

	if resp.StatusCode() != http.StatusOK {
		reason := apiErrorMessage(resp.Body())
		c.logger.Error().Int("status", resp.StatusCode()).Str("reason", reason).Msg("TVDB authentication failed")
		if reason != "" {
			return fmt.Errorf("%w: status %d: %s", ErrAuthFailed, resp.StatusCode(), reason)
		}
		return fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode())
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(resp.Body(), &loginResp); err != nil {
		return fmt.Errorf("%w: failed to decode login response: %w", ErrAuthFailed, err)
	}
	if loginResp.Token == "" {
		return fmt.Errorf("%w: response carried no token", ErrAuthFailed)
	}

	c.mu.Lock()
	c.token = loginResp.Token
	c.mu.Unlock()

	c.logger.Debug().Msg("TVDB authentication successful")
	return nil
}

// ensureToken logs in when no token is held, e.g. after a 401 cleared it.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		return nil
	}
	return c.Login(ctx)
}

// GetEpisodes returns every episode of a series, walking pages until the
// page number reaches links.last. A failure on any page discards everything
// gathered so far.
func (c *Client) GetEpisodes(ctx context.Context, seriesID int) ([]Episode, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/series/%d/episodes", seriesID)

	var episodes []Episode
	page := 1
	for {
		var response EpisodesResponse
		if err := c.doRequest(ctx, path, map[string]string{"page": strconv.Itoa(page)}, &response); err != nil {
			return nil, fmt.Errorf("series %d page %d: %w", seriesID, page, err)
		}
		episodes = append(episodes, response.Data...)

		if page >= response.Links.Last {
			break
		}
		page++
	}

	c.logger.Debug().
		Int("seriesId", seriesID).
		Int("pages", page).
		Int("episodes", len(episodes)).
		Msg("Got series episodes")

	return episodes, nil
}

// doRequest performs an HTTP GET request with authentication.
func (c *Client) doRequest(ctx context.Context, path string, params map[string]string, result interface{}) error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		switch resp.StatusCode() {
		case http.StatusNotFound:
			return ErrSeriesNotFound
		case http.StatusUnauthorized:
			// Token might be expired, clear it
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			return fmt.Errorf("%w: unauthorized", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode())
		}
	}

	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// apiErrorMessage extracts the Error field TVDB puts in failure bodies.
func apiErrorMessage(body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	return errResp.Error
}
