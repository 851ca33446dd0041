// Package plex reads a Plex Media Server's TV library: account sign-in,
// section listing, per-show metadata and flattened episode lists.
package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/missingtv/missingtv/internal/config"
	"github.com/missingtv/missingtv/internal/httpclient"
)

const (
	product     = "missingtv"
	maxErrorLen = 512
)

var (
	ErrUnauthorized  = errors.New("plex: unauthorized")
	ErrSignInFailed  = errors.New("plex: sign-in failed")
	ErrRequestFailed = errors.New("plex: request failed")
	ErrNotSignedIn   = errors.New("plex: no auth token, sign in first")
	ErrNotFound      = errors.New("plex: item not found")
)

// Client handles communication with plex.tv and a Plex Media Server.
type Client struct {
	account  *resty.Client
	server   *resty.Client
	config   config.PlexConfig
	logger   zerolog.Logger
	clientID string
	version  string

	mu    sync.RWMutex
	token string
}

// NewClient creates a new Plex API client. A token from the config is used
// as-is and makes SignIn a no-op.
func NewClient(cfg config.PlexConfig, httpCfg config.HTTPConfig, logger zerolog.Logger, version string) *Client {
	logger = logger.With().Str("component", "plex").Logger()

	c := &Client{
		config:   cfg,
		logger:   logger,
		clientID: cfg.ClientID,
		version:  version,
		token:    strings.TrimSpace(cfg.Token),
	}

	headers := c.getHeaders()
	c.account = httpclient.New(httpclient.Options{
		BaseURL: cfg.AccountURL,
		Timeout: httpCfg.Timeout,
		Retries: httpCfg.Retries,
		Headers: headers,
	}, logger)
	c.server = httpclient.New(httpclient.Options{
		BaseURL:            cfg.URL,
		Timeout:            httpCfg.Timeout,
		Retries:            httpCfg.Retries,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Headers:            headers,
	}, logger)

	return c
}

func (c *Client) getHeaders() map[string]string {
	return map[string]string{
		"X-Plex-Client-Identifier": c.clientID,
		"X-Plex-Product":           product,
		"X-Plex-Version":           c.version,
		"X-Plex-Platform":          runtime.GOOS,
		"X-Plex-Device-Name":       product,
	}
}

// Token returns the session token in use, empty before SignIn.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SignIn obtains a session token from plex.tv using basic auth. Every later
// server call sends X-Plex-Token instead of the credentials.
func (c *Client) SignIn(ctx context.Context) error {
	if c.Token() != "" {
		c.logger.Debug().Msg("Using configured Plex token, skipping sign-in")
		return nil
	}

	resp, err := c.account.R().
		SetContext(ctx).
		SetBasicAuth(c.config.Username, c.config.Password).
		Post("/users/sign_in.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignInFailed, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrSignInFailed, ErrUnauthorized)
	case resp.IsError():
		return fmt.Errorf("%w: status %d, body: %s", ErrSignInFailed, resp.StatusCode(), truncate(resp.Body()))
	}

	var body signInResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fmt.Errorf("%w: failed to decode sign-in response: %w", ErrSignInFailed, err)
	}
	if body.User.AuthToken == "" {
		return fmt.Errorf("%w: response carried no auth token", ErrSignInFailed)
	}

	c.mu.Lock()
	c.token = body.User.AuthToken
	c.mu.Unlock()

	c.logger.Debug().Str("user", body.User.Username).Msg("Plex sign-in successful")
	return nil
}

// GetLibrarySections returns the library sections of the server
func (c *Client) GetLibrarySections(ctx context.Context) ([]LibrarySection, error) {
	var container mediaContainer[LibrarySection]
	if err := c.get(ctx, "/library/sections", nil, &container); err != nil {
		return nil, fmt.Errorf("failed to get library sections: %w", err)
	}
	return container.items(), nil
}

// GetSectionItems returns every top-level item of a library section.
func (c *Client) GetSectionItems(ctx context.Context, sectionKey string) ([]SectionItem, error) {
	path := fmt.Sprintf("/library/sections/%s/all/", url.PathEscape(sectionKey))

	var container mediaContainer[SectionItem]
	if err := c.get(ctx, path, nil, &container); err != nil {
		return nil, fmt.Errorf("failed to get items of section %s: %w", sectionKey, err)
	}
	return container.items(), nil
}

// GetShowMetadata returns the metadata of one show, including its external GUIDs.
func (c *Client) GetShowMetadata(ctx context.Context, ratingKey string) (*ShowMetadata, error) {
	path := fmt.Sprintf("/library/metadata/%s/", url.PathEscape(ratingKey))

	var container mediaContainer[ShowMetadata]
	if err := c.get(ctx, path, map[string]string{"includeGuids": "1"}, &container); err != nil {
		return nil, fmt.Errorf("failed to get metadata for %s: %w", ratingKey, err)
	}
	items := container.items()
	if len(items) == 0 {
		return nil, fmt.Errorf("metadata for %s: %w", ratingKey, ErrNotFound)
	}
	return &items[0], nil
}

// GetAllLeaves returns the flattened episode list of a show.
func (c *Client) GetAllLeaves(ctx context.Context, ratingKey string) ([]Leaf, error) {
	path := fmt.Sprintf("/library/metadata/%s/allLeaves", url.PathEscape(ratingKey))

	var container mediaContainer[Leaf]
	if err := c.get(ctx, path, nil, &container); err != nil {
		return nil, fmt.Errorf("failed to get episodes for %s: %w", ratingKey, err)
	}
	return container.items(), nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	token := c.Token()
	if token == "" {
		return ErrNotSignedIn
	}

	resp, err := c.server.R().
		SetContext(ctx).
		SetHeader("X-Plex-Token", token).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode() == http.StatusNotFound:
		return ErrNotFound
	case resp.IsError():
		return fmt.Errorf("%w: status %d, body: %s", ErrRequestFailed, resp.StatusCode(), truncate(resp.Body()))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorLen {
		return s[:maxErrorLen] + "..."
	}
	return s
}
