package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
)

const defaultTimeout = 3 * time.Second

// Client talks to a palimpsest server. Published reads are cached
// locally; everything else goes straight to the API.
type Client struct {
	client  *http.Client
	cache   *cache.Cache
	baseURL string
	token   string
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	return &Client{
		client:  &httpClient,
		cache:   cache.New(1*time.Minute, 5*time.Minute),
		baseURL: baseURL,
	}
}

// SetToken attaches an editor token to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, body, response any) error {

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if response == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}

	return nil
}

// GetPublished fetches the published payload of a document from the public
// delivery path.
func (c *Client) GetPublished(ctx context.Context, collection, documentID, locale string) (map[string]any, error) {

	cacheKey := fmt.Sprintf("pub:%s:%s:%s", collection, documentID, locale)
	x, found := c.cache.Get(cacheKey)
	if found {
		return x.(map[string]any), nil
	}

	path := fmt.Sprintf("/published/%s/%s", collection, documentID)
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}

	var payload map[string]any
	err := c.do(ctx, http.MethodGet, path, nil, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to get published content: %v", err)
	}

	c.cache.Set(cacheKey, payload, cache.DefaultExpiration)

	return payload, nil
}

func (c *Client) GetVariant(ctx context.Context, collection, documentID, locale string, status palimpsest.Status) (domain.DocumentVariant, error) {

	query := url.Values{}
	if locale != "" {
		query.Set("locale", locale)
	}
	query.Set("status", string(status))

	var variant domain.DocumentVariant
	path := fmt.Sprintf("/api/v1/content/%s/%s?%s", collection, documentID, query.Encode())
	err := c.do(ctx, http.MethodGet, path, nil, &variant)
	if err != nil {
		return domain.DocumentVariant{}, fmt.Errorf("failed to get variant: %v", err)
	}

	return variant, nil
}

func (c *Client) List(ctx context.Context, collection string, opts domain.ListOptions) (domain.Page, error) {

	query := url.Values{}
	if opts.Locale != "" {
		query.Set("locale", opts.Locale)
	}
	if opts.Status != "" {
		query.Set("status", string(opts.Status))
	}
	if opts.SortBy != "" {
		query.Set("sort", opts.SortBy)
	}
	if opts.Ascending {
		query.Set("order", "asc")
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var page domain.Page
	path := fmt.Sprintf("/api/v1/content/%s?%s", collection, query.Encode())
	err := c.do(ctx, http.MethodGet, path, nil, &page)
	if err != nil {
		return domain.Page{}, fmt.Errorf("failed to list content: %v", err)
	}

	return page, nil
}

func (c *Client) Create(ctx context.Context, collection string, payload map[string]any, locale string) (domain.DocumentVariant, error) {

	path := fmt.Sprintf("/api/v1/content/%s", collection)
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}

	var variant domain.DocumentVariant
	err := c.do(ctx, http.MethodPost, path, payload, &variant)
	if err != nil {
		return domain.DocumentVariant{}, fmt.Errorf("failed to create content: %v", err)
	}

	return variant, nil
}

func (c *Client) Update(ctx context.Context, collection, documentID string, payload map[string]any, locale string) (domain.DocumentVariant, error) {

	path := fmt.Sprintf("/api/v1/content/%s/%s", collection, documentID)
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}

	var variant domain.DocumentVariant
	err := c.do(ctx, http.MethodPut, path, payload, &variant)
	if err != nil {
		return domain.DocumentVariant{}, fmt.Errorf("failed to update content: %v", err)
	}

	return variant, nil
}

func (c *Client) Publish(ctx context.Context, collection, documentID, locale, approvedBy string) (domain.DocumentVariant, error) {

	path := fmt.Sprintf("/api/v1/content/%s/%s/publish", collection, documentID)
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}

	var body map[string]string
	if approvedBy != "" {
		body = map[string]string{"approvedBy": approvedBy}
	}

	var variant domain.DocumentVariant
	err := c.do(ctx, http.MethodPost, path, body, &variant)
	if err != nil {
		return domain.DocumentVariant{}, fmt.Errorf("failed to publish content: %v", err)
	}

	c.cache.Delete(fmt.Sprintf("pub:%s:%s:%s", collection, documentID, locale))

	return variant, nil
}

func (c *Client) Unpublish(ctx context.Context, collection, documentID, locale string) error {

	path := fmt.Sprintf("/api/v1/content/%s/%s/unpublish", collection, documentID)
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}

	err := c.do(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to unpublish content: %v", err)
	}

	c.cache.Delete(fmt.Sprintf("pub:%s:%s:%s", collection, documentID, locale))

	return nil
}

func (c *Client) AddLocale(ctx context.Context, collection, documentID, locale string, payload map[string]any) (domain.DocumentVariant, error) {

	path := fmt.Sprintf("/api/v1/content/%s/%s/locales/%s", collection, documentID, url.PathEscape(locale))

	var variant domain.DocumentVariant
	err := c.do(ctx, http.MethodPost, path, payload, &variant)
	if err != nil {
		return domain.DocumentVariant{}, fmt.Errorf("failed to add locale: %v", err)
	}

	return variant, nil
}

func (c *Client) GetVersions(ctx context.Context, collection, documentID, locale string) ([]domain.HistoryEntry, error) {

	path := fmt.Sprintf("/api/v1/content/%s/%s/versions", collection, documentID)
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}

	var entries []domain.HistoryEntry
	err := c.do(ctx, http.MethodGet, path, nil, &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to get versions: %v", err)
	}

	return entries, nil
}

func (c *Client) RestoreVersion(ctx context.Context, collection, documentID, locale string, versionID int64) (domain.DocumentVariant, error) {

	path := fmt.Sprintf("/api/v1/content/%s/%s/versions/%d/restore", collection, documentID, versionID)
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}

	var variant domain.DocumentVariant
	err := c.do(ctx, http.MethodPost, path, nil, &variant)
	if err != nil {
		return domain.DocumentVariant{}, fmt.Errorf("failed to restore version: %v", err)
	}

	return variant, nil
}
