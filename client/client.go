// Package client is a Go client of sharehub api.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrUnauthorized is returned on 401 responses, the session is cleared before it is returned.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response of api.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client ...
type Client struct {
	base    string
	http    *http.Client
	session *Session
}

// New returns client of api served under base, e.g. http://localhost:3001/api.
// Nil httpClient means http.DefaultClient.
func New(base string, httpClient *http.Client, session *Session) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if session == nil {
		session = NewSession()
	}

	return &Client{
		base:    strings.TrimSuffix(base, "/"),
		http:    httpClient,
		session: session,
	}
}

// Session ...
func (c *Client) Session() *Session {
	return c.session
}

// Register creates user and signs in.
func (c *Client) Register(ctx context.Context, username, password string) (*User, error) {
	return c.authenticate(ctx, "/users/register", map[string]string{
		"username": username,
		"password": password,
	})
}

// Login ...
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
}

// SuiLogin signs in by wallet personal message signature.
func (c *Client) SuiLogin(ctx context.Context, address, message, signature string) (*User, error) {
	return c.authenticate(ctx, "/auth/sui-login", map[string]string{
		"address":   address,
		"message":   message,
		"signature": signature,
	})
}

// Logout clears the session.
func (c *Client) Logout() {
	c.session.Clear()
}

// Profile ...
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile ...
func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/users/profile", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListShares ...
func (c *Client) ListShares(ctx context.Context, p ListSharesParams) (*SharesPage, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.UserID > 0 {
		q.Set("userId", strconv.FormatUint(p.UserID, 10))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}

	path := "/shares"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page SharesPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetShare ...
func (c *Client) GetShare(ctx context.Context, id uint64) (*ShareDetails, error) {
	var d ShareDetails
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/shares/%d", id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateShare ...
func (c *Client) CreateShare(ctx context.Context, title, content string, image *string) (*Share, error) {
	var s Share
	if err := c.do(ctx, http.MethodPost, "/shares", ShareInput{Title: &title, Content: &content, Image: image}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateShare ...
func (c *Client) UpdateShare(ctx context.Context, id uint64, in ShareInput) (*Share, error) {
	var s Share
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/shares/%d", id), in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteShare ...
func (c *Client) DeleteShare(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/shares/%d", id), nil, nil)
}

// Like ...
func (c *Client) Like(ctx context.Context, shareID uint64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/shares/%d/like", shareID), nil, nil)
}

// Unlike ...
func (c *Client) Unlike(ctx context.Context, shareID uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/shares/%d/like", shareID), nil, nil)
}

// IsLiked ...
func (c *Client) IsLiked(ctx context.Context, shareID uint64) (bool, error) {
	var resp likedResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/likes/share/%d/check", shareID), nil, &resp); err != nil {
		return false, err
	}
	return resp.Liked, nil
}

// Comments ...
func (c *Client) Comments(ctx context.Context, shareID uint64) ([]Comment, error) {
	var list []Comment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/comments/share/%d", shareID), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateComment ...
func (c *Client) CreateComment(ctx context.Context, shareID uint64, content string) (*Comment, error) {
	var cm Comment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/comments/share/%d", shareID), map[string]string{"content": content}, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// DeleteComment ...
func (c *Client) DeleteComment(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d", id), nil, nil)
}

// Notifications ...
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var list []Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkNotificationRead ...
func (c *Client) MarkNotificationRead(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/notifications/%d/read", id), nil, nil)
}

// MarkAllNotificationsRead returns count of updated notifications.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var resp markAllResponse
	if err := c.do(ctx, http.MethodPost, "/notifications/read-all", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*User, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	c.session.Set(resp.Token, &resp.User)

	return &resp.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Clear()
		return fmt.Errorf("%w: %s", ErrUnauthorized, message(data))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Status: resp.StatusCode, Message: message(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func message(data []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(data))
}
