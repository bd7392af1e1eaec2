package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Evgesha-thunder/user-service/internal/api"
	"github.com/Evgesha-thunder/user-service/pkg/models"
)

// apiError is a non-2xx answer from the user service.
type apiError struct {
	Status int
	Body   api.ErrorResponse
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Body.Title, e.Body.Message)
	if len(e.Body.FieldErrors) == 0 {
		return msg
	}
	fields := make([]string, 0, len(e.Body.FieldErrors))
	for f, reason := range e.Body.FieldErrors {
		fields = append(fields, f+": "+reason)
	}
	sort.Strings(fields)
	return msg + " (" + strings.Join(fields, "; ") + ")"
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *apiClient) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *apiClient) listUsers(ctx context.Context) ([]models.UserDTO, error) {
	var users []models.UserDTO
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *apiClient) getUser(ctx context.Context, id int64) (*models.UserDTO, error) {
	var user models.UserDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *apiClient) createUser(ctx context.Context, in models.UserInput) (*models.UserDTO, error) {
	var user models.UserDTO
	if err := c.do(ctx, http.MethodPost, "/users", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *apiClient) updateUser(ctx context.Context, id int64, in models.UserInput) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), in, nil)
}

func (c *apiClient) deleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.Body); err != nil {
			apiErr.Body.Title = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
