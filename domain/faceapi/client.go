package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultBaseURL = "http://localhost:8000/api"

// Client talks JSON to the face recognition API.
type Client struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for baseURL. A zero timeout leaves requests
// bounded only by their context.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		token:   token,
	}
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// SetToken replaces the bearer token, e.g. after an admin login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// DetectPublic asks whether the image contains a face. It needs no
// registered embedding and no token.
func (c *Client) DetectPublic(ctx context.Context, image string) (*DetectResponse, error) {
	return doJSON[DetectResponse](ctx, c, http.MethodPost, "/face/detect/public", imageRequest{Image: image})
}

// VerifyPreview compares the image against the caller's stored embedding.
func (c *Client) VerifyPreview(ctx context.Context, image string) (Result, error) {
	resp, err := doJSON[previewResponse](ctx, c, http.MethodPost, "/face/verify-preview", imageRequest{Image: image})
	if err != nil {
		return Result{}, err
	}
	// a missing field counts as detected
	detected := true
	if resp.Detected != nil {
		detected = *resp.Detected
	}
	return Result{Detected: detected, Similarity: resp.Similarity, Verified: resp.Verified}, nil
}

// AdminFacePreview compares the image against the embedding of userID.
func (c *Client) AdminFacePreview(ctx context.Context, userID, image string) (Result, error) {
	resp, err := doJSON[previewResponse](ctx, c, http.MethodPost, "/admin/face-preview", adminPreviewRequest{UserID: userID, Image: image})
	if err != nil {
		return Result{}, err
	}
	return Result{Detected: true, Similarity: resp.Similarity, Verified: resp.Verified}, nil
}

// RegisterFace stores the image as the caller's reference face.
func (c *Client) RegisterFace(ctx context.Context, image string) error {
	_, err := doJSON[messageResponse](ctx, c, http.MethodPost, "/face/register-base64", imageRequest{Image: image})
	return err
}

// CheckIn records an access event for the face in the image.
func (c *Client) CheckIn(ctx context.Context, image string) (*CheckInResponse, error) {
	return doJSON[CheckInResponse](ctx, c, http.MethodPost, "/access/check-in", imageRequest{Image: image})
}

// AdminLogin authenticates an administrator. image may be empty when the
// server does not require a face factor.
func (c *Client) AdminLogin(ctx context.Context, userID, password, image string) (*LoginResponse, error) {
	return doJSON[LoginResponse](ctx, c, http.MethodPost, "/admin/login", adminLoginRequest{UserID: userID, Password: password, Image: image})
}

// FaceEmbeddings lists the caller's stored embeddings.
func (c *Client) FaceEmbeddings(ctx context.Context) ([]Embedding, error) {
	resp, err := doJSON[[]Embedding](ctx, c, http.MethodGet, "/face/embeddings", nil)
	if err != nil {
		return nil, err
	}
	return *resp, nil
}

// HasFaceData reports whether the caller has at least one stored embedding.
func (c *Client) HasFaceData(ctx context.Context) (bool, error) {
	list, err := c.FaceEmbeddings(ctx)
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

// doJSON performs a request with an optional JSON body and decodes the JSON
// answer into T. Any non-2xx status is returned as *APIError.
func doJSON[T any](ctx context.Context, c *Client, method, endpoint string, requestBody any) (*T, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var result T
	if len(bytes.TrimSpace(body)) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}
