package capture

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// URLDevice polls the JPEG snapshot endpoint exposed by most IP cameras.
type URLDevice struct {
	url    string
	client *http.Client
	open   atomic.Bool
}

// NewURLDevice returns a device reading stills from rawURL.
func NewURLDevice(rawURL string, timeout time.Duration) *URLDevice {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &URLDevice{url: rawURL, client: &http.Client{Timeout: timeout}}
}

// IsURLDeviceID reports whether id names a snapshot URL.
func IsURLDeviceID(id string) bool {
	return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
}

func (d *URLDevice) Info() DeviceInfo {
	label := d.url
	if u, err := url.Parse(d.url); err == nil {
		label = "IP camera " + u.Host
	}
	return DeviceInfo{ID: d.url, Label: label}
}

func (d *URLDevice) Open(ctx context.Context) error {
	if _, err := d.fetch(ctx); err != nil {
		return err
	}
	d.open.Store(true)
	return nil
}

func (d *URLDevice) Grab(ctx context.Context) (image.Image, error) {
	if !d.open.Load() {
		return nil, nil
	}
	return d.fetch(ctx)
}

func (d *URLDevice) Close() error {
	d.open.Store(false)
	return nil
}

func (d *URLDevice) fetch(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("snapshot status %d: %w", resp.StatusCode, os.ErrPermission)
	case http.StatusNotFound:
		return nil, fmt.Errorf("snapshot status %d: %w", resp.StatusCode, os.ErrNotExist)
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return nil, fmt.Errorf("snapshot status %d: %w", resp.StatusCode, ErrDeviceBusy)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("snapshot status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return img, nil
}
