package config

import (
	"encoding/json"
	"image"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvAPIURL   = "FACEGATE_API_URL"
	EnvAPIToken = "FACEGATE_API_TOKEN"
	EnvDevice   = "FACEGATE_DEVICE"
	EnvTimeout  = "FACEGATE_API_TIMEOUT_SECONDS"
)

// Config holds runtime configuration for the kiosk and the capture coordinator.
// Fields may be loaded from a JSON file and overridden by environment and flags.
type Config struct {
	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`

	// Remote face API
	APIBaseURL        string `json:"api_base_url"`
	APIToken          string `json:"api_token"`
	APITimeoutSeconds int    `json:"api_timeout_seconds"`

	// Camera
	DeviceID      string   `json:"device_id"`
	Devices       []string `json:"devices,omitempty"` // extra device ids offered in the picker
	JPEGQuality   int      `json:"jpeg_quality"`
	MaxFrameWidth int      `json:"max_frame_width"`
	PreviewFPS    int      `json:"preview_fps"`

	// Screen capture region; zero width or height captures the whole display.
	ScreenX int `json:"screen_x"`
	ScreenY int `json:"screen_y"`
	ScreenW int `json:"screen_w"`
	ScreenH int `json:"screen_h"`

	// Per call-site policy overrides. Missing entries fall back to the
	// embedded profiles.
	Policies map[string]Policy `json:"policies,omitempty"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:             false,
		LogLevel:          "info",
		APIBaseURL:        "http://localhost:8000/api",
		APITimeoutSeconds: 15,
		DeviceID:          "screen:0",
		JPEGQuality:       85,
		MaxFrameWidth:     1280,
		PreviewFPS:        10,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	c.APIBaseURL = strings.TrimSuffix(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = "http://localhost:8000/api"
	}
	if c.APITimeoutSeconds <= 0 {
		c.APITimeoutSeconds = 15
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 85
	}
	if c.MaxFrameWidth < 160 {
		c.MaxFrameWidth = 1280
	}
	if c.PreviewFPS <= 0 || c.PreviewFPS > 30 {
		c.PreviewFPS = 10
	}
	if c.ScreenW < 0 || c.ScreenH < 0 {
		c.ScreenW, c.ScreenH = 0, 0
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	// zero means "use the profile value"
	for name, p := range c.Policies {
		if p.MatchThresholdPercent < 0 || p.MatchThresholdPercent > 100 {
			p.MatchThresholdPercent = 0
		}
		p.RequiredConsecutiveMatches = max(p.RequiredConsecutiveMatches, 0)
		p.ActiveRetryMs = max(p.ActiveRetryMs, 0)
		p.IdlePollMs = max(p.IdlePollMs, 0)
		c.Policies[name] = p
	}
	return nil
}

// ScreenRegion returns the configured screen capture rectangle, empty when unset.
func (c *Config) ScreenRegion() image.Rectangle {
	if c.ScreenW <= 0 || c.ScreenH <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(c.ScreenX, c.ScreenY, c.ScreenX+c.ScreenW, c.ScreenY+c.ScreenH)
}

// SetScreenRegion stores r, or clears the region when r is empty.
func (c *Config) SetScreenRegion(r image.Rectangle) {
	if r.Empty() {
		c.ScreenX, c.ScreenY, c.ScreenW, c.ScreenH = 0, 0, 0, 0
		return
	}
	c.ScreenX, c.ScreenY, c.ScreenW, c.ScreenH = r.Min.X, r.Min.Y, r.Dx(), r.Dy()
}

// APITimeout returns the HTTP client timeout for face API requests.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

// DeviceIDs returns the configured device followed by the extra ids, without duplicates.
func (c *Config) DeviceIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range append([]string{c.DeviceID}, c.Devices...) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// PreviewInterval returns the delay between live preview refreshes.
func (c *Config) PreviewInterval() time.Duration {
	if c.PreviewFPS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Second / time.Duration(c.PreviewFPS)
}

// Policy resolves the effective policy for a call site: the embedded
// profile overlaid with any non-zero overrides from the config file.
func (c *Config) Policy(site string) Policy {
	p := ProfilePolicy(site)
	if c == nil || c.Policies == nil {
		return p
	}
	o, ok := c.Policies[site]
	if !ok {
		return p
	}
	if o.MatchThresholdPercent > 0 {
		p.MatchThresholdPercent = o.MatchThresholdPercent
	}
	if o.RequiredConsecutiveMatches > 0 {
		p.RequiredConsecutiveMatches = o.RequiredConsecutiveMatches
	}
	if o.ActiveRetryMs > 0 {
		p.ActiveRetryMs = o.ActiveRetryMs
	}
	if o.IdlePollMs > 0 {
		p.IdlePollMs = o.IdlePollMs
	}
	return p
}

// ApplyEnv overlays values from the process environment. Empty variables are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv(EnvDevice); v != "" {
		c.DeviceID = v
	}
	c.APITimeoutSeconds = envInt(EnvTimeout, c.APITimeoutSeconds)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
