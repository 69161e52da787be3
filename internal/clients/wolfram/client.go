package wolfram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/pkg/httpx"
	"github.com/yungbote/studypilot-backend/internal/utils"
)

// Config is the immutable Full Results API configuration.
type Config struct {
	AppID   string
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv(log *logger.Logger) (Config, error) {
	appID := strings.TrimSpace(utils.GetEnv("WOLFRAM_APP_ID", "", log))
	if appID == "" {
		return Config{}, fmt.Errorf("missing WOLFRAM_APP_ID")
	}
	return Config{
		AppID:   appID,
		BaseURL: strings.TrimRight(utils.GetEnv("WOLFRAM_BASE_URL", "http://api.wolframalpha.com/v2/query", log), "/"),
		Timeout: time.Duration(utils.GetEnvAsInt("WOLFRAM_TIMEOUT_SECONDS", 30, log)) * time.Second,
	}, nil
}

// Client queries the Wolfram Alpha Full Results API. One Query is one
// upstream call; retry policy lives with the caller's strategy chain.
type Client interface {
	Query(ctx context.Context, input, podstate string) (*QueryResult, error)
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, fmt.Errorf("missing app id")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://api.wolframalpha.com/v2/query"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		log:        log.With("service", "WolframClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type queryEnvelope struct {
	QueryResult QueryResult `json:"queryresult"`
}

// QueryResult is the structured upstream result. Success=false with no pods
// is a structural miss for whatever podstate was requested.
type QueryResult struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error,omitempty"`
	Pods    []Pod           `json:"pods"`
}

// ErrorMessage returns the upstream error text when the error field carries
// an object; the field is the literal false on healthy responses.
func (qr *QueryResult) ErrorMessage() string {
	if qr == nil || len(qr.Error) == 0 {
		return ""
	}
	var obj struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(qr.Error, &obj); err != nil {
		return ""
	}
	return obj.Msg
}

type Pod struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Subpods []Subpod `json:"subpods"`
}

type Subpod struct {
	Title     string `json:"title"`
	Plaintext string `json:"plaintext"`
}

// PlainText joins the pod's non-empty subpod plaintexts. Empty means the pod
// carries no usable content.
func (p Pod) PlainText() string {
	parts := make([]string, 0, len(p.Subpods))
	for _, sp := range p.Subpods {
		if text := strings.TrimSpace(sp.Plaintext); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

type wolframHTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *wolframHTTPError) Error() string {
	return fmt.Sprintf("wolfram http %d: %s", e.StatusCode, e.Body)
}

func (e *wolframHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// RetryAfterHint surfaces an upstream Retry-After for pacing between
// fallback strategies. Zero when the error carries none.
func RetryAfterHint(err error) time.Duration {
	var he *wolframHTTPError
	if errors.As(err, &he) {
		return he.RetryAfter
	}
	return 0
}

func (c *client) Query(ctx context.Context, input, podstate string) (*QueryResult, error) {
	params := url.Values{}
	params.Set("appid", c.cfg.AppID)
	params.Set("input", input)
	params.Set("output", "json")
	params.Set("format", "plaintext")
	if podstate != "" {
		params.Set("podstate", podstate)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &wolframHTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			RetryAfter: httpx.RetryAfterDuration(resp, 0, 10*time.Second),
		}
	}

	var envelope queryEnvelope
	if uErr := json.Unmarshal(raw, &envelope); uErr != nil {
		return nil, fmt.Errorf("wolfram decode error: %w", uErr)
	}
	return &envelope.QueryResult, nil
}
