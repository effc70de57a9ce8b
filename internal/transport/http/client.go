package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kiosk-quiz-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Client implements kiosk.Backend against the HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    uint64
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption { return func(c *Client) { c.httpClient = hc } }

// WithRetries sets how many times idempotent calls are retried after a transport failure.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.retries = uint64(n)
		}
	}
}

func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) { c.newBackOff = newBackOff }
}

func WithClientLogger(logger *zap.Logger) ClientOption { return func(c *Client) { c.logger = logger } }

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retries:    3,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FetchCatalog(ctx context.Context) ([]domain.Question, error) {
	const op = "fetch catalog"
	body, _, err := c.do(ctx, op, http.MethodGet, "/questions", nil, true)
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if err := decodeArray(op, body, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// Register is sent once; a retried registration would collide with itself on the unique regno.
func (c *Client) Register(ctx context.Context, form domain.Registration) (domain.RegistrationResult, error) {
	const op = "register"
	body, _, err := c.do(ctx, op, http.MethodPost, "/register", form, false)
	if err != nil {
		return domain.RegistrationResult{}, err
	}
	var res domain.RegistrationResult
	if err := json.Unmarshal(body, &res); err != nil {
		return domain.RegistrationResult{}, &domain.MalformedResponseError{Op: op, Detail: err.Error()}
	}
	return res, nil
}

// SubmitQuiz may be retried; the backend replaces the previous attempt.
func (c *Client) SubmitQuiz(ctx context.Context, submission domain.Submission) (domain.SubmissionResult, error) {
	const op = "submit quiz"
	body, _, err := c.do(ctx, op, http.MethodPost, "/submit-quiz", submission, true)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	var res domain.SubmissionResult
	if err := json.Unmarshal(body, &res); err != nil {
		return domain.SubmissionResult{}, &domain.MalformedResponseError{Op: op, Detail: err.Error()}
	}
	return res, nil
}

func (c *Client) FetchLeaderboard(ctx context.Context) ([]domain.LeaderboardRow, error) {
	const op = "fetch leaderboard"
	body, _, err := c.do(ctx, op, http.MethodGet, "/api/leaderboard", nil, true)
	if err != nil {
		return nil, err
	}
	var rows []domain.LeaderboardRow
	if err := decodeArray(op, body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// do sends one request and returns the body whatever the status; the API answers rejections with a
// JSON body the caller still needs. Transport failures and gateway errors are retried when retry is set.
func (c *Client) do(ctx context.Context, op, method, path string, payload any, retry bool) ([]byte, int, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, 0, fmt.Errorf("%s: encode: %w", op, err)
		}
	}

	var (
		body   []byte
		status int
	)
	attempt := func() error {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		if body, err = io.ReadAll(resp.Body); err != nil {
			return err
		}
		switch status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("status %d", status)
		}
		return nil
	}

	retries := uint64(0)
	if retry {
		retries = c.retries
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), retries), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying request", zap.String("op", op), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		return nil, status, &domain.NetworkError{Op: op, Err: err}
	}
	return body, status, nil
}

func decodeArray(op string, body []byte, dst any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return &domain.MalformedResponseError{Op: op, Detail: "expected a JSON array"}
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return &domain.MalformedResponseError{Op: op, Detail: err.Error()}
	}
	return nil
}
