package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/StudyOn/internal/pkg/env"
)

const (
	defaultBaseURL = "http://localhost:8081/api/v1"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 2 << 20
)

// Client talks to the billing service. Every method issues exactly one request.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func NewClientFromEnv() *Client {
	return NewClient(
		env.GetEnv("BILLING_URL", defaultBaseURL),
		env.GetEnvDuration("BILLING_TIMEOUT", defaultTimeout),
	)
}

type requestIDKey struct{}

// WithRequestID attaches an id that is forwarded as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*Tokens, error) {
	var out Tokens
	if err := c.do(ctx, "authenticate", http.MethodPost, "/auth", nil, "", creds, authOnly, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, unavailable("authenticate", errors.New("empty token in response"))
	}
	return &out, nil
}

var registerKinds = authOnly.
	with(http.StatusConflict, KindAlreadyExists).
	with(http.StatusBadRequest, KindValidationFailed)

func (c *Client) Register(ctx context.Context, creds Credentials) (*Tokens, error) {
	var out Tokens
	if err := c.do(ctx, "register", http.MethodPost, "/register", nil, "", creds, registerKinds, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, unavailable("register", errors.New("empty token in response"))
	}
	return &out, nil
}

func (c *Client) CurrentUser(ctx context.Context, token string) (*CurrentUser, error) {
	var out CurrentUser
	if err := c.do(ctx, "current user", http.MethodGet, "/users/current", nil, token, nil, authOnly, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	var out Tokens
	if err := c.do(ctx, "refresh token", http.MethodPost, "/token/refresh", nil, "", payload, authOnly, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, unavailable("refresh token", errors.New("empty token in response"))
	}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return &out, nil
}

var courseKinds = authOnly.with(http.StatusNotFound, KindCourseNotFound)

func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var out []Course
	if err := c.do(ctx, "list courses", http.MethodGet, "/courses/", nil, "", nil, authOnly, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Course(ctx context.Context, code string) (*Course, error) {
	var out Course
	path := "/courses/" + url.PathEscape(code)
	if err := c.do(ctx, "get course", http.MethodGet, path, nil, "", nil, courseKinds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var courseWriteKinds = authOnly.
	with(http.StatusForbidden, KindAuthenticationFailed).
	with(http.StatusConflict, KindCourseAlreadyExists).
	with(http.StatusBadRequest, KindValidationFailed).
	with(http.StatusNotFound, KindCourseNotFound)

func (c *Client) CreateCourse(ctx context.Context, token string, in CourseInput) error {
	var out successResponse
	if err := c.do(ctx, "create course", http.MethodPost, "/courses/new", nil, token, in, courseWriteKinds, &out); err != nil {
		return err
	}
	if !out.Success {
		return unavailable("create course", errors.New("billing reported failure"))
	}
	return nil
}

// EditCourse updates the course currently known under code. in.Code may rename it.
func (c *Client) EditCourse(ctx context.Context, token, code string, in CourseInput) error {
	var out successResponse
	path := "/courses/" + url.PathEscape(code) + "/edit"
	if err := c.do(ctx, "edit course", http.MethodPost, path, nil, token, in, courseWriteKinds, &out); err != nil {
		return err
	}
	if !out.Success {
		return unavailable("edit course", errors.New("billing reported failure"))
	}
	return nil
}

var payKinds = authOnly.
	with(http.StatusNotFound, KindCourseNotFound).
	with(http.StatusNotAcceptable, KindNotEnoughMoney).
	with(http.StatusConflict, KindCourseAlreadyPaid)

func (c *Client) Pay(ctx context.Context, token, code string) (*PaymentResult, error) {
	var out PaymentResult
	path := "/courses/" + url.PathEscape(code) + "/pay"
	if err := c.do(ctx, "pay", http.MethodPost, path, nil, token, nil, payKinds, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, unavailable("pay", errors.New("billing reported failure"))
	}
	return &out, nil
}

func (c *Client) Transactions(ctx context.Context, token string, filter TransactionFilter) ([]Transaction, error) {
	q := url.Values{}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	if filter.CourseCode != "" {
		q.Set("code", filter.CourseCode)
	}
	if filter.SkipExpired {
		q.Set("skip_expired", "1")
	}
	var out []Transaction
	if err := c.do(ctx, "transactions", http.MethodGet, "/transactions/", q, token, nil, authOnly, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, token string, payload any, kinds statusKinds, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return unavailable(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		fiberlog.Warnf("[Billing] %s %s failed: %v", method, path, err)
		return unavailable(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return unavailable(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := classify(op, resp.StatusCode, raw, kinds)
		if e.Kind == KindServiceUnavailable {
			fiberlog.Errorf("[Billing] %s %s: status=%d body=%s", method, path, resp.StatusCode, truncate(raw, 512))
		}
		return e
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return unavailable(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
