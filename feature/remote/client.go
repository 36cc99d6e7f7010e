package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"record-sync/core/reconcile"
)

// ResponseError is a non-2xx answer of the API.
type ResponseError struct {
	Status  int
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("remote API returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote API returned %d %s: %s", e.Status, e.Code, e.Message)
}

type apiError struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Fields    []string `json:"fields"`
}

type queryPage struct {
	TotalSize      int                    `json:"totalSize"`
	Done           bool                   `json:"done"`
	NextRecordsURL string                 `json:"nextRecordsUrl"`
	Records        []reconcile.Attributes `json:"records"`
}

type createResult struct {
	ID      string     `json:"id"`
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
}

type describeResult struct {
	Name   string `json:"name"`
	Fields []struct {
		Name string `json:"name"`
	} `json:"fields"`
}

// Client talks to the remote REST API.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cfg     Config
	now     func() time.Time

	describeGroup singleflight.Group
	mu            sync.RWMutex
	described     map[string]map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithClock replaces the clock used for sync markers.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	if cfg.ModstampField == "" {
		cfg.ModstampField = "SystemModstamp"
	}
	cfg.APIPath = "/" + strings.Trim(cfg.APIPath, "/")

	c := &Client{
		cfg:       cfg,
		now:       time.Now,
		described: make(map[string]map[string]string),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	c.http = resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(time.Duration(timeout) * time.Second).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(retryable).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			if c.limiter == nil {
				return nil
			}
			return c.limiter.Wait(r.Context())
		})
	if cfg.Token != "" {
		c.http.SetAuthToken(cfg.Token)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryable retries network failures, throttling and server errors. Creates
// are never retried since the first attempt may have been applied.
func retryable(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil {
		return false
	}
	if resp.Request.Method == http.MethodPost {
		return false
	}
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) sobjectPath(recordType string, parts ...string) string {
	p := c.cfg.APIPath + "/sobjects/" + url.PathEscape(recordType)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// Query runs a SOQL query and follows pagination until done.
func (c *Client) Query(ctx context.Context, soql string) ([]reconcile.Attributes, error) {
	resp, err := c.request(ctx).SetQueryParam("q", soql).Get(c.cfg.APIPath + "/query")
	var records []reconcile.Attributes
	for {
		if err := check(resp, err, "query"); err != nil {
			return nil, err
		}
		var page queryPage
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, reconcile.Transient(err, "decode query page")
		}
		for _, r := range page.Records {
			records = append(records, normalize(r))
		}
		if page.Done || page.NextRecordsURL == "" {
			return records, nil
		}
		resp, err = c.request(ctx).Get(page.NextRecordsURL)
	}
}

// Get fetches one record. An empty fields list returns every field.
func (c *Client) Get(ctx context.Context, recordType, id string, fields []string) (reconcile.Attributes, error) {
	req := c.request(ctx)
	if len(fields) > 0 {
		req.SetQueryParam("fields", strings.Join(fields, ","))
	}
	resp, err := req.Get(c.sobjectPath(recordType, id))
	if err := check(resp, err, "get "+recordType); err != nil {
		return nil, err
	}
	var attrs reconcile.Attributes
	if err := json.Unmarshal(resp.Body(), &attrs); err != nil {
		return nil, reconcile.Transient(err, "decode "+recordType)
	}
	return normalize(attrs), nil
}

// Create inserts a record and returns its id.
func (c *Client) Create(ctx context.Context, recordType string, attrs reconcile.Attributes) (string, error) {
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(attrs).
		Post(c.sobjectPath(recordType))
	if err := check(resp, err, "create "+recordType); err != nil {
		return "", err
	}
	var result createResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", reconcile.Transient(err, "decode create result")
	}
	if !result.Success || result.ID == "" {
		rerr := &ResponseError{Status: resp.StatusCode(), Message: "create was not successful"}
		if len(result.Errors) > 0 {
			rerr.Code, rerr.Message = result.Errors[0].ErrorCode, result.Errors[0].Message
		}
		return "", reconcile.Persistence(rerr, "create "+recordType)
	}
	return result.ID, nil
}

// Update patches a record.
func (c *Client) Update(ctx context.Context, recordType, id string, attrs reconcile.Attributes) error {
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(attrs).
		Patch(c.sobjectPath(recordType, id))
	return check(resp, err, "update "+recordType+" "+id)
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, recordType, id string) error {
	resp, err := c.request(ctx).Delete(c.sobjectPath(recordType, id))
	return check(resp, err, "delete "+recordType+" "+id)
}

// Fields returns the field names of recordType keyed by their lower case form.
// Descriptions are cached; concurrent first calls share one request.
func (c *Client) Fields(ctx context.Context, recordType string) (map[string]string, error) {
	c.mu.RLock()
	fields, ok := c.described[recordType]
	c.mu.RUnlock()
	if ok {
		return fields, nil
	}

	v, err, _ := c.describeGroup.Do(recordType, func() (any, error) {
		resp, err := c.request(ctx).Get(c.sobjectPath(recordType, "describe"))
		if err := check(resp, err, "describe "+recordType); err != nil {
			return nil, err
		}
		var result describeResult
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return nil, reconcile.Transient(err, "decode describe "+recordType)
		}
		fields := make(map[string]string, len(result.Fields))
		for _, f := range result.Fields {
			fields[strings.ToLower(f.Name)] = f.Name
		}
		c.mu.Lock()
		c.described[recordType] = fields
		c.mu.Unlock()
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// check classifies the outcome of a request for the engine.
func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return reconcile.Transient(err, op)
	}
	if !resp.IsError() {
		return nil
	}
	rerr := responseError(resp)
	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return errors.Mark(errors.Wrap(rerr, op), reconcile.ErrNotFound)
	case code == http.StatusUnauthorized, code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return reconcile.Transient(rerr, op)
	default:
		return reconcile.Persistence(rerr, op)
	}
}

func responseError(resp *resty.Response) *ResponseError {
	rerr := &ResponseError{Status: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	var apiErrs []apiError
	if err := json.Unmarshal(resp.Body(), &apiErrs); err == nil && len(apiErrs) > 0 {
		rerr.Code = apiErrs[0].ErrorCode
		rerr.Message = apiErrs[0].Message
	}
	return rerr
}

// normalize drops the per-record metadata object.
func normalize(attrs reconcile.Attributes) reconcile.Attributes {
	if attrs == nil {
		return reconcile.Attributes{}
	}
	delete(attrs, "attributes")
	return attrs
}
