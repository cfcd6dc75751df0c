// pkg/pve/api.go

package pve

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const tokenPrefix = "PVEAPIToken="

// APIClient talks to the Proxmox VE REST API of the local node.
type APIClient struct {
	baseURL    string
	token      string
	node       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	poll       *rate.Limiter
	// taskTimeout bounds a stop or start from the POST until its task ends.
	taskTimeout time.Duration
}

// NewAPIProvider builds an API-backed provider. timeout bounds each HTTP
// request and each stop or start including its task wait.
func NewAPIProvider(s APISettings, timeout time.Duration) *APIProvider {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: s.Insecure}, //nolint:gosec // self-signed node certs
	}
	hc := &http.Client{Transport: transport, Timeout: timeout}
	base := fmt.Sprintf("https://%s:%d/api2/json", s.Host, s.Port)
	c := newAPIClient(base, s.Token, s.Node, hc)
	c.taskTimeout = timeout
	return &APIProvider{client: c}
}

func newAPIClient(baseURL, token, node string, hc *http.Client) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      ensurePrefix(token),
		node:       node,
		httpClient: hc,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "pve-api",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		}),
		poll: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func ensurePrefix(token string) string {
	if strings.HasPrefix(token, tokenPrefix) {
		return token
	}
	return tokenPrefix + token
}

func maskToken(t string) string {
	rest := strings.TrimPrefix(t, tokenPrefix)
	if i := strings.LastIndex(rest, "="); i > 0 {
		return tokenPrefix + rest[:i+1] + "****"
	}
	return tokenPrefix + "****"
}

// apiError is an HTTP-level failure from the API.
type apiError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Detail)
}

// do sends one request through the breaker and returns the raw "data" field.
// 4xx responses are answers, not outages, so they don't trip the breaker.
func (c *APIClient) do(ctx context.Context, method, path string, form url.Values) (json.RawMessage, error) {
	var clientErr *apiError
	out, err := c.breaker.Execute(func() (interface{}, error) {
		data, err := c.roundTrip(ctx, method, path, form)
		var ae *apiError
		if cerr.As(err, &ae) && ae.Status < 500 {
			clientErr = ae
			return nil, nil
		}
		return data, err
	})
	if clientErr != nil {
		return nil, clientErr
	}
	if err != nil {
		return nil, err
	}
	return out.(json.RawMessage), nil
}

func (c *APIClient) roundTrip(ctx context.Context, method, path string, form url.Values) (json.RawMessage, error) {
	var body io.Reader
	if form != nil {
		body = bytes.NewBufferString(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.token)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	otelzap.Ctx(ctx).Debug("PVE API request",
		zap.String("method", method),
		zap.String("url", c.baseURL+path),
		zap.String("auth", maskToken(c.token)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, cerr.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cerr.Wrapf(err, "%s %s: reading body", method, path)
	}
	if resp.StatusCode >= 400 {
		return nil, &apiError{Method: method, Path: path, Status: resp.StatusCode, Detail: errorDetail(resp, raw)}
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, cerr.Wrapf(err, "%s %s: parsing envelope", method, path)
	}
	return envelope.Data, nil
}

// errorDetail prefers the API's own message over the raw body.
func errorDetail(resp *http.Response, raw []byte) string {
	var body struct {
		Errors  map[string]string `json:"errors"`
		Message string            `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		keys := make([]string, 0, len(body.Errors))
		for k := range body.Errors {
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			return fmt.Sprintf("field %q: %s", keys[0], body.Errors[keys[0]])
		}
		if body.Message != "" {
			return strings.TrimSpace(body.Message)
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	// PVE puts the reason in the status line for most errors
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

// taskStatus is the state of an asynchronous PVE task.
type taskStatus struct {
	Status     string `json:"status"`     // running | stopped
	ExitStatus string `json:"exitstatus"` // OK or an error message
}

// WaitForTask polls upid until it stops or ctx ends.
func (c *APIClient) WaitForTask(ctx context.Context, upid string) error {
	// UPIDs contain colons, which PVE wants percent-encoded in the path
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", c.node, strings.ReplaceAll(url.PathEscape(upid), ":", "%3A"))
	for {
		r := c.poll.Reserve()
		select {
		case <-ctx.Done():
			r.Cancel()
			return cerr.Wrapf(ctx.Err(), "waiting for task %s", upid)
		case <-time.After(r.Delay()):
		}
		data, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		var st taskStatus
		if err := json.Unmarshal(data, &st); err != nil {
			return cerr.Wrap(err, "parsing task status")
		}
		if st.Status == "stopped" {
			if st.ExitStatus != "OK" {
				return cerr.Newf("task %s failed: %s", upid, st.ExitStatus)
			}
			return nil
		}
	}
}

// APIProvider hands out REST-backed control planes that share one client.
type APIProvider struct {
	client *APIClient
}

func (p *APIProvider) For(kind Kind) ControlPlane {
	return &apiPlane{kind: kind, c: p.client}
}

type apiPlane struct {
	kind Kind
	c    *APIClient
}

func (a *apiPlane) Kind() Kind { return a.kind }

func (a *apiPlane) resourcePath(id int, suffix string) string {
	return fmt.Sprintf("/nodes/%s/%s/%d/%s", a.c.node, a.kind.APIPath(), id, suffix)
}

func (a *apiPlane) statusChange(ctx context.Context, verb string, id int) (string, error) {
	taskCtx := ctx
	if a.c.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, a.c.taskTimeout)
		defer cancel()
	}

	data, err := a.c.do(taskCtx, http.MethodPost, a.resourcePath(id, "status/"+verb), url.Values{})
	if err != nil {
		return "", a.timedOut(ctx, taskCtx, verb, id, err)
	}
	var upid string
	if err := json.Unmarshal(data, &upid); err != nil {
		return "", cerr.Wrapf(err, "parsing %s task id", verb)
	}
	if err := a.c.WaitForTask(taskCtx, upid); err != nil {
		return upid, a.timedOut(ctx, taskCtx, verb, id, err)
	}
	return upid, nil
}

// timedOut replaces err with a timeout error when the task deadline, not
// the caller, ended the wait.
func (a *apiPlane) timedOut(parent, taskCtx context.Context, verb string, id int, err error) error {
	if parent.Err() == nil && cerr.Is(taskCtx.Err(), context.DeadlineExceeded) {
		otelzap.Ctx(parent).Warn("Task deadline reached",
			zap.String("verb", verb), zap.Int("vmid", id), zap.Duration("timeout", a.c.taskTimeout))
		return cerr.Newf("%s %s %d timed out after %s", a.kind.APIPath(), verb, id, a.c.taskTimeout)
	}
	return err
}

func (a *apiPlane) Stop(ctx context.Context, id int) (string, error) {
	return a.statusChange(ctx, "stop", id)
}

func (a *apiPlane) Start(ctx context.Context, id int) (string, error) {
	return a.statusChange(ctx, "start", id)
}

// InspectConfig renders the config object as sorted "key: value" lines,
// the same shape qm/pct config print.
func (a *apiPlane) InspectConfig(ctx context.Context, id int) (string, error) {
	data, err := a.c.do(ctx, http.MethodGet, a.resourcePath(id, "config"), nil)
	if err != nil {
		return "", err
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", cerr.Wrap(err, "parsing config")
	}
	if len(cfg) == 0 {
		return "", cerr.Newf("%s %d has no configuration", a.kind.Noun(), id)
	}
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %v\n", k, cfg[k])
	}
	return sb.String(), nil
}

// flexInt accepts both 101 and "101"; lxc listings return vmid as a string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type listEntry struct {
	VMID   flexInt `json:"vmid"`
	Name   string  `json:"name"`
	Status string  `json:"status"`
}

func (a *apiPlane) List(ctx context.Context) ([]Resource, error) {
	path := fmt.Sprintf("/nodes/%s/%s", a.c.node, a.kind.APIPath())
	data, err := a.c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var entries []listEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, cerr.Wrap(err, "parsing listing")
	}
	res := make([]Resource, 0, len(entries))
	for _, e := range entries {
		label := e.Name
		if a.kind == Container {
			label = e.Status
		}
		res = append(res, Resource{ID: int(e.VMID), Label: label})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}
