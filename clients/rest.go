package clients

import (
	// Go Internal Packages
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	// Local Packages
	errors "bgmock-twin/errors"

	// External Packages
	"go.uber.org/zap"
)

// CallRecorder receives one entry per REST call.
type CallRecorder interface {
	AppendRestCall(method, endpoint string, statusCode int, latency time.Duration)
}

// rest is the JSON-over-HTTP plumbing shared by the service clients.
type rest struct {
	baseURL  string
	http     *http.Client
	recorder CallRecorder
	logger   *zap.Logger
}

func newRest(baseURL string, httpClient *http.Client, recorder CallRecorder, logger *zap.Logger) rest {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return rest{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		recorder: recorder,
		logger:   logger,
	}
}

// do sends body as JSON and decodes a 2xx response into out. endpoint is the
// path template recorded for the call. It returns the HTTP status code, or 0
// when no response was received.
func (r rest) do(ctx context.Context, method, path, endpoint string, query url.Values, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, errors.InvalidParamsErr(err)
		}
		reader = bytes.NewReader(data)
	}

	target := r.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, errors.InvalidParamsErr(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := r.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		r.record(method, endpoint, 0, latency)
		if errors.KindOf(err) != errors.Other {
			return 0, err
		}
		return 0, errors.UnavailableErr(r.baseURL, err)
	}
	defer resp.Body.Close()
	r.record(method, endpoint, resp.StatusCode, latency)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, errors.UnavailableErr(r.baseURL, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, errors.E(errors.NotFound, fmt.Sprintf("%s %s", method, path), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, errors.E(errors.Other, fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, truncate(payload, 200)), nil)
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return resp.StatusCode, errors.MalformedErr(method+" "+path, err)
		}
	}
	return resp.StatusCode, nil
}

func (r rest) record(method, endpoint string, status int, latency time.Duration) {
	if r.recorder != nil {
		r.recorder.AppendRestCall(method, endpoint, status, latency)
	}
}

// health reports whether GET /health answers 200.
func (r rest) health(ctx context.Context) bool {
	status, err := r.do(ctx, http.MethodGet, "/health", "/health", nil, nil, nil)
	if err != nil {
		r.logger.Debug("health check failed", zap.String("base_url", r.baseURL), zap.Error(err))
		return false
	}
	return status == http.StatusOK
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
