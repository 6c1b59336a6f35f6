package chaos

import (
	// Go Internal Packages
	"bytes"
	"io"
	"net/http"
	"time"

	// Local Packages
	errors "bgmock-twin/errors"
	utils "bgmock-twin/utils"
)

var malformedBody = []byte(`{"transactionId": <<corrupted`)

// Transport is an http.RoundTripper that applies the engine's active failures
// for Service before delegating to Base.
type Transport struct {
	Base    http.RoundTripper
	Engine  *Engine
	Service string
	Sleep   utils.SleepFunc
}

func NewTransport(engine *Engine, service string, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Engine: engine, Service: service, Sleep: utils.Sleep}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.Engine.IsServiceDown(t.Service) {
		closeBody(req)
		return nil, errors.UnavailableErr(t.Service, errors.E(errors.Other, "service down (chaos)", nil))
	}

	if delay := t.Engine.DelayFor(t.Service); delay > 0 {
		if err := t.Sleep(ctx, delay); err != nil {
			closeBody(req)
			return nil, err
		}
	}

	if timeout, ok := t.Engine.TimeoutFor(t.Service); ok {
		closeBody(req)
		if err := t.Sleep(ctx, timeout); err != nil {
			return nil, err
		}
		return nil, errors.TimeoutErr(t.Service + " request after " + timeout.String())
	}

	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if t.Engine.ShouldCorruptResponse(t.Service) {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(malformedBody))
		resp.ContentLength = int64(len(malformedBody))
		resp.Header.Del("Content-Length")
	}
	return resp, nil
}

// closeBody releases the request body on paths that never reach the base transport.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// Client returns an http.Client routed through a chaos Transport for service.
func Client(engine *Engine, service string, timeout time.Duration) *http.Client {
	return &http.Client{Transport: NewTransport(engine, service, nil), Timeout: timeout}
}
