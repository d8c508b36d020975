// Package pipeline implements the cross-cutting behaviors applied to every
// outbound API request: bearer credential attachment, aggregation of
// concurrent in-flight requests into one busy flag, and translation of
// transport failures into the console's user-facing error kinds.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"CatalogConsole/pkg/state"
)

var (
	ErrSessionExpired = errors.New("session expired, please sign in again")
	ErrServerFault    = errors.New("something went wrong, try again later")
	ErrNetworkFault   = errors.New("network error, check your connection")
)

// Gauge aggregates overlapping requests into a single busy flag. Show
// increments the in-flight counter, Hide decrements; the flag only drops to
// false once every overlapping request has completed. Hide saturates at
// zero, and ForceHide resets unconditionally as an escape hatch for a
// desynchronized count.
type Gauge struct {
	mu       sync.Mutex
	inflight int
	busy     *state.Value[bool]
}

func NewGauge() *Gauge {
	return &Gauge{busy: state.NewValue(false)}
}

func (g *Gauge) Show() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inflight++
	g.busy.Set(true)
}

func (g *Gauge) Hide() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inflight--
	if g.inflight < 0 {
		g.inflight = 0
	}
	if g.inflight == 0 {
		g.busy.Set(false)
	}
}

func (g *Gauge) ForceHide() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inflight = 0
	g.busy.Set(false)
}

func (g *Gauge) Busy() bool { return g.busy.Get() }

func (g *Gauge) SubscribeBusy(fn func(bool)) (cancel func()) {
	return g.busy.Subscribe(fn)
}

// Session is the slice of the session store the pipeline needs.
type Session interface {
	IsLoggedIn() bool
	Token() string
	Logout()
}

// Transport is the interceptor chain as an http.RoundTripper. Requests whose
// URL contains Marker count against the gauge; authenticated requests get
// the stored bearer credential; unauthorized responses force a logout and
// navigation to the login page before surfacing as ErrSessionExpired.
type Transport struct {
	Base     http.RoundTripper
	Session  Session
	Gauge    *Gauge
	Marker   string
	Navigate func(route string)
	Log      *zap.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.marked(req) && t.Gauge != nil {
		t.Gauge.Show()
		defer t.Gauge.Hide()
	}

	if t.Session != nil && t.Session.IsLoggedIn() {
		if tok := t.Session.Token(); tok != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFault, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		discard(resp)
		if t.Log != nil {
			t.Log.Warn("unauthorized response, ending session", zap.String("url", req.URL.String()))
		}
		if t.Session != nil {
			t.Session.Logout()
		}
		if t.Navigate != nil {
			t.Navigate("/login")
		}
		return nil, ErrSessionExpired

	case resp.StatusCode >= http.StatusInternalServerError:
		discard(resp)
		return nil, fmt.Errorf("%w: status=%d", ErrServerFault, resp.StatusCode)
	}

	return resp, nil
}

// NewClient wraps t in an http.Client with the given request timeout, which
// is how every store-originated API call is expected to go out.
func NewClient(timeout time.Duration, t *Transport) *http.Client {
	return &http.Client{Timeout: timeout, Transport: t}
}

func (t *Transport) marked(req *http.Request) bool {
	return t.Marker != "" && strings.Contains(req.URL.String(), t.Marker)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
