package pipeline

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	loggedIn bool
	token    string
	logouts  int
}

func (f *fakeSession) IsLoggedIn() bool { return f.loggedIn }
func (f *fakeSession) Token() string    { return f.token }
func (f *fakeSession) Logout()          { f.logouts++; f.loggedIn = false }

func TestGauge_OverlappingRequests(t *testing.T) {
	g := NewGauge()
	require.False(t, g.Busy())

	g.Show()
	g.Show()
	g.Show()
	require.True(t, g.Busy())

	g.Hide()
	g.Hide()
	require.True(t, g.Busy(), "busy stays true until every overlapping request completes")

	g.Hide()
	require.False(t, g.Busy())
}

func TestGauge_HideSaturatesAtZero(t *testing.T) {
	g := NewGauge()

	g.Hide()
	g.Hide()
	require.False(t, g.Busy())

	g.Show()
	require.True(t, g.Busy())
	g.Hide()
	require.False(t, g.Busy())
}

func TestGauge_ForceHide(t *testing.T) {
	g := NewGauge()
	for i := 0; i < 5; i++ {
		g.Show()
	}
	require.True(t, g.Busy())

	g.ForceHide()
	require.False(t, g.Busy())
}

func TestGauge_SubscribeBusy(t *testing.T) {
	g := NewGauge()

	var seen []bool
	cancel := g.SubscribeBusy(func(b bool) { seen = append(seen, b) })
	defer cancel()

	g.Show()
	g.Hide()
	require.Equal(t, []bool{true, false}, seen)
}

func TestTransport_AttachesBearerWhenAuthenticated(t *testing.T) {
	var gotAuthz string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthz = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	sess := &fakeSession{loggedIn: true, token: "tok123"}
	c := &http.Client{Transport: &Transport{Session: sess}}

	resp, err := c.Get(ts.URL + "/api/products")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "Bearer tok123", gotAuthz)
}

func TestTransport_NoBearerWhenAnonymous(t *testing.T) {
	var gotAuthz string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthz = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	c := &http.Client{Transport: &Transport{Session: &fakeSession{}}}

	resp, err := c.Get(ts.URL + "/api/products")
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, gotAuthz)
}

func TestTransport_GaugeTogglesForMarkedRequestsOnly(t *testing.T) {
	g := NewGauge()

	var busyDuringRequest bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		busyDuringRequest = g.Busy()
	}))
	defer ts.Close()

	c := &http.Client{Transport: &Transport{Gauge: g, Marker: "/api/"}}

	resp, err := c.Get(ts.URL + "/api/products")
	require.NoError(t, err)
	resp.Body.Close()
	require.True(t, busyDuringRequest, "marked request counts against the gauge")
	require.False(t, g.Busy(), "gauge released on completion")

	busyDuringRequest = false
	resp, err = c.Get(ts.URL + "/assets/logo.png")
	require.NoError(t, err)
	resp.Body.Close()
	require.False(t, busyDuringRequest, "unmarked request bypasses the gauge")
}

func TestTransport_UnauthorizedForcesLogout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	sess := &fakeSession{loggedIn: true, token: "tok"}
	var routes []string
	c := &http.Client{Transport: &Transport{
		Session:  sess,
		Navigate: func(route string) { routes = append(routes, route) },
	}}

	_, err := c.Get(ts.URL + "/api/products")
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, 1, sess.logouts)
	require.Equal(t, []string{"/login"}, routes)
}

func TestTransport_ServerFault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := &http.Client{Transport: &Transport{}}

	_, err := c.Get(ts.URL + "/api/products")
	require.ErrorIs(t, err, ErrServerFault)
}

func TestTransport_NetworkFault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // nothing listening anymore

	c := &http.Client{Transport: &Transport{}}

	_, err := c.Get(ts.URL + "/api/products")
	require.ErrorIs(t, err, ErrNetworkFault)
}

func TestTransport_OtherStatusesPassThrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := &http.Client{Transport: &Transport{}}

	resp, err := c.Get(ts.URL + "/api/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransport_ConcurrentRequestsKeepBusyUntilAllComplete(t *testing.T) {
	g := NewGauge()

	release := make(chan struct{})
	started := make(chan struct{}, 3)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
	}))
	defer ts.Close()

	c := &http.Client{Transport: &Transport{Gauge: g, Marker: "/api/"}}

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func() {
			resp, err := c.Get(ts.URL + "/api/products")
			if err == nil {
				resp.Body.Close()
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 3; i++ {
		<-started
	}
	require.True(t, g.Busy(), "busy while any of the overlapping requests is in flight")

	close(release)
	for i := 0; i < 3; i++ {
		<-done
	}
	require.False(t, g.Busy())
}
