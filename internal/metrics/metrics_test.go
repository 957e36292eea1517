package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAuth(t *testing.T) {
	m := New()

	m.ObserveAuth("login", "ok")
	m.ObserveAuth("login", "ok")
	m.ObserveAuth("refresh", "unauthorized")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authOps.WithLabelValues("login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authOps.WithLabelValues("refresh", "unauthorized")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()

	h := m.Middleware("/users/login")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/users/login", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodPost, "/users/login", "401")))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vidtube_http_requests_total{method="POST",route="/users/login",status="401"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
