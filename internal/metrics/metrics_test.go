package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestServerExposesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterCollectors(reg)
	Grants.WithLabelValues("admin").Inc()

	srv, err := Listen("127.0.0.1:0", reg)
	require.NoError(t, err)
	go srv.Serve()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), `combogate_entitlement_grants_total{source="admin"}`))
}

func TestResultLabel(t *testing.T) {
	require.Equal(t, "ok", Result(nil))
	require.Equal(t, "error", Result(errors.New("x")))

	before := testutil.ToFloat64(StateSaves.WithLabelValues("file", Result(nil)))
	StateSaves.WithLabelValues("file", Result(nil)).Inc()
	require.Equal(t, before+1, testutil.ToFloat64(StateSaves.WithLabelValues("file", "ok")))
}
