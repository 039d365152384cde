package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/leads/{id}", NormalizePath("/leads/64b7f0c2a1b2c3d4e5f60718"))
	assert.Equal(t, "/files/{id}/x", NormalizePath("/files/123e4567-e89b-12d3-a456-426614174000/x"))
	assert.Equal(t, "/leads", NormalizePath("/leads"))
}

func TestTransportCountsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	counter := GatewayRequestsTotal.WithLabelValues(http.MethodGet, "/brew", "418")
	before := testutil.ToFloat64(counter)

	client := &http.Client{Transport: Transport{}}
	resp, err := client.Get(srv.URL + "/brew")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
