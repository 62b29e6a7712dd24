package artwork

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), 0)

	data, err := f.Fetch(context.Background(), srv.URL+"/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.jpg")
	assert.ErrorContains(t, err, "404")
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	f := NewHTTPFetcher(nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "http://127.0.0.1:1/never")
	assert.Error(t, err)
}

func TestHTTPFetcher_RejectsOversizedBody(t *testing.T) {
	big := make([]byte, MaxImageBytes+10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(big)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.Client(), 0).Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "exceeds")
}
