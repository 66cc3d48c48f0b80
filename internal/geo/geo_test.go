package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const merignac = `{"type":"FeatureCollection","features":[
 {"geometry":{"type":"Point","coordinates":[-0.6447,44.8386]},"properties":{"name":"Mérignac","postcode":"33700","citycode":"33281"}},
 {"geometry":{"type":"Point","coordinates":[-0.3357,45.6921]},"properties":{"name":"Mérignac","postcode":"16200"}}
]}`

func TestSuggestShortQuerySendsNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	for _, q := range []string{"", "b", "Pa", "  é  ", "éè"} {
		got, err := c.Suggest(context.Background(), q)
		require.NoError(t, err)
		assert.Nil(t, got, q)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestSuggestMapsFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/", r.URL.Path)
		assert.Equal(t, "mérig", r.URL.Query().Get("q"))
		assert.Equal(t, "municipality", r.URL.Query().Get("type"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(merignac))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL+"/", time.Second).Suggest(context.Background(), "mérig")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Mérignac (33)", got[0].Label)
	assert.Equal(t, "Mérignac", got[0].Value)
	assert.Equal(t, [2]float64{-0.6447, 44.8386}, got[0].Coordinates)
	assert.Equal(t, 44.8386, got[0].Lat())
	assert.Equal(t, -0.6447, got[0].Lon())
	assert.Equal(t, "Mérignac (16)", got[1].Label)
}

func TestSuggestUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Suggest(context.Background(), "Bordeaux")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestSuggestCollapsesConcurrentQueries(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = w.Write([]byte(merignac))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	var wg sync.WaitGroup
	results := make([][]Suggestion, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Suggest(context.Background(), "Mérignac")
		}(i)
	}
	// let every goroutine join the in-flight call before the server answers
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	for _, r := range results {
		assert.Len(t, r, 2)
	}
}

func TestSuggestCallerCancelDoesNotFailOthers(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = w.Write([]byte(merignac))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Suggest(ctx, "Mérignac")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan []Suggestion, 1)
	go func() {
		got, err := c.Suggest(context.Background(), "Mérignac")
		assert.NoError(t, err)
		second <- got
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)
	assert.Len(t, <-second, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
