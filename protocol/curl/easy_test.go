package curl_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sagernet/sing-slist/common/buf"
	E "github.com/sagernet/sing-slist/common/exceptions"
	"github.com/sagernet/sing-slist/common/header"
	"github.com/sagernet/sing-slist/protocol/curl"
	"github.com/sagernet/sing-slist/protocol/curl/slist"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, values := range r.Header {
			for _, value := range values {
				w.Header().Add("Echo-"+key, value)
			}
		}
		w.Header().Set("Echo-Method", r.Method)
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEasyPerform(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	for _, mode := range []slist.Mode{slist.Copy, slist.Retain} {
		alloc := buf.NewTrackedAllocator(nil, buf.TrackedOptions{Poison: true})
		library := slist.New(slist.Options{Mode: mode})
		easy := curl.NewEasy(curl.Options{
			Library:   library,
			Allocator: alloc,
			Timeout:   5 * time.Second,
		})
		response, err := easy.Perform(context.Background(), curl.Request{
			URL: server.URL,
			Headers: []header.Entry{
				{Key: "Content-Type", Value: "application/json"},
				{Key: "X-Trace", Value: "a"},
				{Key: "X-Trace", Value: "b"},
			},
			Body: []byte(`{"ok":true}`),
		})
		require.NoError(t, err, mode.String())
		require.Equal(t, http.StatusAccepted, response.StatusCode)
		require.Equal(t, "POST", response.Header.Get("Echo-Method"))
		require.Equal(t, "application/json", response.Header.Get("Echo-Content-Type"))
		require.Equal(t, []string{"a", "b"}, response.Header.Values("Echo-X-Trace"))
		require.Equal(t, curl.DefaultUserAgent, response.Header.Get("Echo-User-Agent"))
		require.Equal(t, `{"ok":true}`, string(response.Body))

		require.Equal(t, 3, alloc.Puts())
		require.Zero(t, alloc.Outstanding())
		require.Zero(t, library.Outstanding())
	}
}

func TestEasyHeaderForms(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	easy := curl.NewEasy(curl.Options{
		Headers: http.Header{
			"User-Agent": {curl.DefaultUserAgent},
			"X-Default":  {"yes"},
			"X-Keep":     {"kept"},
		},
	})
	response, err := easy.Perform(context.Background(), curl.Request{
		Method: http.MethodGet,
		URL:    server.URL,
		Headers: []header.Entry{
			{Key: "User-Agent", Value: "custom/2.0"},
			{Key: "X-Default"},
			{Key: "X-Empty", Empty: true},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "GET", response.Header.Get("Echo-Method"))
	require.Equal(t, "custom/2.0", response.Header.Get("Echo-User-Agent"))
	require.Empty(t, response.Header.Values("Echo-X-Default"))
	require.Equal(t, "kept", response.Header.Get("Echo-X-Keep"))
	require.Empty(t, response.Header.Get("Echo-X-Empty"))
	_, sent := response.Header[http.CanonicalHeaderKey("Echo-X-Empty")]
	require.True(t, sent)
}

func TestEasyRemovesClientDefaults(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	easy := curl.NewEasy(curl.Options{})
	response, err := easy.Perform(context.Background(), curl.Request{
		URL: server.URL,
		Headers: []header.Entry{
			{Key: "User-Agent"},
			{Key: "Content-Type", Value: "application/json"},
			{Key: "Accept"},
		},
		Body: []byte(`{}`),
	})
	require.NoError(t, err)
	require.Empty(t, response.Header.Values("Echo-User-Agent"))
	require.Empty(t, response.Header.Values("Echo-Accept"))
	require.Equal(t, "application/json", response.Header.Get("Echo-Content-Type"))
}

func TestEasyEmptyAccept(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	easy := curl.NewEasy(curl.Options{})
	response, err := easy.Perform(context.Background(), curl.Request{
		URL: server.URL,
		Headers: []header.Entry{
			{Key: "Content-Type", Value: "application/json"},
			{Key: "Accept", Empty: true},
		},
		Body: []byte(`{}`),
	})
	require.NoError(t, err)
	require.Equal(t, []string{""}, response.Header.Values("Echo-Accept"))
}

func TestEasyTimeout(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	alloc := buf.NewTrackedAllocator(nil, buf.TrackedOptions{})
	client := resty.New()
	easy := curl.NewEasy(curl.Options{
		Allocator: alloc,
		Client:    client,
		Timeout:   50 * time.Millisecond,
	})
	_, err := easy.Perform(context.Background(), curl.Request{URL: server.URL, Headers: threeHeaders()})
	require.Error(t, err)
	require.True(t, E.IsTimeout(err))
	require.Zero(t, client.GetClient().Timeout)
	require.Zero(t, alloc.Outstanding())
}

func TestEasyTransferError(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	url := server.URL
	server.Close()

	alloc := buf.NewTrackedAllocator(nil, buf.TrackedOptions{})
	library := slist.New(slist.Options{})
	easy := curl.NewEasy(curl.Options{Library: library, Allocator: alloc})
	_, err := easy.Perform(context.Background(), curl.Request{
		URL:     url,
		Headers: threeHeaders(),
	})
	require.Error(t, err)
	require.Equal(t, 3, alloc.Puts())
	require.Zero(t, alloc.Outstanding())
	require.Zero(t, library.Outstanding())
}

func TestEasyBuildError(t *testing.T) {
	t.Parallel()
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	alloc := buf.NewTrackedAllocator(nil, buf.TrackedOptions{})
	library := slist.New(slist.Options{FailAppend: failOnCall(2)})
	easy := curl.NewEasy(curl.Options{Library: library, Allocator: alloc})
	_, err := easy.Perform(context.Background(), curl.Request{
		URL:     server.URL,
		Headers: threeHeaders(),
	})
	require.ErrorIs(t, err, curl.ErrForeignAppendFailed)
	require.False(t, called)
	require.Equal(t, 2, alloc.Puts())
	require.Zero(t, library.Outstanding())
}

func TestEasyContextCanceled(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alloc := buf.NewTrackedAllocator(nil, buf.TrackedOptions{})
	easy := curl.NewEasy(curl.Options{Allocator: alloc})
	_, err := easy.Perform(ctx, curl.Request{URL: server.URL, Headers: threeHeaders()})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, alloc.Outstanding())
}
