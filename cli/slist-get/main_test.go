package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sagernet/sing-slist/common/header"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		"headers": ["Accept: */*"],
		"method": "PUT",
		"timeout": "3s",
		"retain": true
	}`), 0o644))

	flags := &Flags{
		Headers:    []string{"X-Flag: 1"},
		Method:     "PATCH",
		ConfigFile: configPath,
	}
	require.NoError(t, LoadConfig(flags))
	require.Equal(t, []string{"Accept: */*", "X-Flag: 1"}, flags.Headers)
	require.Equal(t, "PATCH", flags.Method)
	require.Equal(t, "3s", flags.Timeout)
	require.True(t, flags.Retain)
}

func TestLoadConfigMissing(t *testing.T) {
	err := LoadConfig(&Flags{ConfigFile: filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorContains(t, err, "read config file")
}

func TestNewRequest(t *testing.T) {
	request, err := NewRequest(&Flags{
		Headers: []string{"Content-Type: text/plain", "X-Empty;"},
		Data:    "hello",
	}, "http://localhost")
	require.NoError(t, err)
	require.Equal(t, []header.Entry{
		{Key: "Content-Type", Value: "text/plain"},
		{Key: "X-Empty", Empty: true},
	}, request.Headers)
	require.Equal(t, []byte("hello"), request.Body)

	_, err = NewRequest(&Flags{Headers: []string{"broken"}}, "http://localhost")
	require.ErrorIs(t, err, header.ErrInvalidFormat)
}

func TestNewEasyBadTimeout(t *testing.T) {
	_, err := NewEasy(&Flags{Timeout: "soon"})
	require.ErrorContains(t, err, "parse timeout")
}

func TestMainCmd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Method + " " + r.Header.Get("X-Token")))
	}))
	defer server.Close()

	var output bytes.Buffer
	cmd := MainCmd()
	cmd.SetOut(&output)
	cmd.SetArgs([]string{"-X", "DELETE", "-H", "X-Token: secret", "--retain", server.URL})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "DELETE secret", output.String())
}
