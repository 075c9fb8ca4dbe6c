package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:5555"

	assert.Equal(t, "198.51.100.4", getClientIP(req, true))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req, true))
	assert.Equal(t, "198.51.100.4", getClientIP(req, false))

	req.Header.Set("X-Forwarded-For", "not-an-ip")
	assert.Equal(t, "198.51.100.4", getClientIP(req, true))
}

func TestReadRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/add?zone=a&secret=q", strings.NewReader(`{"zone":"b","n":3,"ok":true,"obj":{}}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	parsed, err := readRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "b", parsed.params.Get("zone"))
	assert.Equal(t, "q", parsed.params.Get("secret"))
	assert.Equal(t, "3", parsed.params.Get("n"))
	assert.Equal(t, "true", parsed.params.Get("ok"))
	assert.Empty(t, parsed.params.Get("obj"))
	assert.Equal(t, `{"zone":"b","n":3,"ok":true,"obj":{}}`, string(parsed.body))
}

func TestReadRequest_TooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(strings.Repeat("a", maxBodyBytes+1)))
	_, err := readRequest(req)
	assert.Error(t, err)
}
