package rutos

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"rutosms/internal/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(serverURL.Port())
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	return NewClient(serverURL.Hostname(), port, "admin", "secret", server.Client(), logger)
}

func TestHTTPClient_ListMessages(t *testing.T) {
	var gotPath string
	var gotQuery url.Values

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("Index: 1\nDate: Wed Dec 28 17:19:31 2022\nSender: 123\nText: hi\nStatus: read\n"))
	})

	messages, err := client.ListMessages(context.Background())

	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "1", messages[0].Index)
	assert.Equal(t, "/cgi-bin/sms_list", gotPath)
	assert.Equal(t, "admin", gotQuery.Get("username"))
	assert.Equal(t, "secret", gotQuery.Get("password"))
}

func TestHTTPClient_SendMessage(t *testing.T) {
	var gotQuery url.Values

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi-bin/sms_send", r.URL.Path)
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("OK\n"))
	})

	result, err := client.SendMessage(context.Background(), "0049170000000", "hello world")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "OK\n", result.Raw)
	assert.Equal(t, "0049170000000", gotQuery.Get("number"))
	assert.Equal(t, "hello world", gotQuery.Get("text"))
	assert.Empty(t, gotQuery.Get("group"))
}

func TestHTTPClient_SendGroupMessage(t *testing.T) {
	var gotQuery url.Values

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("OK"))
	})

	result, err := client.SendGroupMessage(context.Background(), "family", "dinner at 7")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "family", gotQuery.Get("group"))
	assert.Empty(t, gotQuery.Get("number"))
}

func TestHTTPClient_SendMessageFailureBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ERROR: no signal"))
	})

	result, err := client.SendMessage(context.Background(), "123", "x")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Raw, "no signal")
}

func TestHTTPClient_DeleteMessage(t *testing.T) {
	var gotQuery url.Values

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi-bin/sms_delete", r.URL.Path)
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("Deleted"))
	})

	result, err := client.DeleteMessage(context.Background(), "4")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "4", gotQuery.Get("number"))
}

func TestHTTPClient_CountMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi-bin/sms_total", r.URL.Path)
		_, _ = w.Write([]byte("12\n"))
	})

	total, err := client.CountMessages(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 12, total)
}

func TestHTTPClient_CountMessagesParseError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a number"))
	})

	_, err := client.CountMessages(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRouterParse, errors.GetCode(err))
}

func TestHTTPClient_AuthErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.ListMessages(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRouterAuth, errors.GetCode(err))
	assert.False(t, errors.IsRetryable(err))
}

func TestHTTPClient_AuthErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Wrong username or password!"))
	})

	_, err := client.ListMessages(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRouterAuth, errors.GetCode(err))
}

func TestHTTPClient_ServerErrorIsRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	})

	_, err := client.ListMessages(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRouterAPI, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))
	assert.True(t, strings.Contains(err.Error(), "sms_list"))
}

func TestHTTPClient_NetworkErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(serverURL.Port())
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	client := NewClient(serverURL.Hostname(), port, "admin", "secret", nil, logger)

	_, err = client.ListMessages(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}
