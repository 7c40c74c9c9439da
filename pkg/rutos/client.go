package rutos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rutosms/internal/errors"
	"rutosms/pkg/rutos/types"

	"github.com/sirupsen/logrus"
)

// Client is the SMS management surface of the RUTOS cgi-bin API.
type Client interface {
	ListMessages(ctx context.Context) ([]types.Message, error)
	SendMessage(ctx context.Context, number, text string) (*types.SendResult, error)
	SendGroupMessage(ctx context.Context, group, text string) (*types.SendResult, error)
	DeleteMessage(ctx context.Context, index string) (*types.DeleteResult, error)
	CountMessages(ctx context.Context) (int, error)
}

// HTTPClient talks to the router's legacy cgi-bin SMS endpoints. The API is
// plain GET with credentials as query parameters; calls are stateless and
// safe to issue concurrently, subject to whatever serialization the router
// firmware itself applies.
type HTTPClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	logger   *logrus.Logger
}

// NewClient creates a router API client for http://<host>:<port>/cgi-bin/.
func NewClient(host string, port int, username, password string, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &HTTPClient{
		baseURL:  fmt.Sprintf("http://%s:%d/cgi-bin/", host, port),
		username: username,
		password: password,
		client:   httpClient,
		logger:   logger,
	}
}

// ListMessages fetches and parses the router's message store.
func (c *HTTPClient) ListMessages(ctx context.Context) ([]types.Message, error) {
	body, err := c.get(ctx, "sms_list", url.Values{})
	if err != nil {
		return nil, err
	}

	messages := parseMessageList(body)
	c.logger.WithFields(logrus.Fields{
		"lines":    len(strings.Split(body, "\n")),
		"messages": len(messages),
	}).Debug("Fetched message list")

	return messages, nil
}

// SendMessage sends an SMS to a single number. The number is passed to the
// router verbatim; the caller owns its format.
func (c *HTTPClient) SendMessage(ctx context.Context, number, text string) (*types.SendResult, error) {
	params := url.Values{}
	params.Set("number", number)
	params.Set("text", text)

	body, err := c.get(ctx, "sms_send", params)
	if err != nil {
		return nil, err
	}

	return &types.SendResult{Raw: body, Success: isOK(body)}, nil
}

// SendGroupMessage sends an SMS to a phone group configured on the router.
func (c *HTTPClient) SendGroupMessage(ctx context.Context, group, text string) (*types.SendResult, error) {
	params := url.Values{}
	params.Set("group", group)
	params.Set("text", text)

	body, err := c.get(ctx, "sms_send", params)
	if err != nil {
		return nil, err
	}

	return &types.SendResult{Raw: body, Success: isOK(body)}, nil
}

// DeleteMessage deletes a message from the router store by index. The
// sms_delete endpoint names its index parameter "number".
func (c *HTTPClient) DeleteMessage(ctx context.Context, index string) (*types.DeleteResult, error) {
	params := url.Values{}
	params.Set("number", index)

	body, err := c.get(ctx, "sms_delete", params)
	if err != nil {
		return nil, err
	}

	return &types.DeleteResult{Raw: body, Success: isOK(body)}, nil
}

// CountMessages returns the total number of messages in the router store.
func (c *HTTPClient) CountMessages(ctx context.Context) (int, error) {
	body, err := c.get(ctx, "sms_total", url.Values{})
	if err != nil {
		return 0, err
	}

	total, convErr := strconv.Atoi(strings.TrimSpace(body))
	if convErr != nil {
		return 0, errors.Wrap(convErr, errors.ErrCodeRouterParse, "unexpected sms_total response").
			WithContext("body", strings.TrimSpace(body))
	}

	return total, nil
}

// get issues one cgi-bin request with credentials attached and returns the
// response body.
func (c *HTTPClient) get(ctx context.Context, endpoint string, params url.Values) (string, error) {
	params.Set("username", c.username)
	params.Set("password", c.password)

	requestURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternalError, "failed to create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.WrapRetryable(err, errors.ErrCodeRouterAPI, fmt.Sprintf("%s request failed", endpoint))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.WrapRetryable(err, errors.ErrCodeRouterAPI, fmt.Sprintf("failed to read %s response", endpoint))
	}
	body := string(bodyBytes)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", errors.New(errors.ErrCodeRouterAuth, fmt.Sprintf("router rejected credentials on %s", endpoint))
	case resp.StatusCode != http.StatusOK:
		return "", errors.WrapRetryable(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(body)),
			errors.ErrCodeRouterAPI,
			fmt.Sprintf("%s returned error status", endpoint),
		)
	case isAuthFailure(body):
		// Older firmware answers 200 with an error line on bad credentials.
		return "", errors.New(errors.ErrCodeRouterAuth, fmt.Sprintf("router rejected credentials on %s", endpoint))
	}

	return body, nil
}

// isOK reports whether a router response body indicates success. The router
// answers action endpoints with a short status line such as "OK" or
// "Deleted"; anything else is an error description.
func isOK(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "OK") || strings.HasPrefix(trimmed, "Deleted")
}

func isAuthFailure(body string) bool {
	return strings.Contains(strings.ToLower(body), "wrong username or password")
}
