package godbolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client submits compilation requests to a remote Compiler Explorer
// instance. Every request kind goes through the same compile endpoint;
// the options block selects what the service does with it.
type Client interface {
	Compile(ctx context.Context, compilerID string, req *Request) (*Response, error)
}

type client struct {
	log        logrus.FieldLogger
	baseURL    string
	httpClient *http.Client
}

var _ Client = (*client)(nil)

// NewClient creates a Client for the service rooted at baseURL, e.g.
// "https://godbolt.org/api/compiler".
func NewClient(log logrus.FieldLogger, baseURL string, timeout time.Duration) Client {
	return &client{
		log:     log.WithField("component", "godbolt_client"),
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Compile POSTs req to {base}/{compilerID}/compile and decodes the reply.
func (c *client) Compile(ctx context.Context, compilerID string, req *Request) (*Response, error) {
	url := fmt.Sprintf("%s/%s/compile", c.baseURL, compilerID)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"compiler": compilerID,
		"bytes":    len(body),
	}).Debug("submitting compile request")

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submitting request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &decoded, nil
}
