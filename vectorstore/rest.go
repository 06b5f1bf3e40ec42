package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// restClient is the shared plumbing for the HTTP-speaking backends.
type restClient struct {
	base    string
	headers map[string]string
	http    *http.Client
	log     *logger.Logger
}

func newRESTClient(base string, headers map[string]string, log *logger.Logger) *restClient {
	return &restClient{
		base:    strings.TrimRight(base, "/"),
		headers: headers,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// doJSON executes a request with an optional JSON body and decodes the JSON
// response into out when out is non-nil. Non-2xx statuses become errors that
// carry the response body.
func (c *restClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &httpStatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type httpStatusError struct {
	Status int
	Body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("request failed: status=%d, body=%s", e.Status, e.Body)
}

func isNotFound(err error) bool {
	var se *httpStatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}
