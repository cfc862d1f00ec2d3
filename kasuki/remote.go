package kasuki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	userAgent = "kasuki (https://github.com/ValgulNecron/kasuki)"

	// maxErrorBodyLength caps how much of a failed response body is kept
	// in the returned error
	maxErrorBodyLength = 512

	// maxResponseBodySize caps how much of a response body is read
	maxResponseBodySize = 16 << 20
)

// newHTTPClient returns the client used for outbound API requests
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doRequest sends a request with an optional JSON body and returns the
// response body. Transport failures and non-2xx responses are returned as
// ErrKindWebRequest errors.
func doRequest(
	ctx context.Context,
	client *http.Client,
	op string,
	method string,
	url string,
	body any,
	headers map[string]string,
) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		switch b := body.(type) {
		case []byte:
			bodyReader = bytes.NewReader(b)
		default:
			data, err := json.Marshal(body)
			if err != nil {
				return nil, newError(ErrKindDecode, op, fmt.Errorf("error encoding request: %w", err))
			}
			bodyReader = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, newError(ErrKindWebRequest, op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, newError(ErrKindWebRequest, op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, newError(ErrKindWebRequest, op, fmt.Errorf("error reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(
			ErrKindWebRequest,
			op,
			&StatusError{
				StatusCode: resp.StatusCode,
				Body:       truncate(string(respBody), maxErrorBodyLength),
			},
		)
	}
	return respBody, nil
}

// StatusError is a non-2xx response from a remote API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// decodeJSON unmarshals data into dst, returning an ErrKindDecode error
// on failure
func decodeJSON(op string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return newError(ErrKindDecode, op, err)
	}
	return nil
}
