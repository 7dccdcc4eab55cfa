package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// ReadBody reads up to 1 MB of the response body and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body (status %d): %w", resp.StatusCode, err)
	}
	return body, nil
}

// DecodeObject parses a JSON object body. Anything that is not a JSON object
// (empty body, HTML error page, array) yields an empty map and an error.
func DecodeObject(body []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(body) == 0 {
		return out, fmt.Errorf("decode response body: empty body")
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return map[string]any{}, fmt.Errorf("decode response body: %w", err)
	}
	if out == nil {
		return map[string]any{}, fmt.Errorf("decode response body: null body")
	}
	return out, nil
}

// IsSuccess returns true for 2xx status codes.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
