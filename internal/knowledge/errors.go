package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUpstreamUnavailable is returned when the knowledge backend cannot be
// reached, times out, answers with a 5xx or sends an unreadable body.
// Callers may retry.
var ErrUpstreamUnavailable = errors.New("knowledge: upstream unavailable")

// StatusError is an upstream 4xx. The request itself was rejected, so
// retrying it unchanged will fail again.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("knowledge: upstream rejected request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("knowledge: upstream rejected request (status %d): %s", e.StatusCode, e.Detail)
}

const maxDetailBytes = 1 << 12

// checkStatus maps a non-2xx response to ErrUpstreamUnavailable or *StatusError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
	return &StatusError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
}

// errorDetail extracts {"detail": ...} from a backend error body, falling
// back to the raw text.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		return string(envelope.Detail)
	}
	return strings.TrimSpace(string(body))
}

// outcome labels an error for the upstream metrics.
func outcome(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return "rejected"
	default:
		return "unavailable"
	}
}
