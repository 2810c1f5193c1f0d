package sources

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrInvalidToken is returned when a provider rejects the configured credentials.
var ErrInvalidToken = errors.New("invalid or expired provider credentials")

// StatusError is returned for any non-2xx provider response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// CheckResponse maps a non-2xx response to an error. 401 becomes
// ErrInvalidToken wrapped together with the StatusError.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
	if statusErr.Status == "" {
		statusErr.Status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrInvalidToken, statusErr)
	}
	return statusErr
}
