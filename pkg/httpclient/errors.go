package httpclient

import (
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
)

// ParseResponseError reads the body of a non-2xx response from an external
// provider and translates it into an AppError. The response body is fully
// consumed and closed.
func ParseResponseError(resp *http.Response, providerName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", providerName, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(providerName, string(bodyBytes))
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.InvalidInput(fmt.Sprintf("%s: %s", providerName, string(bodyBytes)))
	case resp.StatusCode >= 500:
		return apperrors.GatewayUnavailable(fmt.Sprintf("%s returned status %d", providerName, resp.StatusCode))
	default:
		return fmt.Errorf("%s returned status %d: %s", providerName, resp.StatusCode, string(bodyBytes))
	}
}

// IsClientError reports whether status is a 4xx. Client errors should not be
// retried or trip the breaker; the request itself was invalid.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
