package diskapi

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// ErrConnectivity marks network-level failures. Always retryable by the
	// caller on the next scheduled pass.
	ErrConnectivity = errors.New("diskapi: connectivity error")

	// ErrUnauthorized marks an invalid credential. Not retryable without
	// operator intervention.
	ErrUnauthorized = errors.New("diskapi: invalid api token")

	// ErrFolderNotFound marks a missing remote folder or object.
	ErrFolderNotFound = errors.New("diskapi: folder not found")

	// ErrNoTransferURL is returned when the capability negotiation response
	// carries no href.
	ErrNoTransferURL = errors.New("diskapi: no transfer url in response")
)

// Error codes returned by the disk API in error bodies.
const (
	codeDiskNotFound = "DiskNotFoundError"
	codeUnauthorized = "UnauthorizedError"
)

// APIError is the JSON error body returned by the disk API.
type APIError struct {
	Code        string `json:"error"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// wrapAPIError maps the common request outcome into the error taxonomy:
// transport failures become ErrConnectivity, recognized API error codes
// become their sentinels, anything else surfaces as the raw APIError.
func wrapAPIError(resp *req.Response, requestErr error, op string) error {
	if requestErr != nil {
		return fmt.Errorf("%s: %w (%v)", op, ErrConnectivity, requestErr)
	}

	if !resp.IsErrorState() {
		return nil
	}

	if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr.Code != "" {
		switch apiErr.Code {
		case codeDiskNotFound:
			return fmt.Errorf("%s: %s: %w", op, apiErr.Message, ErrFolderNotFound)
		case codeUnauthorized:
			return fmt.Errorf("%s: %w", op, ErrUnauthorized)
		default:
			return fmt.Errorf("%s: %w", op, apiErr)
		}
	}

	if resp.GetStatusCode() == 401 {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	return fmt.Errorf("%s: unexpected status %s", op, resp.GetStatus())
}
