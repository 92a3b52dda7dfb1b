package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrorCodeMissingHeader            = "missing_header"
	ErrorCodeInvalidHeader            = "invalid_header"
	ErrorCodeInvalidToken             = "invalid_token"
	ErrorCodeTokenExpired             = "token_expired"
	ErrorCodeIssuerOrAudienceMismatch = "issuer_or_audience_mismatch"
	ErrorCodeUserNotFound             = "user_not_found"
	ErrorCodeInvalidCredentials       = "invalid_credentials"
	ErrorCodeInvalidRequest           = "invalid_request"
	ErrorCodeConflict                 = "conflict"
	ErrorCodeForbidden                = "forbidden"
	ErrorCodeRateLimitExceeded        = "rate_limit_exceeded"
	ErrorCodeInternal                 = "internal_error"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// parseErrorResponse turns an error response into an *APIError. Returns nil
// for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeInternal,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
