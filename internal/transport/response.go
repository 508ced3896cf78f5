package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/logging"
)

// maxErrorBody caps how much of an error response is kept in APIError.
const maxErrorBody = 4096

// DecodeResponse checks the status code and decodes a JSON body into target.
// When no expected status is given, 200 OK is expected. A nil target only
// checks the status.
func DecodeResponse(resp *http.Response, target any, expected ...int) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	if len(expected) == 0 {
		expected = []int{http.StatusOK}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.URL.Redacted()
	}

	if !statusIn(resp.StatusCode, expected) {
		message := strings.TrimSpace(string(body))
		if len(message) > maxErrorBody {
			message = message[:maxErrorBody]
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return errors.NewAPIError(endpoint, resp.StatusCode, message)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}

func statusIn(status int, expected []int) bool {
	for _, s := range expected {
		if s == status {
			return true
		}
	}
	return false
}
