/*
	Trailmark
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package activity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoActivities is returned when the account has no recorded
// activities. It is not a failure; callers should skip any work
// that needs an activity and exit cleanly.
var ErrNoActivities = errors.New("no activities found")

// ConfigurationError is returned when required settings are missing.
// It is always produced before any network or console interaction.
type ConfigurationError struct {
	Missing []string // names of the missing settings
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s (set them in the environment or in a .env file)",
		strings.Join(e.Missing, ", "))
}

// AuthorizationError is returned when the interactive authorization
// exchange fails. The operator has to start the flow over.
type AuthorizationError struct {
	Err error
}

func (e AuthorizationError) Error() string {
	if e.Err == nil {
		return "authorization failed"
	}
	return "authorization failed: " + e.Err.Error()
}

func (e AuthorizationError) Unwrap() error { return e.Err }

// StatusError describes an HTTP response from a remote service
// that did not indicate success.
type StatusError struct {
	URL        string // with secrets redacted
	StatusCode int
	Body       string // possibly truncated
}

func (e StatusError) Error() string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("HTTP %d", e.StatusCode))
	if e.URL != "" {
		msg.WriteString(" from " + e.URL)
	}
	if e.Body != "" {
		msg.WriteString(": " + e.Body)
	}
	return msg.String()
}

// maxErrorBody is how much of an error response body is kept.
const maxErrorBody = 2048

// NewStatusError builds a StatusError, truncating body to a
// reasonable size for logs.
func NewStatusError(url string, statusCode int, body []byte) StatusError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return StatusError{
		URL:        url,
		StatusCode: statusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
