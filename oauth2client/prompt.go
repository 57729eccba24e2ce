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

package oauth2client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Prompt gets an OAuth2 code by printing the authorization
// URL and reading the code the user pastes back in. This
// works when the redirect URL does not point at anything
// that is listening (e.g. plain "http://localhost"): the user
// copies the code out of the browser's address bar.
//
// The pasted input may be the bare code or the whole
// redirected URL; in the latter case the state is checked.
type Prompt struct {
	In  io.Reader // defaults to stdin
	Out io.Writer // defaults to stdout
}

// Get prints instructions for authCodeURL and blocks until a
// line of input is read.
func (p Prompt) Get(ctx context.Context, expectedStateVal, authCodeURL string) (string, error) {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintln(out, "\n--- Please Authorize This Application ---")
	fmt.Fprintln(out, "1. Go to this URL in your browser:")
	fmt.Fprintf(out, "\n   %s\n\n", authCodeURL)
	fmt.Fprintln(out, "2. Authorize the application (you may need to check a box to grant activity access).")
	fmt.Fprintln(out, "3. You will be redirected to a 'localhost' page. Copy the 'code' from the URL in your browser's address bar.")
	fmt.Fprint(out, "\n4. Paste the 'code' (or the whole URL) here and press Enter: ")

	// reading is not interruptible, but don't start if already canceled
	if err := ctx.Err(); err != nil {
		return "", err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading code: %w", err)
	}

	return parseCodeInput(line, expectedStateVal)
}

// parseCodeInput extracts the code from what the user typed.
func parseCodeInput(input, expectedStateVal string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNoCode
	}

	if !strings.Contains(input, "code=") && !strings.Contains(input, "error=") {
		return input, nil
	}

	// looks like a redirect URL or its query string
	rawQuery := input
	if u, err := url.Parse(input); err == nil && u.RawQuery != "" {
		rawQuery = u.RawQuery
	} else if i := strings.Index(input, "?"); i >= 0 {
		rawQuery = input[i+1:]
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parsing pasted URL: %w", err)
	}
	if errParam := q.Get("error"); errParam != "" {
		return "", fmt.Errorf("provider returned error: %s", errParam)
	}
	if state := q.Get("state"); state != "" && expectedStateVal != "" && state != expectedStateVal {
		return "", fmt.Errorf("invalid OAuth2 state; expected '%s' but got '%s'", expectedStateVal, state)
	}
	code := q.Get("code")
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}

var _ Getter = Prompt{}
