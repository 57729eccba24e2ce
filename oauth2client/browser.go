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
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Browser gets an OAuth2 code via the web browser: it listens
// on the loopback redirect address and waits for the provider
// to redirect the browser back with the code.
type Browser struct {
	// RedirectURL is the URL to redirect the browser
	// to after the code is obtained; it is usually a
	// loopback address. If empty, DefaultRedirectURL
	// will be used instead. It must match the redirect
	// URL in the OAuth2 config.
	RedirectURL string

	// Out receives the link when the browser cannot
	// be opened. Defaults to stdout.
	Out io.Writer

	// NoOpen disables launching the system browser;
	// the link is only printed.
	NoOpen bool
}

// Get opens a browser window to authCodeURL for the user to
// authorize the application, and it returns the resulting
// OAuth2 code. It rejects requests where the "state" param
// does not match expectedStateVal.
func (b Browser) Get(ctx context.Context, expectedStateVal, authCodeURL string) (string, error) {
	redirURLStr := b.RedirectURL
	if redirURLStr == "" {
		redirURLStr = DefaultRedirectURL
	}
	redirURL, err := url.Parse(redirURLStr)
	if err != nil {
		return "", err
	}
	redirPath := redirURL.Path
	if redirPath == "" {
		redirPath = "/"
	}
	out := b.Out
	if out == nil {
		out = os.Stdout
	}

	ln, err := net.Listen("tcp", listenAddr(redirURL))
	if err != nil {
		return "", err
	}
	defer ln.Close()

	ch := make(chan string, 1)
	errCh := make(chan error, 1)

	handler := func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		code := r.FormValue("code")

		if errParam := r.FormValue("error"); errParam != "" {
			http.Error(w, "Authorization was not granted", http.StatusForbidden)
			errCh <- fmt.Errorf("provider returned error: %s", errParam)
			return
		}

		if r.Method != http.MethodGet || r.URL.Path != redirPath || code == "" {
			http.Error(w, "This endpoint is for OAuth2 callbacks only", http.StatusNotFound)
			return
		}

		if state != expectedStateVal {
			http.Error(w, "invalid state", http.StatusUnauthorized)
			errCh <- fmt.Errorf("invalid OAuth2 state; expected '%s' but got '%s'",
				expectedStateVal, state)
			return
		}

		fmt.Fprint(w, successBody)
		ch <- code
	}

	// must disable keep-alives, otherwise repeated calls to
	// this method can block indefinitely in some weird bug
	srv := &http.Server{Handler: http.HandlerFunc(handler)}
	srv.SetKeepAlivesEnabled(false)
	go srv.Serve(ln) //nolint:errcheck // returns when closed below
	defer srv.Close()

	if b.NoOpen {
		fmt.Fprintf(out, "Please follow this link to authorize: %s\n", authCodeURL)
	} else if err := openBrowser(authCodeURL); err != nil {
		fmt.Fprintf(out, "Can't open browser: %s.\nPlease follow this link: %s\n", err, authCodeURL)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case code := <-ch:
		return code, nil
	case err := <-errCh:
		return "", err
	}
}

// listenAddr returns the host:port to listen on for u,
// filling in the scheme's default port.
func listenAddr(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// openBrowser opens the browser to url.
func openBrowser(url string) error {
	osCommand := map[string][]string{
		"darwin":  {"open"},
		"freebsd": {"xdg-open"},
		"linux":   {"xdg-open"},
		"netbsd":  {"xdg-open"},
		"openbsd": {"xdg-open"},
		"windows": {"cmd", "/c", "start"},
	}

	if runtime.GOOS == "windows" {
		// escape characters not allowed by cmd
		url = strings.ReplaceAll(url, "&", `^&`)
	}

	all, ok := osCommand[runtime.GOOS]
	if !ok {
		return fmt.Errorf("don't know how to open a browser on %s", runtime.GOOS)
	}
	exe := all[0]
	args := all[1:]

	buf := new(bytes.Buffer)

	cmd := exec.Command(exe, append(args, url)...)
	cmd.Stdout = buf
	cmd.Stderr = buf
	err := cmd.Run()

	if err != nil {
		return fmt.Errorf("%w: %s", err, buf.String())
	}

	return nil
}

const successBody = `<!DOCTYPE html>
<html>
	<head>
		<title>OAuth2 Success</title>
		<meta charset="utf-8">
		<style>
			body { text-align: center; padding: 5%; font-family: sans-serif; }
			h1 { font-size: 20px; }
			p { font-size: 16px; color: #444; }
		</style>
	</head>
	<body>
		<h1>Code obtained, thank you!</h1>
		<p>
			You may now close this page and return to the terminal.
		</p>
	</body>
</html>
`

var _ Getter = Browser{}
