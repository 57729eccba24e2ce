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

// Package oauth2client implements the pieces of a three-legged OAuth2
// flow that a local, single-user application needs: building the
// authorization URL, obtaining the code from the user, and exchanging it.
package oauth2client

import (
	"context"
	"errors"
	mathrand "math/rand"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Getter is a type that can get an OAuth2 auth code.
// It must enforce that the state parameter of the
// redirected request matches expectedStateVal, when
// the state is available to it.
type Getter interface {
	Get(ctx context.Context, expectedStateVal, authCodeURL string) (code string, err error)
}

// ErrNoCode is returned by getters when the user did not
// provide an authorization code.
var ErrNoCode = errors.New("no authorization code provided")

// AuthCodeExchangeInfo generates a state value, along with the
// assembled URL for a request to get an authorization code.
// Any extra options are added to the URL's query string.
func AuthCodeExchangeInfo(cfg *oauth2.Config, opts ...oauth2.AuthCodeOption) CodeExchangeInfo {
	const stateValLength = 14
	state := randString(stateValLength)

	return CodeExchangeInfo{
		State:       state,
		AuthCodeURL: cfg.AuthCodeURL(state, opts...),
	}
}

// randString is not safe for cryptographic use.
func randString(n int) string {
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[mathrand.Intn(len(letterBytes))] //nolint:gosec // the whole point is that it's not crypto-safe, it's fine
	}
	return string(b)
}

type (
	// CodeExchangeInfo holds information for obtaining an auth code.
	CodeExchangeInfo struct {
		State       string `json:"state"`
		AuthCodeURL string `json:"auth_code_url"` // fully-assembled URL
	}

	// App provides a way to get an initial OAuth2 token
	// as well as a continuing token source.
	App interface {
		InitialToken(ctx context.Context) (*oauth2.Token, error)
		TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource
	}
)

// httpClient is the HTTP client to use for OAuth2 requests.
var httpClient = &http.Client{
	Timeout: 10 * time.Second,
}

// DefaultRedirectURL is the default URL to
// which to redirect clients after a code
// has been obtained. Redirect URLs may
// have to be registered with your OAuth2
// provider.
const DefaultRedirectURL = "http://localhost:8008/oauth2-redirect"
