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
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// LocalAppSource implements oauth2.TokenSource for
// OAuth2 client apps that have the client app
// credentials (Client ID and Secret) available
// locally. The OAuth2 provider is accessed directly
// using the OAuth2Config field value.
//
// LocalAppSource instances can be ephemeral.
type LocalAppSource struct {
	// OAuth2Config is the OAuth2 configuration.
	OAuth2Config *oauth2.Config

	// AuthCodeGetter is how the auth code
	// is obtained. If not set, a default
	// oauth2client.Prompt is used.
	AuthCodeGetter Getter

	// AuthCodeOptions are added to the authorization
	// URL; some providers want extra parameters.
	AuthCodeOptions []oauth2.AuthCodeOption

	// HTTPClient is used for token requests. If nil,
	// a client with a modest timeout is used.
	HTTPClient *http.Client
}

// InitialToken obtains a token using s.OAuth2Config
// and s.AuthCodeGetter.
func (s LocalAppSource) InitialToken(ctx context.Context) (*oauth2.Token, error) {
	if s.OAuth2Config == nil {
		return nil, errors.New("missing OAuth2Config")
	}

	if s.AuthCodeGetter == nil {
		s.AuthCodeGetter = Prompt{}
	}

	info := AuthCodeExchangeInfo(s.OAuth2Config, s.AuthCodeOptions...)

	code, err := s.AuthCodeGetter.Get(ctx, info.State, info.AuthCodeURL)
	if err != nil {
		return nil, fmt.Errorf("getting code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNoCode
	}

	tkn, err := s.OAuth2Config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return tkn, nil
}

// TokenSource returns a token source for s which
// refreshes tkn when it expires.
func (s LocalAppSource) TokenSource(ctx context.Context, tkn *oauth2.Token) oauth2.TokenSource {
	return s.OAuth2Config.TokenSource(s.clientContext(ctx), tkn)
}

func (s LocalAppSource) clientContext(ctx context.Context) context.Context {
	client := s.HTTPClient
	if client == nil {
		client = httpClient
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

var _ App = LocalAppSource{}
