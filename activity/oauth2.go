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
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/timelinize/trailmark/oauth2client"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Endpoint is Strava's OAuth2 endpoint. Strava wants the client
// credentials in the request body rather than in a header.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://www.strava.com/oauth/authorize",
	TokenURL:  "https://www.strava.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Scopes needed to read the athlete's activities, including
// private ones. Strava expects them comma-separated.
var Scopes = []string{"read,activity:read_all"}

// DefaultRedirectURL is the redirect registered for the
// copy-the-code-from-the-address-bar flow.
const DefaultRedirectURL = "http://localhost"

// RefreshListener is notified synchronously whenever the session
// obtains a new token on its own, so it can be persisted.
type RefreshListener interface {
	TokenRefreshed(Record) error
}

// RefreshFunc adapts a function to a RefreshListener.
type RefreshFunc func(Record) error

// TokenRefreshed calls f.
func (f RefreshFunc) TokenRefreshed(rec Record) error { return f(rec) }

// Provider produces authenticated sessions, running the interactive
// authorization exchange the first time and reusing the stored
// credentials afterward.
type Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string          // defaults to DefaultRedirectURL
	Endpoint     oauth2.Endpoint // defaults to Endpoint

	// Store is where the credential record lives.
	Store TokenFile

	// CodeGetter obtains the authorization code from the operator.
	// Defaults to an oauth2client.Prompt on stdin/stdout.
	CodeGetter oauth2client.Getter

	// Listener is notified when the session refreshes its token.
	// Defaults to Store, which overwrites the token file.
	Listener RefreshListener

	// HTTPClient is used for token requests; optional.
	HTTPClient *http.Client
}

// Session is an authenticated connection to Strava.
type Session struct {
	// HTTPClient authenticates every request, refreshing
	// the access token when it expires.
	HTTPClient *http.Client

	ts *persistedTokenSource
}

// Token returns the current, valid token of the session,
// refreshing it first if needed.
func (s *Session) Token() (*oauth2.Token, error) {
	return s.ts.Token()
}

// ObtainSession returns an authenticated session. Configuration is
// checked first; if the client ID or secret is missing, a
// ConfigurationError is returned before anything else happens.
// If no credentials are stored, the operator is asked to authorize
// the application; failures in that exchange are AuthorizationErrors.
func (p Provider) ObtainSession(ctx context.Context) (*Session, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	logger := Log.Named("auth")
	app := p.app()

	rec, ok, err := p.Store.Load()
	if err != nil {
		return nil, err
	}

	if ok {
		logger.Info("loaded stored token", zap.String("path", p.Store.path()))
		if rec.Expired(time.Now()) {
			logger.Info("stored access token has expired; it will be refreshed before first use",
				zap.Time("expired", time.Unix(rec.ExpiresAt, 0)))
		}
	} else {
		logger.Info("no stored token; starting one-time authorization flow")

		tkn, err := app.InitialToken(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, AuthorizationError{Err: err}
		}
		rec = RecordFromToken(tkn)
		if err := p.Store.Save(rec); err != nil {
			return nil, fmt.Errorf("saving new token: %w", err)
		}
		logger.Info("authorization successful")
	}

	listener := p.Listener
	if listener == nil {
		listener = p.Store
	}

	tkn := rec.Token()
	pts := &persistedTokenSource{
		ts:       app.TokenSource(ctx, tkn),
		listener: listener,
		token:    tkn,
	}

	return &Session{
		HTTPClient: oauth2.NewClient(ctx, pts),
		ts:         pts,
	}, nil
}

func (p Provider) validate() error {
	var missing []string
	if p.ClientID == "" {
		missing = append(missing, "STRAVA_CLIENT_ID")
	}
	if p.ClientSecret == "" {
		missing = append(missing, "STRAVA_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return ConfigurationError{Missing: missing}
	}
	return nil
}

func (p Provider) app() oauth2client.LocalAppSource {
	endpoint := p.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = Endpoint
	}
	redirect := p.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	return oauth2client.LocalAppSource{
		OAuth2Config: &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirect,
			Scopes:       Scopes,
		},
		AuthCodeGetter: p.CodeGetter,
		AuthCodeOptions: []oauth2.AuthCodeOption{
			oauth2.SetAuthURLParam("approval_prompt", "auto"),
		},
		HTTPClient: p.HTTPClient,
	}
}

// persistedTokenSource wraps a TokenSource and reports any
// change of the token to a listener, which persists it.
type persistedTokenSource struct {
	mu       sync.Mutex
	ts       oauth2.TokenSource
	listener RefreshListener
	token    *oauth2.Token
}

func (ps *persistedTokenSource) Token() (*oauth2.Token, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	tkn, err := ps.ts.Token()
	if err != nil {
		return tkn, err
	}

	if ps.token == nil || tkn.AccessToken != ps.token.AccessToken {
		ps.token = tkn

		Log.Named("auth").Info("access token was refreshed")

		if err := ps.listener.TokenRefreshed(RecordFromToken(tkn)); err != nil {
			return nil, fmt.Errorf("storing refreshed OAuth2 token: %w", err)
		}
	}

	return tkn, nil
}
