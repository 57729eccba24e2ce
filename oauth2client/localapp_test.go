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
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func testConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost",
		Scopes:       []string{"read"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://example.com/oauth/authorize",
			TokenURL:  "https://example.com/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

type getterFunc func(ctx context.Context, state, authURL string) (string, error)

func (f getterFunc) Get(ctx context.Context, state, authURL string) (string, error) {
	return f(ctx, state, authURL)
}

func TestLocalAppSourceInitialToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := r.FormValue("code"); code != "the-code" {
			t.Errorf("Expected code 'the-code', got %q", code)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"a","refresh_token":"r","token_type":"Bearer","expires_in":3600,"expires_at":1700000000}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Endpoint.TokenURL = srv.URL

	src := LocalAppSource{
		OAuth2Config: cfg,
		AuthCodeGetter: getterFunc(func(_ context.Context, state, _ string) (string, error) {
			if state == "" {
				t.Error("Expected a state value")
			}
			return " the-code\n", nil
		}),
		HTTPClient: srv.Client(),
	}

	tkn, err := src.InitialToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tkn.AccessToken != "a" || tkn.RefreshToken != "r" {
		t.Errorf("Unexpected token: %+v", tkn)
	}
	if v, ok := tkn.Extra("expires_at").(float64); !ok || v != 1700000000 {
		t.Errorf("Expected expires_at extra field, got %v", tkn.Extra("expires_at"))
	}
}

func TestLocalAppSourceNoCode(t *testing.T) {
	src := LocalAppSource{
		OAuth2Config: testConfig(),
		AuthCodeGetter: getterFunc(func(context.Context, string, string) (string, error) {
			return "", nil
		}),
	}
	if _, err := src.InitialToken(context.Background()); !errors.Is(err, ErrNoCode) {
		t.Errorf("Expected ErrNoCode, got %v", err)
	}
}

// notifyWriter signals once something has been written.
type notifyWriter chan struct{}

func (w notifyWriter) Write(p []byte) (int, error) {
	select {
	case w <- struct{}{}:
	default:
	}
	return len(p), nil
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().String()
}

func TestBrowserGet(t *testing.T) {
	for i, test := range []struct {
		query     string
		expect    string
		expectErr bool
	}{
		{query: "state=s1&code=c1", expect: "c1"},
		{query: "state=wrong&code=c1", expectErr: true},
		{query: "state=s1&error=access_denied", expectErr: true},
	} {
		addr := freeAddr(t)
		ready := make(notifyWriter, 1)
		b := Browser{
			RedirectURL: "http://" + addr + "/cb",
			Out:         ready,
			NoOpen:      true,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		done := make(chan struct{})
		go func() {
			defer close(done)
			select {
			case <-ready:
			case <-ctx.Done():
				return
			}
			// the listener may close before the response is read
			resp, err := http.Get("http://" + addr + "/cb?" + test.query)
			if err != nil {
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		code, err := b.Get(ctx, "s1", "https://example.com/authorize")
		cancel()
		<-done

		if test.expectErr {
			if err == nil {
				t.Errorf("Test %d: Expected error, got code %q", i, code)
			}
			continue
		}
		if err != nil {
			t.Errorf("Test %d: Unexpected error: %v", i, err)
			continue
		}
		if code != test.expect {
			t.Errorf("Test %d: Expected code %q, got %q", i, test.expect, code)
		}
	}
}
