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
	"errors"
	"strings"
	"testing"
)

func TestParseCodeInput(t *testing.T) {
	for i, test := range []struct {
		input     string
		state     string
		expect    string
		expectErr bool
	}{
		{input: "abc123", expect: "abc123"},
		{input: "  abc123 \n", expect: "abc123"},
		{input: "http://localhost/?state=xyz&code=abc123&scope=read,activity:read_all", state: "xyz", expect: "abc123"},
		{input: "http://localhost/exchange_token?code=abc123&scope=read", state: "xyz", expect: "abc123"},
		{input: "state=xyz&code=abc123", state: "xyz", expect: "abc123"},
		{input: "?code=abc123", expect: "abc123"},
		{input: "http://localhost/?state=wrong&code=abc123", state: "xyz", expectErr: true},
		{input: "http://localhost/?state=xyz&error=access_denied", state: "xyz", expectErr: true},
		{input: "http://localhost/?code=", expectErr: true},
		{input: "", expectErr: true},
		{input: "   \n", expectErr: true},
	} {
		actual, err := parseCodeInput(test.input, test.state)
		if test.expectErr {
			if err == nil {
				t.Errorf("Test %d: Expected error, got code %q", i, actual)
			}
			continue
		}
		if err != nil {
			t.Errorf("Test %d: Unexpected error: %v", i, err)
			continue
		}
		if actual != test.expect {
			t.Errorf("Test %d: Expected %q, got %q", i, test.expect, actual)
		}
	}
}

func TestPromptGet(t *testing.T) {
	var out bytes.Buffer
	p := Prompt{
		In:  strings.NewReader("the-code\n"),
		Out: &out,
	}
	code, err := p.Get(context.Background(), "state", "https://example.com/authorize?state=state")
	if err != nil {
		t.Fatal(err)
	}
	if code != "the-code" {
		t.Errorf("Expected 'the-code', got %q", code)
	}
	if !strings.Contains(out.String(), "https://example.com/authorize?state=state") {
		t.Errorf("Expected the authorization URL to be printed, got: %s", out.String())
	}
}

func TestPromptGetEmpty(t *testing.T) {
	p := Prompt{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	if _, err := p.Get(context.Background(), "", "https://example.com"); !errors.Is(err, ErrNoCode) {
		t.Errorf("Expected ErrNoCode, got %v", err)
	}
}

func TestAuthCodeExchangeInfo(t *testing.T) {
	a := AuthCodeExchangeInfo(testConfig())
	b := AuthCodeExchangeInfo(testConfig())
	if a.State == "" || a.State == b.State {
		t.Errorf("Expected distinct, non-empty states; got %q and %q", a.State, b.State)
	}
	if !strings.Contains(a.AuthCodeURL, "state="+a.State) {
		t.Errorf("Expected state in URL %q", a.AuthCodeURL)
	}
}
