package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type cli struct {
	api *http.ServeMux
	url string
	db  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"accessToken":"T1","refreshToken":"R1","user":{"id":"U1","Company_id":"C1","name":"Ada","email":"ada@example.com","role":"admin"}}`)
	})

	return &cli{api: mux, url: srv.URL, db: filepath.Join(t.TempDir(), "credentials.db")}
}

func (c *cli) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-api", c.url, "-db", c.db, "-format", "table"}, args...)
	err := run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (c *cli) login(t *testing.T) {
	t.Helper()
	_, _, err := c.run(t, "login", "-email", "ada@example.com", "-password", "secret")
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &stdout, io.Discard))
	require.Equal(t, "agentctl dev\n", stdout.String())
}

func TestUnknownCommand(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run(t, "frobnicate")
	require.ErrorContains(t, err, `unknown command "frobnicate"`)
}

func TestHelpFlag(t *testing.T) {
	err := run(context.Background(), []string{"-h"}, io.Discard, io.Discard)
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestLoginPersistsIdentity(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "login", "-email", "ada@example.com", "-password", "secret")
	require.NoError(t, err)
	require.Equal(t, "Logged in as Ada (ada@example.com)\n", out)

	out, _, err = c.run(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "USER")
	require.Contains(t, out, "U1")
	require.Contains(t, out, "C1")
}

func TestLoginPasswordFromEnv(t *testing.T) {
	c := newCLI(t)
	t.Setenv("AGENTDESK_PASSWORD", "secret")

	_, _, err := c.run(t, "login", "-email", "ada@example.com")
	require.NoError(t, err)
}

func TestLoginRejected(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run(t, "login", "-email", "ada@example.com", "-password", "wrong")
	require.EqualError(t, err, "Invalid credentials")

	_, _, err = c.run(t, "whoami")
	require.EqualError(t, err, `User not logged in. Run "agentctl login".`)
}

func TestLogoutForgetsCredentials(t *testing.T) {
	c := newCLI(t)
	var revoked string
	c.api.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		revoked = body["token"]
		w.WriteHeader(http.StatusNoContent)
	})
	c.login(t)

	out, _, err := c.run(t, "logout")
	require.NoError(t, err)
	require.Equal(t, "Logged out\n", out)
	require.Equal(t, "R1", revoked)

	_, _, err = c.run(t, "whoami")
	require.ErrorContains(t, err, "User not logged in.")
}

func TestAgentsListsActiveOnly(t *testing.T) {
	c := newCLI(t)
	c.api.HandleFunc("GET /agents", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[
			{"_id":"A1","name":"Helpdesk","title":"Support","status":"active"},
			{"_id":"A2","name":"Retired","status":"inactive"}
		]`)
	})
	c.login(t)

	out, _, err := c.run(t, "-format", "quiet", "agents")
	require.NoError(t, err)
	require.Equal(t, "A1\n", out)
}

func TestQueriesEmpty(t *testing.T) {
	c := newCLI(t)
	c.api.HandleFunc("GET /customersupportqueries/purchasedagent/P1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	c.login(t)

	out, _, err := c.run(t, "queries", "P1")
	require.NoError(t, err)
	require.Contains(t, out, "No queries yet")
	require.Contains(t, out, "up to 5 sample queries")
}

func TestQueryRemoveFailureKeepsList(t *testing.T) {
	c := newCLI(t)
	c.api.HandleFunc("GET /customersupportqueries/purchasedagent/P1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"_id":"Q1","query":"How do I reset my password?"}]`)
	})
	c.api.HandleFunc("DELETE /customersupportqueries/Q1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Query not found"}`)
	})
	c.login(t)

	_, _, err := c.run(t, "query-rm", "P1", "Q1")
	require.EqualError(t, err, "Failed to delete query: Query not found")
}

func TestQueryAddWithTrailingFlag(t *testing.T) {
	c := newCLI(t)
	c.api.HandleFunc("GET /customersupportqueries/purchasedagent/P1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	var got map[string]string
	c.api.HandleFunc("POST /customersupportqueries", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"_id":"Q9","query":"Where is my invoice?"}`)
	})
	c.login(t)

	out, stderr, err := c.run(t, "query-add", "P1", "Where", "is", "my", "invoice?", "-agent", "A1")
	require.NoError(t, err)
	require.Equal(t, "Where is my invoice?", got["query"])
	require.Equal(t, "A1", got["agent_id"])
	require.Equal(t, "C1", got["company_id"])
	require.Equal(t, "P1", got["purchased_agent_id"])
	require.Contains(t, out, "Q9")
	require.Equal(t, "Query added successfully\n", stderr)
}

func TestPurchaseRejectsPeriodOnFreePlan(t *testing.T) {
	c := newCLI(t)
	c.login(t)

	_, _, err := c.run(t, "purchase", "A1", "-period", "60")
	require.ErrorContains(t, err, "fixed 30 day period")
}

func TestPurchaseEnterprise(t *testing.T) {
	c := newCLI(t)
	c.api.HandleFunc("GET /agents", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"_id":"A1","name":"Helpdesk","status":"active"}]`)
	})
	var got map[string]any
	c.api.HandleFunc("POST /purchasedagents/withacount", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"_id":"P1","agent_id":"A1","company_id":"C1"}`)
	})
	c.login(t)

	_, stderr, err := c.run(t, "purchase", "A1", "-plan", "enterprise", "-period", "90")
	require.NoError(t, err)
	require.Equal(t, "enterprise", got["plan"])
	require.Equal(t, "10.00", got["amount"])
	require.EqualValues(t, 90, got["period"])
	require.Equal(t, "C1", got["company_id"])
	require.Contains(t, stderr, "Helpdesk")
}

func TestUploadRequiresConsent(t *testing.T) {
	c := newCLI(t)
	c.api.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("document uploaded without consent")
	})
	c.login(t)

	path := filepath.Join(t.TempDir(), "guide.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%test\n"), 0o600))

	_, _, err := c.run(t, "upload", path)
	require.ErrorContains(t, err, "-consent")
}

func TestUploadRejectsNonPDF(t *testing.T) {
	c := newCLI(t)
	c.login(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, _, err := c.run(t, "upload", path, "-consent")
	require.ErrorContains(t, err, "Please upload a PDF file")
}

func TestParseArgsInterleaved(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	n := fs.Int("n", 0, "")
	v := fs.Bool("v", false, "")

	pos, err := parseArgs(fs, []string{"a", "-n", "3", "b", "-v", "c"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, pos)
	require.Equal(t, 3, *n)
	require.True(t, *v)
}

func TestCellTruncates(t *testing.T) {
	require.Equal(t, "-", cell("  "))
	require.Equal(t, "a b", cell("a\n  b"))
	long := cell(strings.Repeat("x", 80))
	require.Len(t, long, 60)
	require.True(t, strings.HasSuffix(long, "..."))
}

func TestRefreshStoresNewPair(t *testing.T) {
	c := newCLI(t)
	c.api.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "R1", body["token"])
		_, _ = io.WriteString(w, `{"accessToken":"T2","refreshToken":"R2"}`)
	})
	var auth string
	c.api.HandleFunc("GET /company", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[]`)
	})
	c.login(t)

	out, _, err := c.run(t, "refresh")
	require.NoError(t, err)
	require.Equal(t, "Session refreshed\n", out)

	_, _, err = c.run(t, "companies")
	require.NoError(t, err)
	require.Equal(t, "Bearer T2", auth)
}

func TestRefreshWithoutLogin(t *testing.T) {
	c := newCLI(t)
	c.api.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("refresh sent without a refresh token")
	})

	_, _, err := c.run(t, "refresh")
	require.EqualError(t, err, `Your session has expired. Please log in again. Run "agentctl login".`)
}

func TestGuestPurchaseSendsNoCredentials(t *testing.T) {
	c := newCLI(t)
	var auth string
	var got map[string]any
	c.api.HandleFunc("POST /purchasedagents", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"_id":"P7","agent_id":"A1","company_id":"C9"}`)
	})
	c.login(t)

	out, _, err := c.run(t, "purchase", "A1", "-guest", "-company", "C9")
	require.NoError(t, err)
	require.Empty(t, auth)
	require.Equal(t, "C9", got["company_id"])
	require.Equal(t, "free", got["plan"])
	require.Contains(t, out, "P7")
}

func TestGuestPurchaseNeedsCompany(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run(t, "purchase", "A1", "-guest")
	require.EqualError(t, err, "-guest needs -company")
}
