package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snitchgen/internal/cache"
	"snitchgen/internal/category"
	"snitchgen/internal/server"
)

func newTestServer(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()

	dir := t.TempDir()
	write := func(id, severity, domain string) {
		content := "name = \"" + id + "\"\ndescription = \"test category\"\nseverity = \"" + severity +
			"\"\nimpact = \"none\"\n\n[[rules]]\nnotes = \"test\"\ndomains = [\"" + domain + "\"]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, id+".toml"), []byte(content), 0o644))
	}
	write("apple-telemetry", "minimal", "metrics.apple.com")
	write("google-telemetry", "minimal", "app-measurement.com")
	write("icloud", "aggressive", "setup.icloud.com")

	store, err := category.Load(dir)
	require.NoError(t, err)

	logger := log.New(io.Discard)
	srv := server.New(store, cache.New(time.Minute), logger)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(server.LoggingMiddleware(logger, mux))
	t.Cleanup(ts.Close)

	return srv, ts
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHandleCategories(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/categories")
	require.Equal(t, http.StatusOK, status)

	var index []struct {
		ID        string `json:"id"`
		Severity  string `json:"severity"`
		RuleCount int    `json:"rule_count"`
	}
	require.NoError(t, json.Unmarshal(body, &index))
	require.Len(t, index, 3)

	assert.Equal(t, "apple-telemetry", index[0].ID)
	assert.Equal(t, "google-telemetry", index[1].ID)
	assert.Equal(t, "icloud", index[2].ID)
	assert.Equal(t, "aggressive", index[2].Severity)
	assert.Equal(t, 1, index[0].RuleCount)
}

func TestHandleRulesBlock(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/rules?all=true")
	require.Equal(t, http.StatusOK, status)

	var doc struct {
		Name  string `json:"name"`
		Rules []struct {
			Action        string   `json:"action"`
			RemoteDomains []string `json:"remote-domains"`
		} `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))

	// Default severity ceiling is recommended: icloud stays out.
	require.Len(t, doc.Rules, 2)
	assert.Equal(t, "deny", doc.Rules[0].Action)
	assert.Equal(t, []string{"metrics.apple.com"}, doc.Rules[0].RemoteDomains)
	assert.Equal(t, []string{"app-measurement.com"}, doc.Rules[1].RemoteDomains)
}

func TestHandleRulesAllow(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/rules?mode=allow&include=*-telemetry&name=My+Rules")
	require.Equal(t, http.StatusOK, status)

	var doc struct {
		Name  string `json:"name"`
		Rules []struct {
			Action string `json:"action"`
			Remote string `json:"remote"`
		} `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))

	assert.Equal(t, "My Rules", doc.Name)
	require.Len(t, doc.Rules, 3)
	assert.Equal(t, "allow", doc.Rules[0].Action)
	assert.Equal(t, "allow", doc.Rules[1].Action)
	assert.Equal(t, "deny", doc.Rules[2].Action)
	assert.Equal(t, "any", doc.Rules[2].Remote)
}

func TestHandleRulesCached(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)

	status, first := get(t, ts.URL+"/rules?all=true&severity=aggressive")
	require.Equal(t, http.StatusOK, status)

	status, second := get(t, ts.URL+"/rules?all=true&severity=aggressive")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first, second)
}

func TestHandleRulesBadParams(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t)

	tcs := map[string]string{
		"bad mode":     "/rules?mode=observe",
		"bad severity": "/rules?severity=extreme",
		"bad pattern":  "/rules?include=%5Bbroken",
	}

	for name, path := range tcs {
		status, _ := get(t, ts.URL+path)
		assert.Equal(t, http.StatusBadRequest, status, name)
	}
}

func TestSwap(t *testing.T) {
	t.Parallel()

	srv, ts := newTestServer(t)

	dir := t.TempDir()
	content := "name = \"Solo\"\ndescription = \"d\"\nseverity = \"minimal\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "solo.toml"), []byte(content), 0o644))

	fresh, err := category.Load(dir)
	require.NoError(t, err)
	srv.Swap(fresh)

	status, body := get(t, ts.URL+"/categories")
	require.Equal(t, http.StatusOK, status)

	var index []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &index))
	require.Len(t, index, 1)
	assert.Equal(t, "solo", index[0].ID)
}
