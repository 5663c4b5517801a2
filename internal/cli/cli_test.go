package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpln/gateway/internal/auth"
)

func run(t *testing.T, confirm ConfirmFunc, args ...string) (string, error) {
	t.Helper()
	if confirm == nil {
		confirm = func(string) (bool, error) {
			t.Fatal("unexpected confirmation prompt")
			return false, nil
		}
	}

	var out bytes.Buffer
	cmd := NewRootCmd("test", WithOutput(&out), WithConfirm(confirm))
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readLocal(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &data))
	return data
}

func TestKeygen_JSON(t *testing.T) {
	out, err := run(t, nil, "keygen", "--env", "test", "--format", "json")
	require.NoError(t, err)

	var got keygenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, strings.HasPrefix(got.Key, "ak_test_"))
	assert.True(t, auth.ValidateKeyFormat(got.Key))

	ok, err := auth.VerifySecret(got.Key, got.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeygen_InvalidEnv(t *testing.T) {
	_, err := run(t, nil, "keygen", "--env", "staging")
	assert.Error(t, err)
}

func TestPurgeLocal_Confirmed(t *testing.T) {
	path := writeLocal(t, `{"signals":"[1,2,3]","theme":"dark"}`)

	var asked string
	out, err := run(t, func(msg string) (bool, error) {
		asked = msg
		return true, nil
	}, "purge", "local", "--file", path)
	require.NoError(t, err)

	assert.Contains(t, asked, "signals")
	assert.Contains(t, out, "removed 3")

	data := readLocal(t, path)
	assert.NotContains(t, data, "signals")
	assert.Contains(t, data, "theme")
}

func TestPurgeLocal_Aborted(t *testing.T) {
	path := writeLocal(t, `{"signals":[1]}`)

	_, err := run(t, func(string) (bool, error) { return false, nil }, "purge", "local", "--file", path)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, readLocal(t, path), "signals")
}

func TestPurgeLocal_DryRunSkipsPrompt(t *testing.T) {
	path := writeLocal(t, `{"signals":[1,2]}`)

	out, err := run(t, nil, "purge", "local", "--file", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "2 found")
	assert.Contains(t, readLocal(t, path), "signals")
}

func TestPurgeLocal_RequiresFile(t *testing.T) {
	_, err := run(t, nil, "purge", "local", "--yes")
	assert.Error(t, err)
}

func TestTokenMint_Mock(t *testing.T) {
	out, err := run(t, nil, "token", "mint", "--user", "alice", "--mock")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "mock_token_alice_"))
}

func TestTokenMint_LiveVerify(t *testing.T) {
	t.Setenv("STREAM_TOKEN_MODE", "live")
	t.Setenv("STREAM_API_KEY", "key")
	t.Setenv("STREAM_API_SECRET", "secret")

	out, err := run(t, nil, "token", "mint", "--user", "alice", "--ttl", "1h", "--verify")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, 2, strings.Count(lines[0], "."), "expected a JWT")
	assert.Equal(t, "verified: signature ok, user alice", lines[1])
}

func TestTokenMint_VerifyRejectsMock(t *testing.T) {
	_, err := run(t, nil, "token", "mint", "--user", "alice", "--mock", "--verify")
	assert.Error(t, err)
}

func TestTokenMint_RequiresUser(t *testing.T) {
	_, err := run(t, nil, "token", "mint", "--mock")
	assert.Error(t, err)
}

func TestAssetsRewrite(t *testing.T) {
	dir := t.TempDir()
	dist := filepath.Join(dir, "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "index-abc.js"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "index-abc.css"), nil, 0o644))

	tmpl := filepath.Join(dir, "admin.html")
	html := `<script type="module" src="/assets/index-old.js"></script><link rel="stylesheet" href="/assets/index-old.css">`
	require.NoError(t, os.WriteFile(tmpl, []byte(html), 0o644))

	out, err := run(t, nil, "assets", "rewrite", "--dist", dist, "--template", tmpl)
	require.NoError(t, err)
	assert.Contains(t, out, "index-abc.js")

	written, err := os.ReadFile(filepath.Join(dist, "admin.html"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "/assets/index-abc.js")
	assert.Contains(t, string(written), "/assets/index-abc.css")
}

func TestAssetsRefs(t *testing.T) {
	page := filepath.Join(t.TempDir(), "admin.html")
	html := `<html><head><link rel="stylesheet" href="/assets/index-a.css"><link rel="icon" href="/favicon.ico"></head>` +
		`<body><script src="/assets/index-a.js"></script></body></html>`
	require.NoError(t, os.WriteFile(page, []byte(html), 0o644))

	out, err := run(t, nil, "assets", "refs", "--file", page)
	require.NoError(t, err)
	assert.Equal(t, "/assets/index-a.js\n/assets/index-a.css\n", out)
}
