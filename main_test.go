package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		resetFlags(rootCmd.PersistentFlags())
		resetFlags(checkCmd.Flags())
		resetFlags(serveCmd.Flags())
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func writeTree(t *testing.T, files ...string) string {
	t.Helper()

	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
	}
	return root
}

func TestListCommand(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photo1.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024", "photo2.json"), []byte("{}"), 0o644))

	out, err := runRoot(t, "--root", root, "--base-url", "https://example.org/")
	require.NoError(t, err)
	assert.Equal(t, "<pre>https://example.org/2024/photo2.json\nhttps://example.org/photo1.json\n</pre>", out)
}

func TestListCommandMissingRoot(t *testing.T) {
	out, err := runRoot(t, "--root", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory not found")
	assert.Empty(t, out)
}

func TestValidation(t *testing.T) {
	assert.Error(t, validation("", defaultBaseURL))
	assert.Error(t, validation("/srv/uploads", ""))
	assert.NoError(t, validation("/srv/uploads", defaultBaseURL))
}

func TestListCommandRootFromEnv(t *testing.T) {
	root := writeTree(t, "a.json", "sub/c.json", "b.txt")
	t.Setenv("UPLOAD_INDEX_ROOT", root)

	out, err := runRoot(t, "--base-url", "https://example.org/")
	require.NoError(t, err)
	assert.Equal(t, "<pre>https://example.org/a.json\nhttps://example.org/sub/c.json\n</pre>", out)
}

func newUploadServer(t *testing.T, served ...string) *httptest.Server {
	t.Helper()

	known := make(map[string]bool, len(served))
	for _, s := range served {
		known[s] = true
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && known[r.URL.Path] {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckCommand(t *testing.T) {
	root := writeTree(t, "ep #1.json", "what?.json", "2024/a b.json")
	srv := newUploadServer(t, "/ep #1.json", "/what?.json", "/2024/a b.json")

	out, err := runRoot(t, "check", "--root", root, "--base-url", srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "all 3 URLs reachable\n", out)
}

func TestCheckCommandReportsFailures(t *testing.T) {
	root := writeTree(t, "ok.json", "gone.json")
	srv := newUploadServer(t, "/ok.json")

	out, err := runRoot(t, "check", "--root", root, "--base-url", srv.URL+"/", "--timeout", "2s")
	require.Error(t, err)
	assert.EqualError(t, err, "1 of 2 URLs failed")
	assert.Contains(t, out, srv.URL+"/gone.json\tunexpected status 404")
	assert.NotContains(t, out, "ok.json")
}
