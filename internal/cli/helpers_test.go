package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/aurarings/internal/sqlite"
	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// testEnv runs the CLI in-process against isolated config and data dirs.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("AURARING_LOG_LEVEL", "")
	t.Setenv("AURARING_USER", "")
	return &testEnv{t: t, configDir: t.TempDir(), dataDir: t.TempDir()}
}

// run executes auraring with the env's directories and optional stdin.
func (e *testEnv) runWithInput(stdin string, args ...string) result {
	e.t.Helper()
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	var out, errb bytes.Buffer
	code := run(context.Background(), full, strings.NewReader(stdin), &out, &errb)
	return result{code: code, stdout: out.String(), stderr: errb.String()}
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	return e.runWithInput("", args...)
}

// mustRun fails the test unless the command succeeds.
func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	res := e.run(args...)
	require.Equal(e.t, exitSuccess, res.code, "auraring %v: %s", args, res.stderr)
	return res
}

// decode parses JSON command output into T.
func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

// seedFlag writes a raw flag straight into the store, bypassing the CLI.
func (e *testEnv) seedFlag(tokenID, key string, value any) {
	e.t.Helper()
	b := sqlite.NewBackend()
	require.NoError(e.t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: e.dataDir}))
	defer func() { require.NoError(e.t, b.Detach()) }()

	doc, err := b.Document(context.Background(), tokenID)
	require.NoError(e.t, err)
	require.NoError(e.t, doc.SetFlag(context.Background(), types.Namespace, key, value))
}
