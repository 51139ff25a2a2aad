package verify

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunfmin/mcp-code-runner/pkg/config"
	"github.com/sunfmin/mcp-code-runner/pkg/runner"
	"github.com/sunfmin/mcp-code-runner/pkg/smoke"
)

func TestCompareMatch(t *testing.T) {
	res, err := Compare(smoke.Expected(), smoke.Expected())
	require.NoError(t, err)
	assert.True(t, res.Match)
	assert.Empty(t, res.Diff)
}

func TestCompareMismatch(t *testing.T) {
	actual := strings.Replace(smoke.Expected(), "5 * 3 = 15", "5 * 3 = 16", 1)

	res, err := Compare(smoke.Expected(), actual)
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.Contains(t, res.Diff, "--- expected")
	assert.Contains(t, res.Diff, "+++ actual")
	assert.Contains(t, res.Diff, "-5 * 3 = 15")
	assert.Contains(t, res.Diff, "+5 * 3 = 16")
}

func TestCompareExtraOutput(t *testing.T) {
	res, err := Compare(smoke.Expected(), smoke.Expected()+"debug line\n")
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.Contains(t, res.Diff, "+debug line")
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

var pythonFixture = filepath.Join("..", "..", "testdata", "smoke", "test_hello.py")

func shellRunner(command string) *runner.Runner {
	cfg := config.Default()
	cfg.Shell = "sh"
	cfg.Commands["python"] = command
	return runner.New(cfg)
}

func TestSmokePass(t *testing.T) {
	requireShell(t)

	var printf strings.Builder
	printf.WriteString("printf '%s\\n'")
	for _, line := range smoke.Lines() {
		printf.WriteString(" '" + line + "'")
	}

	resp, err := Smoke(context.Background(), shellRunner(printf.String()), pythonFixture)
	require.NoError(t, err)
	assert.Equal(t, "pass", resp.Status)
	assert.True(t, resp.Match)
	assert.Empty(t, resp.Context.ErrorMessage)
}

func TestSmokeFailsOnMismatch(t *testing.T) {
	requireShell(t)

	resp, err := Smoke(context.Background(), shellRunner(`echo 'Hello from Python!'`), pythonFixture)
	require.NoError(t, err)
	assert.Equal(t, "fail", resp.Status)
	assert.False(t, resp.Match)
	assert.Contains(t, resp.Diff, "-Testing Python script execution.")
}

func TestSmokeFailsOnExitCode(t *testing.T) {
	requireShell(t)

	resp, err := Smoke(context.Background(), shellRunner(`exit 1`), pythonFixture)
	require.NoError(t, err)
	assert.Equal(t, "fail", resp.Status)
	assert.Equal(t, "program exited with status 1", resp.Context.ErrorMessage)
}

func TestSmokeRunError(t *testing.T) {
	_, err := Smoke(context.Background(), runner.New(nil), filepath.Join(t.TempDir(), "missing.py"))
	assert.ErrorIs(t, err, runner.ErrFileNotFound)
}

func TestSmokeHelloProgram(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping go run in short mode")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go not available")
	}

	resp, err := Smoke(context.Background(), runner.New(nil), filepath.Join("..", "..", DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, "pass", resp.Status, resp.Diff+resp.Run.Stderr)
}
