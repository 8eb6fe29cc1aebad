package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferrocp/pkg/ferrocp"
)

func TestParseOverwritePolicy(t *testing.T) {
	assert.Equal(t, ferrocp.Never, parseOverwritePolicy("never"))
	assert.Equal(t, ferrocp.Always, parseOverwritePolicy("always"))
	assert.Equal(t, ferrocp.IfNewer, parseOverwritePolicy("if-newer"))
	assert.Equal(t, ferrocp.IfNewer, parseOverwritePolicy("not-a-real-policy"))
}

func TestModeLabel(t *testing.T) {
	assert.Equal(t, "copy", modeLabel(ferrocp.Copy))
	assert.Equal(t, "move", modeLabel(ferrocp.Move))
	assert.Equal(t, "sync", modeLabel(ferrocp.Sync))
	assert.Equal(t, "verify", modeLabel(ferrocp.Verify))
}

func TestCopyCommandEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "dst")
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello world"), 0o644))

	root := rootCmd
	root.SetArgs([]string{"copy", srcDir, dstDir, "--overwrite", "always"})

	err := root.Execute()
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dstDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestCopyCommandWritesJSONReport(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "dst")
	reportPath := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("data"), 0o644))

	root := rootCmd
	root.SetArgs([]string{"copy", srcDir, dstDir, "--overwrite", "always", "--json-report", reportPath})

	require.NoError(t, root.Execute())

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"copy_stats"`)
	assert.Contains(t, string(data), `"result"`)
}

func TestVerifyCommandDetectsMismatch(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("aaaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "a.txt"), []byte("bbbb"), 0o644))

	root := rootCmd
	root.SetArgs([]string{"verify", srcDir, dstDir})

	err := root.Execute()
	assert.Error(t, err)
}

func TestDeviceCommandPrintsProfile(t *testing.T) {
	root := rootCmd
	root.SetArgs([]string{"device", t.TempDir()})
	require.NoError(t, root.Execute())
}
