package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const regionsJSON5 = `{
  regions: [
    {
      id: "au-nsw-sydney",
      name: "Sydney",
      queries: ["public showers Sydney"],
      terms: ["outdoor shower"],
      localities: ["Bondi"],
      scope: { center: { lat: -33.8688, lng: 151.2093 }, radiusMeters: 25000 },
    },
    {
      id: "au-qld-gold-coast",
      name: "Gold Coast",
      queries: ["beach showers Gold Coast"],
    },
  ],
}`

func writeRegions(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.json5")
	require.NoError(t, os.WriteFile(path, []byte(regionsJSON5), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		regionsFile, dataDir, concurrency = "", "", 0
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPlanCommandPrintsQueries(t *testing.T) {
	out, err := execute(t, "plan", "--regions", writeRegions(t))
	require.NoError(t, err)

	assert.Contains(t, out, "public showers Sydney")
	assert.Contains(t, out, "outdoor shower in Bondi")
	assert.Contains(t, out, "-33.86880,151.20930")
	assert.Contains(t, out, "beach showers Gold Coast")
}

func TestPlanCommandSelectsRegionByName(t *testing.T) {
	out, err := execute(t, "plan", "gold coast", "--regions", writeRegions(t))
	require.NoError(t, err)

	assert.Contains(t, out, "beach showers Gold Coast")
	assert.NotContains(t, out, "public showers Sydney")
}

func TestUnknownRegionIsAnError(t *testing.T) {
	_, err := execute(t, "plan", "perth", "--regions", writeRegions(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "perth")
}

func TestMissingRegionsFileIsAnError(t *testing.T) {
	_, err := execute(t, "plan", "--regions", filepath.Join(t.TempDir(), "nope.json5"))
	require.Error(t, err)
}

func TestStatusCommand(t *testing.T) {
	regions := writeRegions(t)
	dir := t.TempDir()

	out, err := execute(t, "status", "--regions", regions, "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "au-nsw-sydney")
	assert.Contains(t, out, "never")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "au-qld-gold-coast.json"), []byte("{"), 0o644))
	_, err = execute(t, "status", "--regions", regions, "--data-dir", dir)
	require.ErrorIs(t, err, errUnreadableDataset)
}

func TestExecuteContextReturnsError(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"plan", "perth", "--regions", writeRegions(t)})
	t.Cleanup(func() {
		regionsFile, dataDir, concurrency = "", "", 0
	})

	err := ExecuteContext(context.Background())
	require.Error(t, err, "the caller decides the exit status")
	assert.Contains(t, err.Error(), "perth")
}
