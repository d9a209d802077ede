package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/migrations"
)

const tuitionYAML = `
- support_type: tuition
  display_name: Tuition support
  eligibility_rules:
    min_academic_level: primary
    max_age: 25
  amount_config:
    - academic_level: primary
      min_amount: 10000
      max_amount: 40000
      default_amount: 25000
      currency: NGN
      frequency: termly
      school_type_multipliers:
        private: 1.5
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&env{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tuitionYAML), 0o600))
	return path
}

func TestResolveScalesPrivateSchoolAmounts(t *testing.T) {
	out, err := execute(t, "resolve", "--config", writeConfig(t), "--type", "tuition", "--level", "primary", "--school", "private", "--age", "10")
	require.NoError(t, err)

	var got models.EligibilityResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Eligible)
	assert.Equal(t, int64(15000), got.MinAmount)
	assert.Equal(t, int64(60000), got.MaxAmount)
	assert.Equal(t, int64(37500), got.DefaultAmount)
	assert.Equal(t, "NGN", got.Currency)
}

func TestResolveReportsReasons(t *testing.T) {
	out, err := execute(t, "resolve", "--config", writeConfig(t), "--type", "tuition", "--level", "primary", "--school", "public", "--age", "30")
	require.NoError(t, err)

	var got models.EligibilityResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.Eligible)
	assert.Contains(t, got.Reasons, "age 30 is above maximum 25")
	assert.Zero(t, got.MaxAmount)
}

func TestResolveUnknownSupportType(t *testing.T) {
	_, err := execute(t, "resolve", "--config", writeConfig(t), "--type", "transport", "--level", "primary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `support type "transport" not found`)
}

func TestResolveRequiresFlags(t *testing.T) {
	_, err := execute(t, "resolve", "--type", "tuition")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestMigrateListPrintsEmbeddedFiles(t *testing.T) {
	out, err := execute(t, "migrate", "--list")
	require.NoError(t, err)

	names, err := migrations.Names()
	require.NoError(t, err)
	assert.Equal(t, names, strings.Fields(out))
}

func TestSeedRequiresFile(t *testing.T) {
	_, err := execute(t, "seed")
	require.Error(t, err)

	_, err = execute(t, "seed", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read seed file")
}
