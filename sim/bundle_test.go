package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClusterBundle_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
placement:
  policy: least-fit
observers:
  - request-lifecycle
  - load-balance
`), 0o644))

	bundle, err := LoadClusterBundle(path)

	require.NoError(t, err)
	assert.Equal(t, "least-fit", bundle.Placement.Policy)
	assert.Equal(t, []string{"request-lifecycle", "load-balance"}, bundle.Observers)
	assert.NoError(t, bundle.Validate())
}

func TestLoadClusterBundle_UnknownField_Rejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
placement:
  policy: least-fit
typo_field: oops
`), 0o644))

	_, err := LoadClusterBundle(path)

	assert.Error(t, err)
}

func TestClusterBundle_Validate_UnknownPlacementPolicy(t *testing.T) {
	b := &ClusterBundle{Placement: PlacementConfig{Policy: "not-a-policy"}}
	assert.Error(t, b.Validate())
}

func TestClusterBundle_Validate_UnknownObserver(t *testing.T) {
	b := &ClusterBundle{Placement: PlacementConfig{Policy: "least-fit"}, Observers: []string{"nonsense"}}
	assert.Error(t, b.Validate())
}
