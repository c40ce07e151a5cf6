package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `{
  "name": "demo",
  "seed": 1,
  "hosts": [
    {"id": "h1", "cores": 2, "clock_rate_hz": 3000000000, "ram_bytes": 1000000, "storage_bytes": 1000000, "ingress_bps": 1000000, "egress_bps": 1000000}
  ],
  "links": [],
  "service_chains": [
    {
      "name": "chain-a",
      "arrival_rate_hz": 50,
      "functions": [
        {"name": "svc.handle", "instructions": 1000, "cpi": 1.0, "cpu_request_millicores": 500, "cpu_limit_millicores": 500}
      ],
      "edges": []
    }
  ],
  "replicas": [
    {"id": "svc-1", "microservice": "svc", "cpu_request_millicores": 500, "cpu_limit_millicores": 500, "ram_bytes": 1000}
  ],
  "affinity": []
}`

func writeScenario(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ValidDocument(t *testing.T) {
	path := writeScenario(t, validScenario)

	doc, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "demo", doc.Name)
	assert.Len(t, doc.Hosts, 1)
	assert.Len(t, doc.ServiceChains, 1)
}

func TestLoad_UnknownField_Rejected(t *testing.T) {
	path := writeScenario(t, `{"name": "demo", "bogus_field": true}`)

	_, err := Load(path)

	assert.Error(t, err)
}

func TestBuild_ConstructsClusterChainsAndReplicas(t *testing.T) {
	path := writeScenario(t, validScenario)
	doc, err := Load(path)
	require.NoError(t, err)

	built, err := Build(doc)

	require.NoError(t, err)
	assert.Len(t, built.Cluster.Hosts, 1)
	assert.Len(t, built.Chains, 1)
	assert.Len(t, built.Replicas, 1)
	assert.Equal(t, float64(50), built.Rates["chain-a"])
	assert.Contains(t, built.Profiles, "svc.handle")
}

func TestBuild_NoHosts_ReturnsError(t *testing.T) {
	path := writeScenario(t, `{"name": "empty", "hosts": []}`)
	doc, err := Load(path)
	require.NoError(t, err)

	_, err = Build(doc)

	assert.Error(t, err)
}

func TestBuild_ZeroCores_ReturnsError(t *testing.T) {
	path := writeScenario(t, `{"name": "bad", "hosts": [{"id": "h1", "cores": 0}]}`)
	doc, err := Load(path)
	require.NoError(t, err)

	_, err = Build(doc)

	assert.Error(t, err)
}

func TestBuild_AffinityRulesetWiresAllThreeFields(t *testing.T) {
	path := writeScenario(t, `{
		"name": "affinity",
		"hosts": [{"id": "h1", "cores": 1}, {"id": "h2", "cores": 1}],
		"affinity": [
			{"microservice": "front", "hosts": ["h1"], "affinity_microservices": ["cache"], "anti_affinity_hosts": ["h2"]}
		]
	}`)
	doc, err := Load(path)
	require.NoError(t, err)

	built, err := Build(doc)

	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, built.Affinity.AffinityHosts["front"])
	assert.Equal(t, []string{"cache"}, built.Affinity.AffinityMicroservices["front"])
	assert.Equal(t, []string{"h2"}, built.Affinity.AntiAffinityHosts["front"])
}

func TestBuild_UnknownLinkHost_ReturnsError(t *testing.T) {
	path := writeScenario(t, `{
		"name": "bad-link",
		"hosts": [{"id": "h1", "cores": 1}],
		"links": [{"id": "l1", "from": "h1", "to": "ghost", "latency_ns": 10, "bandwidth_bps": 100}]
	}`)
	doc, err := Load(path)
	require.NoError(t, err)

	_, err = Build(doc)

	assert.Error(t, err)
}
