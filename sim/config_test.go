package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAffinityRuleset_Allows_NilAllowsEverything(t *testing.T) {
	var a *AffinityRuleset
	assert.True(t, a.Allows("svc", HostSnapshot{ID: "h1"}))
}

func TestAffinityRuleset_Allows_AffinityHostsRestrictsToAllowList(t *testing.T) {
	a := &AffinityRuleset{AffinityHosts: map[string][]string{"svc": {"h1"}}}
	assert.True(t, a.Allows("svc", HostSnapshot{ID: "h1"}))
	assert.False(t, a.Allows("svc", HostSnapshot{ID: "h2"}))
	assert.True(t, a.Allows("other", HostSnapshot{ID: "h2"})) // no rule for "other"
}

func TestAffinityRuleset_Allows_AntiAffinityHostsExcludesRegardlessOfAllowList(t *testing.T) {
	a := &AffinityRuleset{
		AffinityHosts:     map[string][]string{"svc": {"h1", "h2"}},
		AntiAffinityHosts: map[string][]string{"svc": {"h1"}},
	}
	assert.False(t, a.Allows("svc", HostSnapshot{ID: "h1"}))
	assert.True(t, a.Allows("svc", HostSnapshot{ID: "h2"}))
}

func TestAffinityRuleset_Allows_AffinityMicroservicesRequiresCoLocation(t *testing.T) {
	a := &AffinityRuleset{AffinityMicroservices: map[string][]string{"front": {"cache"}}}

	assert.True(t, a.Allows("front", HostSnapshot{ID: "h1", Microservices: []string{"cache"}}))
	assert.False(t, a.Allows("front", HostSnapshot{ID: "h2", Microservices: []string{"db"}}))
	// An empty host has nothing to co-locate with yet, so it's not excluded.
	assert.True(t, a.Allows("front", HostSnapshot{ID: "h3"}))
}
