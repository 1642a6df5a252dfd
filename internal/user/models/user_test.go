package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleTierOrdering(t *testing.T) {
	assert.True(t, TierViewer < TierManager)
	assert.True(t, TierManager < TierAdmin)
}

func TestRoleAtLeast(t *testing.T) {
	cases := []struct {
		role     Role
		required Tier
		want     bool
	}{
		{RoleRoot, TierAdmin, true},
		{RoleRoot, TierManager, true},
		{RoleRoot, TierViewer, true},
		{RoleGestaoDados, TierAdmin, false},
		{RoleGestaoDados, TierManager, true},
		{RoleGestaoDados, TierViewer, true},
		{RoleVisualizacao, TierAdmin, false},
		{RoleVisualizacao, TierManager, false},
		{RoleVisualizacao, TierViewer, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.role.AtLeast(tc.required), "role %s tier %d", tc.role, tc.required)
	}
}

func TestUnknownRoleMapsToViewer(t *testing.T) {
	var r Role = "SUPERUSER"
	assert.False(t, r.Valid())
	assert.Equal(t, TierViewer, r.Tier())
	assert.False(t, r.AtLeast(TierManager))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleRoot.Valid())
	assert.True(t, RoleGestaoDados.Valid())
	assert.True(t, RoleVisualizacao.Valid())
	assert.False(t, Role("").Valid())
}
