package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecks(t *testing.T) {
	free := &Principal{UserID: "u2", Plan: "free", Roles: []string{"user"}, Addons: []string{"stats"}}
	pro := &Principal{UserID: "u1", Plan: "pro", Roles: []string{"admin"}, Addons: []string{"all"}}

	tests := []struct {
		name      string
		principal *Principal
		checks    []Check
		wantCode  Code
	}{
		{"no checks", free, nil, ""},
		{"plan matches", pro, []Check{RequirePlan("pro")}, ""},
		{"plan mismatch", free, []Check{RequirePlan("pro")}, CodeForbidden},
		{"any of plans", free, []Check{RequirePlan("pro", "free")}, ""},
		{"role matches", pro, []Check{RequireRole("admin")}, ""},
		{"role missing", free, []Check{RequireRole("admin")}, CodeForbidden},
		{"addon matches", free, []Check{RequireAddon("stats")}, ""},
		{"addon missing", free, []Check{RequireAddon("export")}, CodeForbidden},
		{"addon all", pro, []Check{RequireAddon("export")}, ""},
		{"chain passes", pro, []Check{RequirePlan("pro"), RequireRole("admin"), RequireAddon("x")}, ""},
		{"chain fails late", pro, []Check{RequirePlan("pro"), RequireRole("owner")}, CodeForbidden},
		{"no principal", nil, []Check{RequirePlan("pro")}, CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunChecks(tt.principal, tt.checks...)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, AsAppError(err).Code)
		})
	}
}

func TestRunChecks_StopsAtFirstFailure(t *testing.T) {
	calls := 0
	counting := func(p *Principal) error {
		calls++
		return nil
	}

	err := RunChecks(&Principal{Plan: "free"}, RequirePlan("pro"), counting)
	assert.Error(t, err)
	assert.Equal(t, 0, calls)

	err = RunChecks(&Principal{Plan: "pro"}, counting, RequirePlan("pro"), counting)
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
