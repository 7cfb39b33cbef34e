package common

import (
	"fmt"
	"slices"
	"strings"
)

// Check is one capability test run against the principal of an authenticated request.
// A nil return means pass.
type Check func(p *Principal) error

// addonAll grants every addon.
const addonAll = "all"

func RequirePlan(plans ...string) Check {
	return func(p *Principal) error {
		if slices.Contains(plans, p.Plan) {
			return nil
		}
		return ForbiddenError(fmt.Sprintf("plan %q is not allowed, required: %s", p.Plan, strings.Join(plans, ", ")))
	}
}

// RequireRole passes when the principal holds at least one of roles.
func RequireRole(roles ...string) Check {
	return func(p *Principal) error {
		for _, role := range roles {
			if slices.Contains(p.Roles, role) {
				return nil
			}
		}
		return ForbiddenError(fmt.Sprintf("one of roles [%s] is required", strings.Join(roles, ", ")))
	}
}

// RequireAddon passes when the principal has at least one of addons, or the "all" addon.
func RequireAddon(addons ...string) Check {
	return func(p *Principal) error {
		if slices.Contains(p.Addons, addonAll) {
			return nil
		}
		for _, addon := range addons {
			if slices.Contains(p.Addons, addon) {
				return nil
			}
		}
		return ForbiddenError(fmt.Sprintf("one of addons [%s] is required", strings.Join(addons, ", ")))
	}
}

// RunChecks evaluates checks in order and stops at the first failure.
func RunChecks(p *Principal, checks ...Check) error {
	if p == nil {
		return UnauthorizedError("Authentication required")
	}
	for _, check := range checks {
		if err := check(p); err != nil {
			return err
		}
	}
	return nil
}
