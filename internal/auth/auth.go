// Package auth resolves callers to identities from static API keys or
// session tokens issued by username/password login.
package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	RoleQueryReader = "query_reader"
	RoleOpsAdmin    = "ops_admin"
)

type Identity struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

func (i Identity) HasRole(role string) bool {
	for _, candidate := range i.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses "key:subject:role|role" entries separated by commas.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	entries, err := parseEntries(spec, "key:subject:role|role")
	if err != nil {
		return nil, err
	}
	for _, item := range entries {
		validator.keys[item.first] = Identity{Subject: item.second, Roles: item.roles}
	}
	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}

// Validators tries each validator in order and returns the first match.
type Validators []APIKeyValidator

func (vs Validators) Validate(ctx context.Context, apiKey string) (Identity, bool) {
	for _, validator := range vs {
		if validator == nil {
			continue
		}
		if identity, ok := validator.Validate(ctx, apiKey); ok {
			return identity, true
		}
	}
	return Identity{}, false
}

// entry is one "first:second:role|role" triple. Keys carry key and subject,
// users carry username and password.
type entry struct {
	first  string
	second string
	roles  []string
}

func parseEntries(spec, format string) ([]entry, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var entries []entry
	for _, raw := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(raw), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid entry %q: expected %s", raw, format)
		}
		first := strings.TrimSpace(parts[0])
		second := strings.TrimSpace(parts[1])
		if first == "" || second == "" {
			return nil, fmt.Errorf("invalid entry %q: empty field", raw)
		}
		roleParts := strings.Split(strings.TrimSpace(parts[2]), "|")
		roles := make([]string, 0, len(roleParts))
		for _, role := range roleParts {
			role = strings.TrimSpace(role)
			if role == "" {
				continue
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("invalid entry %q: at least one role is required", raw)
		}
		sort.Strings(roles)
		entries = append(entries, entry{first: first, second: second, roles: roles})
	}
	return entries, nil
}
