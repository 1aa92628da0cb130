package rbac

import (
	"context"
	"strings"
)

// Grants is the set of module:mode permissions attached to a request.
type Grants map[string]struct{}

type grantsKey struct{}

func contextWithGrants(ctx context.Context, g Grants) context.Context {
	return context.WithValue(ctx, grantsKey{}, g)
}

func grantsFromContext(ctx context.Context) Grants {
	if g, ok := ctx.Value(grantsKey{}).(Grants); ok {
		return g
	}
	return nil
}

func parseGrants(header string) Grants {
	grants := make(Grants)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		grants[part] = struct{}{}
	}
	return grants
}

// HasAny reports whether any of perms is granted. The wildcard "*" grants
// everything, and module:write implies module:read.
func (g Grants) HasAny(perms ...string) bool {
	if g == nil {
		return false
	}
	if _, ok := g["*"]; ok {
		return true
	}
	for _, perm := range perms {
		if _, ok := g[perm]; ok {
			return true
		}
		if module, mode, found := strings.Cut(perm, ":"); found && mode == "read" {
			if _, ok := g[module+":write"]; ok {
				return true
			}
		}
	}
	return false
}
