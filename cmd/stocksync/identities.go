package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/httpapi"
)

var errUnknownToken = errors.New("unknown token")

// staticIdentities resolves bearer tokens from a fixed table loaded at
// startup. Deployments with a real user store replace this with their own
// httpapi.IdentityProvider.
type staticIdentities struct {
	byToken map[string]httpapi.Identity
}

// parseIdentities builds a provider from token:user_id:role entries.
func parseIdentities(entries []string) (*staticIdentities, error) {
	byToken := make(map[string]httpapi.Identity, len(entries))
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("auth token entry %q: want token:user_id:role", entry)
		}

		token := parts[0]
		if token == "" {
			return nil, fmt.Errorf("auth token entry %q: empty token", entry)
		}
		if _, exists := byToken[token]; exists {
			return nil, fmt.Errorf("auth token entry %q: duplicate token", entry)
		}

		userID, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, fmt.Errorf("auth token entry %q: %w", entry, err)
		}

		role := httpapi.Role(parts[2])
		switch role {
		case httpapi.RoleStaff, httpapi.RoleManager, httpapi.RoleAdmin:
		default:
			return nil, fmt.Errorf("auth token entry %q: unknown role %q", entry, parts[2])
		}

		byToken[token] = httpapi.Identity{UserID: userID, Role: role, Active: true}
	}

	return &staticIdentities{byToken: byToken}, nil
}

func (s *staticIdentities) Authenticate(_ context.Context, token string) (httpapi.Identity, error) {
	id, ok := s.byToken[token]
	if !ok {
		return httpapi.Identity{}, errUnknownToken
	}
	return id, nil
}

// Elevated returns the user IDs of every manager and admin identity. The
// daily stock summary goes to these users.
func (s *staticIdentities) Elevated() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, len(s.byToken))
	for _, id := range s.byToken {
		if !id.Elevated() {
			continue
		}
		if _, dup := seen[id.UserID]; dup {
			continue
		}
		seen[id.UserID] = struct{}{}
		ids = append(ids, id.UserID)
	}
	return ids
}
