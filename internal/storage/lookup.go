package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/gsx/internal/model"
)

// GetInstanceByRef gets an instance by name first, then by ID if the reference looks like a ULID.
func GetInstanceByRef(ctx context.Context, repo Repository, nameOrID string) (*model.Instance, error) {
	inst, err := repo.GetInstanceByName(ctx, nameOrID)
	if errors.Is(err, model.ErrNotFound) && looksLikeULID(nameOrID) {
		inst, err = repo.GetInstance(ctx, nameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("instance not found: %s: %w", nameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get instance: %w", err)
	}

	return inst, nil
}

// looksLikeULID checks if a string looks like a ULID (26 characters, alphanumeric uppercase).
func looksLikeULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
