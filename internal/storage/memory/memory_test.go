package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/model"
	"github.com/slok/gsx/internal/storage/memory"
)

func newInstance(id, name string, created time.Time) model.Instance {
	return model.Instance{
		ID:        id,
		Name:      name,
		Status:    model.InstanceStatusCreated,
		CreatedAt: created,
		Config: model.InstanceConfig{
			Name:    name,
			Family:  model.FamilyPaper,
			Version: "1.21.1",
			Memory:  model.Memory{MinMB: 1024, MaxMB: 2048},
			Port:    25565,
		},
	}
}

func TestRepositoryCRUD(t *testing.T) {
	t0 := time.Unix(1700000000, 0).UTC()

	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  error
	}{
		"Creating and getting an instance should work.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, newInstance("id-1", "lobby", t0)))

				got, err := repo.GetInstance(ctx, "id-1")
				require.NoError(t, err)
				assert.Equal(t, "lobby", got.Name)

				got, err = repo.GetInstanceByName(ctx, "lobby")
				require.NoError(t, err)
				assert.Equal(t, "id-1", got.ID)
				return nil
			},
		},

		"Creating a duplicated ID should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, newInstance("id-1", "lobby", t0)))
				return repo.CreateInstance(ctx, newInstance("id-1", "other", t0))
			},
			expErr: model.ErrAlreadyExists,
		},

		"Creating a duplicated name should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, newInstance("id-1", "lobby", t0)))
				return repo.CreateInstance(ctx, newInstance("id-2", "lobby", t0))
			},
			expErr: model.ErrAlreadyExists,
		},

		"Renaming to a used name should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, newInstance("id-1", "lobby", t0)))
				require.NoError(t, repo.CreateInstance(ctx, newInstance("id-2", "survival", t0)))
				return repo.UpdateInstance(ctx, newInstance("id-2", "lobby", t0))
			},
			expErr: model.ErrAlreadyExists,
		},

		"Updating an instance should store the new state.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				inst := newInstance("id-1", "lobby", t0)
				require.NoError(t, repo.CreateInstance(ctx, inst))
				inst.Status = model.InstanceStatusStarting
				require.NoError(t, repo.UpdateInstance(ctx, inst))

				got, err := repo.GetInstance(ctx, "id-1")
				require.NoError(t, err)
				assert.Equal(t, model.InstanceStatusStarting, got.Status)
				return nil
			},
		},

		"Updating a missing instance should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.UpdateInstance(ctx, newInstance("id-1", "lobby", t0))
			},
			expErr: model.ErrNotFound,
		},

		"Deleting an instance should remove it.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, newInstance("id-1", "lobby", t0)))
				require.NoError(t, repo.DeleteInstance(ctx, "id-1"))
				_, err := repo.GetInstance(ctx, "id-1")
				return err
			},
			expErr: model.ErrNotFound,
		},

		"Listing should return the newest instances first.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, newInstance("id-1", "old", t0)))
				require.NoError(t, repo.CreateInstance(ctx, newInstance("id-2", "new", t0.Add(time.Minute))))

				all, err := repo.ListInstances(ctx)
				require.NoError(t, err)
				require.Len(t, all, 2)
				assert.Equal(t, "new", all[0].Name)
				assert.Equal(t, "old", all[1].Name)
				return nil
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
