package addon_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/gsx/internal/boot/addon"
	"github.com/slok/gsx/internal/boot/patterns"
	"github.com/slok/gsx/internal/model"
)

func TestPolicyDecide(t *testing.T) {
	tests := map[string]struct {
		policy   addon.Policy
		artifact addon.Artifact
		exp      addon.Disposition
	}{
		"A compatible artifact should be active.": {
			policy:   addon.Policy{Family: model.FamilyFabric, PurgeIncompatible: true, PurgeClient: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}},
			exp:      addon.DispositionActive,
		},

		"A client-only artifact should be quarantined as client-only.": {
			policy:   addon.Policy{Family: model.FamilyFabric, PurgeIncompatible: true, PurgeClient: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}, ClientOnly: addon.FlagTrue},
			exp:      addon.DispositionClientOnly,
		},

		"A client-only artifact should stay active when the client purge is disabled.": {
			policy:   addon.Policy{Family: model.FamilyFabric, PurgeIncompatible: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}, ClientOnly: addon.FlagTrue},
			exp:      addon.DispositionActive,
		},

		"A forced artifact should be quarantined even when the client purge is disabled.": {
			policy:   addon.Policy{Family: model.FamilyFabric},
			artifact: addon.Artifact{Path: "a.jar", ClientOnly: addon.FlagTrue, Forced: true},
			exp:      addon.DispositionClientOnly,
		},

		"An unknown client flag should stay active.": {
			policy:   addon.Policy{Family: model.FamilyForge, PurgeIncompatible: true, PurgeClient: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinityUnknown, ClientOnly: addon.FlagUnknown},
			exp:      addon.DispositionActive,
		},

		"An incompatible artifact should be quarantined as incompatible.": {
			policy:   addon.Policy{Family: model.FamilyForge, PurgeIncompatible: true, PurgeClient: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}},
			exp:      addon.DispositionIncompatible,
		},

		"Incompatible should take precedence over client-only.": {
			policy:   addon.Policy{Family: model.FamilyForge, PurgeIncompatible: true, PurgeClient: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}, ClientOnly: addon.FlagTrue},
			exp:      addon.DispositionIncompatible,
		},

		"An incompatible artifact should stay active when the incompatible purge is disabled.": {
			policy:   addon.Policy{Family: model.FamilyForge, PurgeClient: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}},
			exp:      addon.DispositionActive,
		},

		"Multi family artifacts should never be incompatible.": {
			policy:   addon.Policy{Family: model.FamilyNeoForge, Version: "1.21.1", PurgeIncompatible: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinityMulti, Loaders: []model.LoaderFamily{model.LoaderFabric, model.LoaderForge}},
			exp:      addon.DispositionActive,
		},

		"Allowlisted filenames should stay active.": {
			policy:   addon.Policy{Family: model.FamilyForge, PurgeIncompatible: true, Allowlist: patterns.List{"connector"}},
			artifact: addon.Artifact{Path: "sinytra-connector.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}},
			exp:      addon.DispositionActive,
		},

		"Allowlisted mod IDs should stay active.": {
			policy:   addon.Policy{Family: model.FamilyForge, PurgeIncompatible: true, Allowlist: patterns.List{"fabric-api"}},
			artifact: addon.Artifact{Path: "ffapi.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}, ModIDs: []string{"fabric-api"}},
			exp:      addon.DispositionActive,
		},

		"Quilt servers should accept fabric artifacts.": {
			policy:   addon.Policy{Family: model.FamilyQuilt, PurgeIncompatible: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderFabric}},
			exp:      addon.DispositionActive,
		},

		"NeoForge 1.20.1 servers should accept forge artifacts.": {
			policy:   addon.Policy{Family: model.FamilyNeoForge, Version: "1.20.1", PurgeIncompatible: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderForge}},
			exp:      addon.DispositionActive,
		},

		"NeoForge 1.21 servers should not accept forge artifacts.": {
			policy:   addon.Policy{Family: model.FamilyNeoForge, Version: "1.21", PurgeIncompatible: true},
			artifact: addon.Artifact{Path: "a.jar", Affinity: addon.AffinitySingle, Loaders: []model.LoaderFamily{model.LoaderForge}},
			exp:      addon.DispositionIncompatible,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			a := test.artifact
			test.policy.Decide(&a)
			assert.Equal(t, test.exp, a.Disposition)
		})
	}
}

func listJars(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var res []string
	for _, e := range entries {
		res = append(res, e.Name())
	}
	sort.Strings(res)
	return res
}

func newTestSorter(t *testing.T, work string, family model.Family) *addon.Sorter {
	t.Helper()

	c, err := addon.NewClassifier(addon.ClassifierConfig{
		ClientPatterns: patterns.List{"optifine"},
	})
	require.NoError(t, err)

	s, err := addon.NewSorter(addon.SorterConfig{
		Classifier: c,
		Policy: addon.Policy{
			Family:            family,
			Version:           "1.20.1",
			PurgeClient:       true,
			PurgeIncompatible: true,
		},
		Layout: addon.NewLayout(filepath.Join(work, "mods"), filepath.Join(work, "mods-quarantine")),
	})
	require.NoError(t, err)
	return s
}

func TestSorterSort(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	work := t.TempDir()
	mods := filepath.Join(work, "mods")
	writeJar(t, filepath.Join(mods, "create-1.20.1.jar"), map[string]string{"META-INF/mods.toml": forgeTOML})
	writeJar(t, filepath.Join(mods, "oculus.jar"), map[string]string{"META-INF/mods.toml": forgeClientTOML})
	writeJar(t, filepath.Join(mods, "sodium-fabric.jar"), map[string]string{"fabric.mod.json": fabricClientJSON})
	writeJar(t, filepath.Join(mods, "OptiFine_HD.jar"), map[string]string{"a.class": "x"})
	writeJar(t, filepath.Join(mods, "mystery.jar"), map[string]string{"a.class": "x"})
	require.NoError(os.WriteFile(filepath.Join(mods, "notes.txt"), []byte("x"), 0o644))

	s := newTestSorter(t, work, model.FamilyForge)

	for i := 0; i < 2; i++ {
		res, err := s.Sort(context.TODO())
		require.NoError(err)
		assert.False(res.Skipped)
		assert.Len(res.Artifacts, 5)

		var active []string
		for _, a := range res.Active() {
			active = append(active, a.Name())
		}
		assert.Equal([]string{"create-1.20.1.jar", "mystery.jar"}, active)

		assert.Equal([]string{"create-1.20.1.jar", "mystery.jar", "notes.txt"}, listJars(t, mods))
		assert.Equal([]string{"sodium-fabric.jar"}, listJars(t, filepath.Join(work, "mods-quarantine", "incompatible")))
		assert.Equal([]string{"OptiFine_HD.jar", "oculus.jar"}, listJars(t, filepath.Join(work, "mods-quarantine", "client-only")))
	}
}

func TestSorterSortRestoresWhenPolicyChanges(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	work := t.TempDir()
	writeJar(t, filepath.Join(work, "mods-quarantine", "incompatible", "lithium.jar"), map[string]string{"fabric.mod.json": fabricCommonJSON})
	require.NoError(os.MkdirAll(filepath.Join(work, "mods"), 0o755))

	// Same artifact, now on a fabric server.
	s := newTestSorter(t, work, model.FamilyFabric)
	res, err := s.Sort(context.TODO())
	require.NoError(err)

	require.Len(res.Artifacts, 1)
	assert.Equal(addon.DispositionActive, res.Artifacts[0].Disposition)
	assert.Equal([]string{"lithium.jar"}, listJars(t, filepath.Join(work, "mods")))
}

func TestSorterSortKeepsSameNamedArtifacts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	work := t.TempDir()
	mods := filepath.Join(work, "mods")
	incompatible := filepath.Join(work, "mods-quarantine", "incompatible")
	writeJar(t, filepath.Join(incompatible, "lithium.jar"), map[string]string{"fabric.mod.json": fabricCommonJSON, "version.txt": "old"})
	writeJar(t, filepath.Join(mods, "lithium.jar"), map[string]string{"fabric.mod.json": fabricCommonJSON, "version.txt": "new"})
	newJar, err := os.ReadFile(filepath.Join(mods, "lithium.jar"))
	require.NoError(err)

	s := newTestSorter(t, work, model.FamilyFabric)
	for i := 0; i < 2; i++ {
		res, err := s.Sort(context.TODO())
		require.NoError(err)
		require.Len(res.Artifacts, 2)
		require.Len(res.Active(), 1)
		assert.Equal(filepath.Join(mods, "lithium.jar"), res.Active()[0].Path)

		assert.Equal([]string{"lithium.jar"}, listJars(t, mods))
		assert.Equal([]string{"lithium.jar"}, listJars(t, incompatible))
		got, err := os.ReadFile(filepath.Join(mods, "lithium.jar"))
		require.NoError(err)
		assert.Equal(newJar, got)
	}
}

func TestSorterSortSkips(t *testing.T) {
	tests := map[string]struct {
		family model.Family
		mkMods bool
	}{
		"Non modded families should be skipped.": {
			family: model.FamilyPaper,
			mkMods: true,
		},

		"A missing add-ons directory should be skipped.": {
			family: model.FamilyFabric,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			work := t.TempDir()
			if test.mkMods {
				require.NoError(t, os.MkdirAll(filepath.Join(work, "mods"), 0o755))
			}

			res, err := newTestSorter(t, work, test.family).Sort(context.TODO())
			require.NoError(t, err)
			assert.True(t, res.Skipped)
		})
	}
}
