package addon_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeJar writes a jar with the given entries (name -> content).
func writeJar(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

const (
	fabricClientJSON = `{"schemaVersion": 1, "id": "sodium", "environment": "client"}`
	fabricCommonJSON = `{"schemaVersion": 1, "id": "lithium", "environment": "*"}`
	forgeTOML        = `
modLoader = "javafml"
loaderVersion = "[47,)"

[[mods]]
modId = "create"
version = "0.5.1"
`
	forgeClientTOML = `
modLoader = "javafml"
clientSideOnly = true

[[mods]]
modId = "oculus"
`
	quiltClientJSON = `{"quilt_loader": {"id": "qclient"}, "minecraft": {"environment": "client"}}`
)
