package addon

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"

	"github.com/slok/gsx/internal/model"
)

// descriptor is what an embedded loader descriptor declares.
type descriptor struct {
	loader model.LoaderFamily
	modIDs []string
	// clientOnly is nil when the descriptor doesn't say.
	clientOnly *bool
}

type descriptorReader struct {
	file   string
	loader model.LoaderFamily
	parse  func(data []byte) (*descriptor, error)
}

// descriptorReaders are evaluated in priority order.
var descriptorReaders = []descriptorReader{
	{file: "fabric.mod.json", loader: model.LoaderFabric, parse: parseFabric},
	{file: "META-INF/mods.toml", loader: model.LoaderForge, parse: parseModsTOML},
	{file: "META-INF/neoforge.mods.toml", loader: model.LoaderNeoForge, parse: parseModsTOML},
	{file: "quilt.mod.json", loader: model.LoaderQuilt, parse: parseQuilt},
}

func parseFabric(data []byte) (*descriptor, error) {
	var d struct {
		ID          string `json:"id"`
		Environment string `json:"environment"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}

	res := &descriptor{}
	if d.ID != "" {
		res.modIDs = []string{d.ID}
	}
	res.clientOnly = environmentClientOnly(d.Environment)
	return res, nil
}

func parseQuilt(data []byte) (*descriptor, error) {
	var d struct {
		QuiltLoader struct {
			ID string `json:"id"`
		} `json:"quilt_loader"`
		Minecraft struct {
			Environment string `json:"environment"`
		} `json:"minecraft"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}

	res := &descriptor{}
	if d.QuiltLoader.ID != "" {
		res.modIDs = []string{d.QuiltLoader.ID}
	}
	res.clientOnly = environmentClientOnly(d.Minecraft.Environment)
	return res, nil
}

func parseModsTOML(data []byte) (*descriptor, error) {
	var d struct {
		ClientSideOnly *bool `toml:"clientSideOnly"`
		Mods           []struct {
			ModID string `toml:"modId"`
		} `toml:"mods"`
	}
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, err
	}

	res := &descriptor{clientOnly: d.ClientSideOnly}
	for _, m := range d.Mods {
		if m.ModID != "" {
			res.modIDs = append(res.modIDs, m.ModID)
		}
	}
	return res, nil
}

func environmentClientOnly(env string) *bool {
	var v bool
	switch env {
	case "client":
		v = true
	case "server", "*":
		v = false
	default:
		return nil
	}
	return &v
}

// readDescriptors returns the descriptors present in the jar. Descriptors that
// exist but can't be parsed still count for affinity.
func readDescriptors(zr *zip.Reader) ([]descriptor, error) {
	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var res []descriptor
	for _, r := range descriptorReaders {
		f, ok := files[r.file]
		if !ok {
			continue
		}

		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("could not read %q: %w", r.file, err)
		}

		d, err := r.parse(data)
		if err != nil {
			d = &descriptor{}
		}
		d.loader = r.loader
		res = append(res, *d)
	}

	return res, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(io.LimitReader(rc, 1<<20))
}
