package boot

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
)

const (
	listingMaxDepth   = 4
	listingMaxEntries = 2000
)

// WriteListing writes a recursive listing of dir for diagnostics. Deep trees are
// cut so library folders don't flood the output.
func WriteListing(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Listing of %s:\n", dir)

	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Fprintf(w, "  ! %s: %s\n", path, err)
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		if rel == "." {
			return nil
		}

		if count >= listingMaxEntries {
			fmt.Fprintf(w, "  ... truncated after %d entries\n", listingMaxEntries)
			return fs.SkipAll
		}
		count++

		depth := strings.Count(rel, string(filepath.Separator))
		if d.IsDir() {
			fmt.Fprintf(w, "  %12s  %s/\n", "-", rel)
			if depth+1 >= listingMaxDepth {
				return fs.SkipDir
			}
			return nil
		}

		size := "?"
		if info, err := d.Info(); err == nil {
			size = fmt.Sprintf("%d", info.Size())
		}
		fmt.Fprintf(w, "  %12s  %s\n", size, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not list %q: %w", dir, err)
	}

	return nil
}
