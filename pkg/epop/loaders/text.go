package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ReadTextDir loads every .txt file under dir, keyed by file name without
// extension. These are the raw documents the annotation spans index into.
func ReadTextDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing texts under %s", dir)
	}

	texts := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", e.Name())
		}
		texts[strings.TrimSuffix(e.Name(), ".txt")] = string(b)
	}
	return texts, nil
}
