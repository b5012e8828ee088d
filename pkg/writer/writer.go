// Package writer commits one chunk's column buffer to disk as Parquet,
// CSV, or JSON, writing to a temporary file and renaming into place so a
// reader never observes a partially written chunk file.
package writer

import (
	"os"
	"path/filepath"

	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
	"github.com/paradigmxyz/cryo/pkg/query"
)

// WriteChunk commits buf (restricted to names, in order) to path under
// cfg's format and compression settings. It returns written=false without
// touching disk if the file already exists and cfg.Overwrite is false.
func WriteChunk(buf *column.Buffer, names []string, cfg query.OutputConfig, path string) (written bool, err error) {
	if !cfg.Overwrite {
		if _, statErr := os.Stat(path); statErr == nil {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, cryoerrors.NewIoError(err, "creating output directory for %s", path)
	}

	tmp := path + ".tmp"
	if err := writeTo(tmp, buf, names, cfg); err != nil {
		os.Remove(tmp)
		return false, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, cryoerrors.NewIoError(err, "renaming %s to %s", tmp, path)
	}
	return true, nil
}

func writeTo(path string, buf *column.Buffer, names []string, cfg query.OutputConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return cryoerrors.NewIoError(err, "creating %s", path)
	}
	defer f.Close()

	switch cfg.Format {
	case query.FormatCSV:
		err = writeCSV(f, buf, names)
	case query.FormatJSON:
		err = writeJSON(f, buf, names)
	default:
		err = writeParquet(f, buf, names, cfg)
	}
	if err != nil {
		return cryoerrors.NewIoError(err, "writing %s", path)
	}
	return nil
}
