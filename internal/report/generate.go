package report

import (
	"path/filepath"

	"github.com/miczat/fc-profiler/internal/logger"
	"github.com/miczat/fc-profiler/internal/profile"
)

// Generate profiles the feature class ref and writes the report into
// outFolder, returning the report path. With overwrite set an existing
// report is deleted first; otherwise it is replaced on persist.
func Generate(r *profile.Reader, a *Assembler, ref, outFolder string, overwrite bool, log *logger.Logger) (string, error) {
	if log == nil {
		log = logger.Nop()
	}

	log.Info("Determining output filename")
	name, err := r.Name(ref)
	if err != nil {
		return "", err
	}
	path := filepath.Join(outFolder, FileName(name))
	log.Debugf("report path = %s", path)

	if overwrite {
		log.Info("Deleting existing report")
		if err := DeleteExisting(path); err != nil {
			return "", err
		}
	}

	log.Info("Getting feature class properties")
	props, err := r.Properties(ref)
	if err != nil {
		return "", err
	}
	log.Info("Getting feature class structure")
	fs, err := r.FieldStructure(ref)
	if err != nil {
		return "", err
	}

	log.Info("Writing workbook")
	wb := NewWorkbook()
	defer func() { _ = wb.Close() }()
	if err := a.Assemble(wb, props, fs); err != nil {
		return "", err
	}
	if err := Persist(wb, path); err != nil {
		return "", err
	}
	return path, nil
}
