package main

import (
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/isq-cli/internal/extract"
	"github.com/sells-group/isq-cli/internal/model"
)

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create %s", path)
	}
	return f, nil
}

// readExtraction reads a raw extraction response from disk. Fenced or
// malformed JSON is repaired the same way a live response is.
func readExtraction(path string) (model.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ExtractionResult{}, eris.Wrapf(err, "read extraction %s", path)
	}
	return extract.Parse(string(data)), nil
}
