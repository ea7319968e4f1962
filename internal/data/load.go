package data

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// decodeFile strictly decodes a yaml table; unknown keys are errors so a
// misspelled field does not silently fall back to its zero value. An
// empty file decodes to the zero T.
func decodeFile[T any](path, what string) (T, error) {
	var v T
	f, err := os.Open(path)
	if err != nil {
		return v, fmt.Errorf("read %s: %w", what, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return v, fmt.Errorf("parse %s: %w", what, err)
	}
	return v, nil
}
