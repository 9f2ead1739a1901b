package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveState writes state to dir/basename+extension. The file is written to a
// temporary name first and renamed into place, so readers never observe a
// partial state. It returns the final path.
func SaveState(dir, basename string, codec Codec, state any) (string, error) {
	path := filepath.Join(dir, basename+codec.Extension())

	tmp, err := os.CreateTemp(dir, "."+basename+"-*")
	if err != nil {
		return "", fmt.Errorf("create state file: %w", err)
	}

	err = codec.Encode(tmp, state)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("encode state: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("close state file: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("rename state file: %w", err)
	}

	return path, nil
}

// LoadFile decodes the state file at path into state, choosing the codec
// from the file extension. state must be a pointer.
func LoadFile(path string, state any) error {
	codec, err := CodecFor(path)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, state)
	if err != nil {
		return fmt.Errorf("decode state %s: %w", path, err)
	}

	return nil
}

// Persister saves and loads one state type with a fixed codec.
type Persister[T any] struct {
	codec Codec
}

// NewPersister creates a persister for T using codec.
func NewPersister[T any](codec Codec) *Persister[T] {
	return &Persister[T]{codec: codec}
}

// Codec returns the persister's codec.
func (p *Persister[T]) Codec() Codec {
	return p.codec
}

// Save writes state to dir under basename and returns the file path.
func (p *Persister[T]) Save(dir, basename string, state *T) (string, error) {
	return SaveState(dir, basename, p.codec, state)
}

// Load reads a state file written by any supported codec.
func (p *Persister[T]) Load(path string) (*T, error) {
	var state T

	err := LoadFile(path, &state)
	if err != nil {
		return nil, err
	}

	return &state, nil
}
