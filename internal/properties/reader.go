package properties

import (
	"errors"
	"fmt"

	javaprops "github.com/magiconair/properties"
)

// ErrRead indicates a property file that could not be opened or parsed.
var ErrRead = errors.New("properties: read failed")

func loader() *javaprops.Loader {
	return &javaprops.Loader{Encoding: javaprops.UTF8, DisableExpansion: true}
}

// Parse reads `key = value` lines; `#` and `!` start comments.
func Parse(data []byte) (map[string]string, error) {
	p, err := loader().LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return p.Map(), nil
}

// ReadFile parses the property file at path.
func ReadFile(path string) (map[string]string, error) {
	p, err := loader().LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, path, err)
	}
	return p.Map(), nil
}

// LoadFile merges the file at path into the store. On error the store is left
// unchanged.
func (s *Store) LoadFile(path string) error {
	m, err := ReadFile(path)
	if err != nil {
		return err
	}
	s.Merge(m)
	return nil
}

// LoadAutonomousFile replaces the autonomous program keys with the ones in
// the file at path. Other keys are kept.
func (s *Store) LoadAutonomousFile(path string) error {
	m, err := ReadFile(path)
	if err != nil {
		return err
	}
	s.ReplacePrefix(AutonomousPrefix, m)
	return nil
}
