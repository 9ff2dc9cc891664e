package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction matches every *ConstructionError via errors.Is.
	ErrConstruction = errors.New("handle construction failed")

	// ErrEmptyName is returned when GetOrCreate is called with an empty name.
	ErrEmptyName = errors.New("registry: empty handle name")

	// ErrNilBuildFunc is returned when GetOrCreate is called without a build function.
	ErrNilBuildFunc = errors.New("registry: nil build function")
)

// ConstructionError reports that the build function for a name failed.
// Nothing is cached for Name when this error is returned.
type ConstructionError struct {
	Name string
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("build handle %q: %v", e.Name, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConstruction.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}
