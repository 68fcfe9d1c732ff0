package index

import "fmt"

// BuildError means document loading, chunking, or index construction
// failed. Fatal: surfaced to the caller.
type BuildError struct {
	Op  string
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("index build: %s: %v", e.Op, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// LoadError means a present cache could not be read. Recovered locally by
// rebuilding; never surfaced to the end caller.
type LoadError struct {
	Dir string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("index load from %s: %v", e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
