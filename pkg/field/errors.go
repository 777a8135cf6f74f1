package field

import "errors"

var (
	// ErrInvalidArgument reports a nil or mismatched handle or parameter.
	ErrInvalidArgument = errors.New("field: invalid argument")
	// ErrNameInUse reports a field name collision within a module.
	ErrNameInUse = errors.New("field: name in use")
	// ErrNotFound reports a missing field or field type.
	ErrNotFound = errors.New("field: not found")
	// ErrCycle reports a definition that would make a field depend on itself.
	ErrCycle = errors.New("field: dependency cycle")
	// ErrReadOnly reports an attempt to redefine a read-only field.
	ErrReadOnly = errors.New("field: read only")
	// ErrComponentMismatch reports an unsupported change of component count.
	ErrComponentMismatch = errors.New("field: component count mismatch")
)
