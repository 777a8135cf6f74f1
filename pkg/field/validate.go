package field

import "fmt"

// ValidationSeverity indicates whether a finding means the module is
// corrupt or is merely advisory.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // inconsistent state
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single consistency finding.
type ValidationError struct {
	Field    string // field name, empty if module-level
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] field %q: %s", e.Severity, e.Field, e.Message)
}

// Validate checks the structural invariants of m: the source graph is
// acyclic, every source belongs to m, names are indexed consistently and
// reference counts cover every dependant. It never mutates m.
func Validate(m *Module) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(m)...)
	errs = append(errs, validateReferences(m)...)
	errs = append(errs, validateNames(m)...)
	errs = append(errs, validateAccess(m)...)
	return errs
}

// validateDAG looks for source cycles with a 3-colour DFS.
func validateDAG(m *Module) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Field]int)
	var errs []ValidationError

	var visit func(f *Field) bool
	visit = func(f *Field) bool {
		switch color[f] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Field:    f.name,
				Message:  "cycle detected: field is its own source",
				Severity: SeverityError,
			})
			return true
		}
		color[f] = gray
		for _, s := range f.sources {
			if visit(s) {
				return true
			}
		}
		color[f] = black
		return false
	}

	for _, f := range m.Fields() {
		if color[f] == white && visit(f) {
			break
		}
	}
	return errs
}

func validateReferences(m *Module) []ValidationError {
	var errs []ValidationError
	for _, f := range m.Fields() {
		if f.core == nil {
			errs = append(errs, ValidationError{
				Field:    f.name,
				Message:  "field has no core",
				Severity: SeverityError,
			})
		}
		for i, s := range f.sources {
			if !m.owns(s) {
				errs = append(errs, ValidationError{
					Field:    f.name,
					Message:  fmt.Sprintf("source %d %q is not in the module", i+1, s.String()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

func validateNames(m *Module) []ValidationError {
	var errs []ValidationError
	for name, f := range m.fields {
		if f.name != name {
			errs = append(errs, ValidationError{
				Field:    f.name,
				Message:  fmt.Sprintf("indexed under %q", name),
				Severity: SeverityError,
			})
		}
		if f.module != m {
			errs = append(errs, ValidationError{
				Field:    name,
				Message:  "owned by another module",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateAccess checks that every use of a field as a source is counted,
// and warns about unmanaged fields that nothing holds beyond dependants.
func validateAccess(m *Module) []ValidationError {
	uses := make(map[*Field]int)
	for _, f := range m.fields {
		for _, s := range f.sources {
			uses[s]++
		}
	}
	var errs []ValidationError
	for _, f := range m.Fields() {
		if f.accessCount < uses[f] {
			errs = append(errs, ValidationError{
				Field:    f.name,
				Message:  fmt.Sprintf("access count %d below %d source uses", f.accessCount, uses[f]),
				Severity: SeverityError,
			})
		}
		if !f.managed && uses[f] == 0 && f.accessCount == 0 {
			errs = append(errs, ValidationError{
				Field:    f.name,
				Message:  "unmanaged field with no holders",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
