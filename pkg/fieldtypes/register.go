package fieldtypes

import (
	"errors"

	"github.com/chazu/cmgui/pkg/field"
)

// RegisterAll installs a parser for every field type in reg.
func RegisterAll(reg *field.Registry) error {
	parsers := []struct {
		name  string
		parse field.Parser
	}{
		{"constant", parseConstant},
		{"finite_element", parseFiniteElement},
		{"xi", parseXi},
		{"time_value", parseTimeValue},
		{"add", parseAdd},
		{"multiply", parseMultiply},
		{"divide", parseDivide},
		{"scale", parseScale},
		{"sum_components", parseSumComponents},
		{"magnitude", parseMagnitude},
		{"dot_product", parseDotProduct},
		{"cross_product", parseCrossProduct},
		{"component", parseComponent},
		{"composite", parseComposite},
		{"coordinate_transformation", parseCoordinateTransformation},
		{"fibre_axes", parseFibreAxes},
		{"time_lookup", parseTimeLookup},
	}
	var errs []error
	for _, p := range parsers {
		errs = append(errs, reg.Register(p.name, p.parse))
	}
	return errors.Join(errs...)
}

