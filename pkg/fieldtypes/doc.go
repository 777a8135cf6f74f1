// Package fieldtypes provides the computed field types: constants,
// interpolated finite element fields, arithmetic, coordinate transformation,
// fibre axes and time lookup.
//
// Every type offers New<Type>, which validates arguments and returns a
// field.Definition usable with Module.Create or Module.Redefine,
// Create<Type>, which does both, and As<Type>, which returns a typed view of
// a field or nil when the field's current core is of another type.
// RegisterAll installs a command parser for each type in a field.Registry.
package fieldtypes
