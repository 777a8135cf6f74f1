// Package field implements computed fields: named, typed functions from a
// mesh location (plus time) to a tuple of values.
//
// A Field is a stable wrapper holding a polymorphic Core. Cores evaluate
// into a per-field ValueCache, recursively requesting their source fields
// through the same evaluation Cache. Redefining a field swaps its core in
// place, so every holder of the *Field keeps a valid handle.
//
// Fields live in a Module, which owns the type Registry, reference counts
// and the begin/end change batching of change notifications.
package field
