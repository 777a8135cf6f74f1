// Package mesh is the in-memory finite-element topology consumed by field
// evaluation and graphics: nodes, tensor-product elements with linear
// Lagrange bases, and face/line elements that know their parent element and
// how their local xi map into it.
package mesh
