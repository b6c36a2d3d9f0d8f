// Package protocol owns the BITS wire contract and its parsing primitives.
//
// Ownership boundary:
// - packet tree model and operator codes
// - recursive decoder over a bit cursor (see package bits)
// - hex transport adapter and tree formatting
package protocol
