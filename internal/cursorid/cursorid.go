// Package cursorid defines the opaque cursor identifier shared by the
// Token Stream Adapter (which issues them on saveCursor) and the Node
// Arena's declaration nodes (which store them to drive deferred template
// body re-parsing, spec §3.3 / §4.E).
package cursorid

// ID identifies a saved lexer position. The zero value means "no cursor
// recorded".
type ID uint64

// Invalid is the reserved zero ID.
const Invalid ID = 0
