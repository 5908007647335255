package types

// FinishedMarker stands in a home airport tile's piece list once the piece
// that starts there has reached its final tile. It is outside the 1..16
// piece id range and only ever appears on the owner's own airport tiles.
const FinishedMarker = 100

// Snapshot maps every board tile (1..96) to the piece ids standing on it.
// Tiles with no pieces are present with an empty list so clients can clear them.
type Snapshot map[int][]int
