package engine

import "fmt"

const (
	MaxPlayers      = 4
	PiecesPerPlayer = 4
	PieceCount      = MaxPlayers * PiecesPerPlayer
	TileCount       = 96
	MinDice         = 1
	MaxDice         = 6

	// Airport tiles 1..16, four per player in player order.
	AirportFirst = 1
	AirportLast  = 16

	// Launch pads 17..20 exist on the drawn board but pieces never stand on them.
	RingFirst = 21
	RingLast  = 72
	RingSize  = RingLast - RingFirst + 1

	// Positions along a player's route: entry is 0, exit is ExitIndex,
	// then five home stretch tiles and the final tile at FinalIndex.
	ExitIndex  = 48
	FinalIndex = ExitIndex + 6

	hopDistance = 4
)

type Color string

const (
	ColorYellow Color = "Yellow"
	ColorBlue   Color = "Blue"
	ColorGreen  Color = "Green"
	ColorRed    Color = "Red"
)

type layout struct {
	Color      Color
	Airport    Tile
	Entry      Tile
	Jump       Tile
	JumpTarget Tile
	Exit       Tile
	Stretch    Tile
	Final      Tile
}

var layouts = [MaxPlayers + 1]layout{
	1: {Color: ColorYellow, Airport: 1, Entry: 22, Jump: 38, JumpTarget: 50, Exit: 70, Stretch: 73, Final: 78},
	2: {Color: ColorBlue, Airport: 5, Entry: 35, Jump: 51, JumpTarget: 63, Exit: 31, Stretch: 79, Final: 84},
	3: {Color: ColorGreen, Airport: 9, Entry: 61, Jump: 25, JumpTarget: 37, Exit: 57, Stretch: 91, Final: 96},
	4: {Color: ColorRed, Airport: 13, Entry: 48, Jump: 64, JumpTarget: 24, Exit: 44, Stretch: 85, Final: 90},
}

// ring tile colours repeat every four tiles starting at RingFirst
var ringOwners = [4]PlayerID{3, 1, 2, 4}

type route struct {
	tiles []Tile
	index map[Tile]int
}

var routes [MaxPlayers + 1]route

func init() {
	for p := PlayerID(1); p <= MaxPlayers; p++ {
		routes[p] = buildRoute(layouts[p])
	}
}

func buildRoute(l layout) route {
	r := route{index: make(map[Tile]int, FinalIndex+1)}
	t := l.Entry
	for i := 0; i <= ExitIndex; i++ {
		r.tiles = append(r.tiles, t)
		t = nextRingTile(t)
	}
	if r.tiles[ExitIndex] != l.Exit {
		panic(fmt.Sprintf("engine: %s route reaches %d, want exit %d", l.Color, r.tiles[ExitIndex], l.Exit))
	}
	for t := l.Stretch; t < l.Final; t++ {
		r.tiles = append(r.tiles, t)
	}
	r.tiles = append(r.tiles, l.Final)
	if len(r.tiles) != FinalIndex+1 {
		panic(fmt.Sprintf("engine: %s route has %d tiles", l.Color, len(r.tiles)))
	}
	for i, t := range r.tiles {
		r.index[t] = i
	}
	return r
}

func nextRingTile(t Tile) Tile {
	if t == RingLast {
		return RingFirst
	}
	return t + 1
}

func IsAirport(t Tile) bool { return t >= AirportFirst && t <= AirportLast }

func IsRing(t Tile) bool { return t >= RingFirst && t <= RingLast }

// AirportOwner returns the player whose airport contains t.
func AirportOwner(t Tile) PlayerID {
	if !IsAirport(t) {
		return 0
	}
	return PlayerID((int(t)-AirportFirst)/PiecesPerPlayer + 1)
}

// RingOwner returns the player whose colour the ring tile carries.
func RingOwner(t Tile) PlayerID {
	if !IsRing(t) {
		return 0
	}
	return ringOwners[(int(t)-RingFirst)%len(ringOwners)]
}

func ColorOf(p PlayerID) Color {
	if !p.Valid() {
		return ""
	}
	return layouts[p].Color
}

func EntryTile(p PlayerID) Tile { return layouts[p].Entry }

func ExitTile(p PlayerID) Tile { return layouts[p].Exit }

func FinalTile(p PlayerID) Tile { return layouts[p].Final }

func JumpTile(p PlayerID) Tile { return layouts[p].Jump }

// RouteTile returns the tile at position idx of p's route.
func RouteTile(p PlayerID, idx int) Tile { return routes[p].tiles[idx] }

// RouteIndex returns the position of t along p's route.
func RouteIndex(p PlayerID, t Tile) (int, bool) {
	idx, ok := routes[p].index[t]
	return idx, ok
}

// offersFlyOver reports whether a piece of p standing on t may be offered a fly-over.
func offersFlyOver(p PlayerID, t Tile) bool {
	return IsRing(t) && RingOwner(t) == p && t != layouts[p].Exit
}

// FlyTarget returns where an accepted fly-over from t takes a piece of p.
// The designated jump tile crosses the board; other own-colour tiles hop to the next one.
func FlyTarget(p PlayerID, t Tile) (Tile, bool) {
	if !p.Valid() || !offersFlyOver(p, t) {
		return 0, false
	}
	if t == layouts[p].Jump {
		return layouts[p].JumpTarget, true
	}
	idx, ok := routes[p].index[t]
	if !ok || idx+hopDistance > ExitIndex {
		return 0, false
	}
	return routes[p].tiles[idx+hopDistance], true
}
