package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoutes(t *testing.T) {
	for p := PlayerID(1); p <= MaxPlayers; p++ {
		t.Run(string(ColorOf(p)), func(t *testing.T) {
			require.Equal(t, EntryTile(p), RouteTile(p, 0))
			require.Equal(t, ExitTile(p), RouteTile(p, ExitIndex))
			require.Equal(t, FinalTile(p), RouteTile(p, FinalIndex))

			for _, tile := range []Tile{EntryTile(p), JumpTile(p), ExitTile(p), layouts[p].JumpTarget} {
				require.Equal(t, p, RingOwner(tile), "tile %d", tile)
			}

			jump, ok := RouteIndex(p, JumpTile(p))
			require.True(t, ok)
			target, ok := RouteIndex(p, layouts[p].JumpTarget)
			require.True(t, ok)
			require.Less(t, jump, target)
			require.Less(t, target, ExitIndex)

			for local := 1; local <= PiecesPerPlayer; local++ {
				slot := PieceOf(p, local).HomeSlot()
				require.Equal(t, p, AirportOwner(slot))
			}
		})
	}
}

func TestFlyTarget(t *testing.T) {
	cases := []struct {
		name   string
		player PlayerID
		from   Tile
		want   Tile
		ok     bool
	}{
		{name: "yellow hop", player: 1, from: 26, want: 30, ok: true},
		{name: "yellow jump", player: 1, from: 38, want: 50, ok: true},
		{name: "red jump wraps the ring", player: 4, from: 64, want: 24, ok: true},
		{name: "green hop across the wrap", player: 3, from: 69, want: 21, ok: true},
		{name: "exit tile", player: 2, from: 31, ok: false},
		{name: "foreign colour", player: 1, from: 23, ok: false},
		{name: "home stretch", player: 1, from: 74, ok: false},
		{name: "airport", player: 1, from: 1, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FlyTarget(tc.player, tc.from)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
				require.Equal(t, tc.player, RingOwner(got))
			}
		})
	}
}

func TestBoardCheck(t *testing.T) {
	b := NewBoard()
	b.place(1, 1)
	b.place(5, 30)
	require.NoError(t, b.Check())

	dup := b.Clone()
	dup.place(1, 40)
	require.ErrorIs(t, dup.Check(), ErrCorruptBoard)

	foreign := b.Clone()
	foreign.place(6, 2)
	require.ErrorIs(t, foreign.Check(), ErrCorruptBoard)

	// clones do not share tiles
	require.Equal(t, []PieceID{1}, b.At(1))
	require.Empty(t, b.At(40))
}
