package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/flychess-backend/internal/engine"
	wire "github.com/DoyleJ11/flychess-backend/pkg/types"
)

func TestSnapshotListsEveryTile(t *testing.T) {
	snap := Snapshot(engine.NewBoard())
	require.Len(t, snap, engine.TileCount)
	for tile := 1; tile <= engine.TileCount; tile++ {
		pieces, ok := snap[tile]
		require.True(t, ok, "tile %d missing", tile)
		require.NotNil(t, pieces)
		require.Empty(t, pieces)
	}
}

func TestStateViewAfterStart(t *testing.T) {
	s := engine.NewState(2)
	var err error
	for _, cmd := range []engine.Command{
		{Type: engine.CmdJoin, Player: 1},
		{Type: engine.CmdJoin, Player: 2},
		{Type: engine.CmdReady, Player: 1},
		{Type: engine.CmdReady, Player: 2},
	} {
		_, s, err = engine.Apply(s, cmd)
		require.NoError(t, err)
	}

	v := NewStateView(s)
	require.Equal(t, string(engine.PhaseRoll), v.Phase)
	require.Equal(t, 1, v.CurrentPlayer)
	require.Len(t, v.Players, 2)
	require.Equal(t, "Blue", v.Players[1].Color)
	require.Equal(t, []int{1}, v.Board[1])
	require.Equal(t, []int{8}, v.Board[8])
	require.Empty(t, v.Board[9])
	require.NotContains(t, v.Board[1], wire.FinishedMarker)

	raw, err := json.Marshal(ServerMessage{Type: "StateSnapshot", Version: 3, State: &v})
	require.NoError(t, err)

	var back ServerMessage
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, 3, back.Version)
	require.Equal(t, v.Board[5], back.State.Board[5])
}
