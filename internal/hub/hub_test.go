package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/flychess-backend/internal/engine"
	"github.com/DoyleJ11/flychess-backend/internal/lobby"
	"github.com/DoyleJ11/flychess-backend/internal/protocol"
)

func newTestHub(t *testing.T, players int) (*Hub, *lobby.Lobby) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	lb := lobby.NewLobby(ctx, engine.NewState(players))
	return NewHub(ctx, lb, players, nil), lb
}

func connect(t *testing.T, h *Hub, session string) (engine.PlayerID, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return h.Connect(ctx, session, make(chan protocol.Message, 64))
}

func seats(t *testing.T, h *Hub) map[engine.PlayerID]string {
	t.Helper()
	reply := make(chan map[engine.PlayerID]string, 1)
	h.Inbox() <- GetSeats{Reply: reply}
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for seats")
		return nil
	}
}

func lobbyView(t *testing.T, lb *lobby.Lobby) lobby.View {
	t.Helper()
	reply := make(chan lobby.View, 1)
	lb.Inbox() <- lobby.GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return lobby.View{}
	}
}

func TestHub_AssignsLowestFreeSeat(t *testing.T) {
	h, lb := newTestHub(t, 2)

	id, err := connect(t, h, "a")
	require.NoError(t, err)
	require.Equal(t, engine.PlayerID(1), id)

	id, err = connect(t, h, "b")
	require.NoError(t, err)
	require.Equal(t, engine.PlayerID(2), id)

	_, err = connect(t, h, "c")
	require.ErrorIs(t, err, ErrFull)

	h.Disconnect("a")
	id, err = connect(t, h, "d")
	require.NoError(t, err)
	require.Equal(t, engine.PlayerID(1), id)

	require.Equal(t, map[engine.PlayerID]string{1: "d", 2: "b"}, seats(t, h))
	v := lobbyView(t, lb)
	require.Equal(t, 2, v.NumClients)
	require.True(t, v.State.Players[1].Connected)
}

func TestHub_DisconnectUnknownSessionIsNoop(t *testing.T) {
	h, lb := newTestHub(t, 2)
	_, err := connect(t, h, "a")
	require.NoError(t, err)

	h.Disconnect("nobody")
	require.Len(t, seats(t, h), 1)
	require.Equal(t, 1, lobbyView(t, lb).NumClients)
}

func TestHub_DisconnectOfCurrentPlayerAdvancesTurn(t *testing.T) {
	h, lb := newTestHub(t, 2)
	_, err := connect(t, h, "a")
	require.NoError(t, err)
	_, err = connect(t, h, "b")
	require.NoError(t, err)
	lb.Inbox() <- lobby.FromClient{Player: 1, Session: "a", Cmd: engine.Command{Type: engine.CmdReady}}
	lb.Inbox() <- lobby.FromClient{Player: 2, Session: "b", Cmd: engine.Command{Type: engine.CmdReady}}
	require.Equal(t, engine.PlayerID(1), lobbyView(t, lb).State.Turn.Current)

	h.Disconnect("a")
	require.Len(t, seats(t, h), 1)
	v := lobbyView(t, lb)
	require.Equal(t, engine.PlayerID(2), v.State.Turn.Current)
	require.False(t, v.State.Players[1].Connected)
}

func TestHub_RefusedJoinFreesSeat(t *testing.T) {
	h, lb := newTestHub(t, 2)
	_, err := connect(t, h, "a")
	require.NoError(t, err)
	_, err = connect(t, h, "b")
	require.NoError(t, err)
	lb.Inbox() <- lobby.FromClient{Player: 1, Session: "a", Cmd: engine.Command{Type: engine.CmdReady}}
	lb.Inbox() <- lobby.FromClient{Player: 2, Session: "b", Cmd: engine.Command{Type: engine.CmdReady}}

	h.Disconnect("b")
	_, err = connect(t, h, "late")
	require.ErrorIs(t, err, engine.ErrGameInProgress)
	require.Equal(t, map[engine.PlayerID]string{1: "a"}, seats(t, h))
}

func TestHub_ClosedHubRejects(t *testing.T) {
	h, _ := newTestHub(t, 2)
	h.Inbox() <- ShutdownHub{}

	require.Eventually(t, func() bool {
		_, err := connect(t, h, "a")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
