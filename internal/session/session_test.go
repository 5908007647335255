package session

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/flychess-backend/internal/engine"
	"github.com/DoyleJ11/flychess-backend/internal/hub"
	"github.com/DoyleJ11/flychess-backend/internal/lobby"
	"github.com/DoyleJ11/flychess-backend/internal/protocol"
)

type fakeSeater struct {
	player  engine.PlayerID
	err     error
	outbox  chan chan protocol.Message
	release chan string
}

func newFakeSeater(player engine.PlayerID, err error) *fakeSeater {
	return &fakeSeater{
		player:  player,
		err:     err,
		outbox:  make(chan chan protocol.Message, 1),
		release: make(chan string, 1),
	}
}

func (f *fakeSeater) Connect(_ context.Context, _ string, outbox chan protocol.Message) (engine.PlayerID, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.outbox <- outbox
	return f.player, nil
}

func (f *fakeSeater) Disconnect(session string) { f.release <- session }

type harness struct {
	sess   *Session
	client net.Conn
	seats  *fakeSeater
	games  chan lobby.Msg
	served chan error
	cancel context.CancelFunc
}

func start(t *testing.T, seats *fakeSeater) *harness {
	t.Helper()
	server, client := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		sess:   New(server, Config{OutboxSize: 8, WriteTimeout: time.Second}, nil),
		client: client,
		seats:  seats,
		games:  make(chan lobby.Msg, 16),
		served: make(chan error, 1),
		cancel: cancel,
	}
	t.Cleanup(func() {
		cancel()
		_ = client.Close()
	})
	go func() { h.served <- h.sess.Serve(ctx, seats, h.games) }()
	return h
}

func (h *harness) send(t *testing.T, frames ...[]byte) {
	t.Helper()
	for _, f := range frames {
		_, err := h.client.Write(f)
		require.NoError(t, err)
	}
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.served:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not finish")
		return nil
	}
}

func recvGame(t *testing.T, ch <-chan lobby.Msg) lobby.FromClient {
	t.Helper()
	select {
	case m := <-ch:
		fc, ok := m.(lobby.FromClient)
		require.True(t, ok, "unexpected %T", m)
		return fc
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for request")
		return lobby.FromClient{}
	}
}

func frame(t *testing.T, m protocol.Message) []byte {
	t.Helper()
	b, err := protocol.Encode(m)
	require.NoError(t, err)
	return b
}

func unknownFrame() []byte {
	// length 10: tag "PING" (4 byte length + 4 bytes) plus 2 junk bytes
	return []byte{0, 0, 0, 10, 0, 0, 0, 4, 'P', 'I', 'N', 'G', 0xaa, 0xbb}
}

func TestSession_ForwardsDecodedRequests(t *testing.T) {
	h := start(t, newFakeSeater(2, nil))

	h.send(t,
		frame(t, protocol.Ready{}),
		unknownFrame(),
		frame(t, protocol.Text{Body: "hello"}),
		frame(t, protocol.PlaneOp{Dice: 6, Plane: 3}),
		frame(t, protocol.FlyOver{Accepted: true}),
	)

	want := []engine.Command{
		{Type: engine.CmdReady},
		{Type: engine.CmdPlaneOp, Dice: 6, Plane: 3},
		{Type: engine.CmdFlyOver, Accept: true},
	}
	for _, cmd := range want {
		got := recvGame(t, h.games)
		require.Equal(t, engine.PlayerID(2), got.Player)
		require.Equal(t, h.sess.ID(), got.Session)
		require.Equal(t, cmd, got.Cmd)
	}

	require.NoError(t, h.client.Close())
	require.NoError(t, h.wait(t))
	require.Equal(t, h.sess.ID(), <-h.seats.release)
}

func TestSession_WritesOutboxInOrder(t *testing.T) {
	h := start(t, newFakeSeater(1, nil))
	outbox := <-h.seats.outbox

	outbox <- protocol.Text{Body: "WELCOME:1:Yellow"}
	outbox <- protocol.GameState{Board: map[int][]int{22: {1}}}

	dec := protocol.NewDecoder(h.client, 0)
	msg, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, protocol.Text{Body: "WELCOME:1:Yellow"}, msg)
	msg, err = dec.Next()
	require.NoError(t, err)
	require.Equal(t, protocol.GameState{Board: map[int][]int{22: {1}}}, msg)
}

func TestSession_ClosedOutboxEndsSession(t *testing.T) {
	h := start(t, newFakeSeater(1, nil))
	outbox := <-h.seats.outbox
	close(outbox)

	_, err := protocol.NewDecoder(h.client, 0).Next()
	require.Error(t, err)
	require.NoError(t, h.wait(t))
	require.Equal(t, h.sess.ID(), <-h.seats.release)
}

func TestSession_MalformedFrameIsFatal(t *testing.T) {
	h := start(t, newFakeSeater(1, nil))
	// FLY_OVER_MSG carrying an int instead of a bool
	bad := []byte{0, 0, 0, 21, 0, 0, 0, 12}
	bad = append(bad, "FLY_OVER_MSG"...)
	bad = append(bad, 1, 0, 0, 0, 1)
	h.send(t, bad)

	err := h.wait(t)
	require.ErrorIs(t, err, protocol.ErrMalformed)
	require.Equal(t, h.sess.ID(), <-h.seats.release)
	require.Empty(t, h.games)
}

func TestSession_RejectedConnectionGetsReason(t *testing.T) {
	h := start(t, newFakeSeater(0, hub.ErrFull))

	dec := protocol.NewDecoder(h.client, 0)
	msg, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, protocol.Text{Body: "ERROR:server full"}, msg)

	_, err = dec.Next()
	require.True(t, errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe), "got %v", err)

	require.ErrorIs(t, h.wait(t), hub.ErrFull)
	require.Empty(t, h.seats.release)
}

func TestSession_CancelStopsServe(t *testing.T) {
	h := start(t, newFakeSeater(1, nil))
	<-h.seats.outbox
	h.cancel()
	require.NoError(t, h.wait(t))
	require.Equal(t, h.sess.ID(), <-h.seats.release)
}
