package protocol

import "github.com/DoyleJ11/flychess-backend/pkg/types"

// Message is one decoded frame. The concrete type identifies the tag.
type Message interface {
	Tag() string
	isMessage()
}

type Ready struct{}

type PlaneOp struct {
	Dice  int32
	Plane int32
}

type FlyOver struct {
	Accepted bool
}

type GameState struct {
	Board types.Snapshot
}

type Text struct {
	Body string
}

func (Ready) Tag() string     { return types.TagReady }
func (PlaneOp) Tag() string   { return types.TagPlaneOp }
func (FlyOver) Tag() string   { return types.TagFlyOver }
func (GameState) Tag() string { return types.TagGameState }
func (Text) Tag() string      { return types.TagText }

func (Ready) isMessage()     {}
func (PlaneOp) isMessage()   {}
func (FlyOver) isMessage()   {}
func (GameState) isMessage() {}
func (Text) isMessage()      {}
