package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"

	"github.com/DoyleJ11/flychess-backend/pkg/types"
)

// Frame layout:
//
//	u32 length (big-endian, excludes itself)
//	string tag
//	typed arguments, each prefixed by a one byte kind
//
// Strings are a u32 byte length followed by UTF-8. A board is a u32 tile count
// followed by, per tile, an int32 tile id, a u32 piece count and that many int32 ids.
const (
	lengthSize = 4

	DefaultMaxFrameSize = 1 << 20
)

type kind byte

const (
	kindInt32  kind = 1
	kindBool   kind = 2
	kindString kind = 3
	kindBoard  kind = 4
)

// Encode returns m as one complete frame.
func Encode(m Message) ([]byte, error) {
	return AppendFrame(nil, m)
}

// AppendFrame appends the frame for m to dst.
func AppendFrame(dst []byte, m Message) ([]byte, error) {
	if m == nil {
		return dst, errors.New("protocol: nil message")
	}
	start := len(dst)
	dst = append(dst, 0, 0, 0, 0)
	dst = appendString(dst, m.Tag())

	switch msg := m.(type) {
	case Ready:
	case PlaneOp:
		dst = appendInt32(dst, msg.Dice)
		dst = appendInt32(dst, msg.Plane)
	case FlyOver:
		dst = append(dst, byte(kindBool), boolByte(msg.Accepted))
	case GameState:
		dst = appendBoard(dst, msg.Board)
	case Text:
		dst = append(dst, byte(kindString))
		dst = appendString(dst, msg.Body)
	default:
		return dst[:start], fmt.Errorf("protocol: cannot encode %T", m)
	}

	binary.BigEndian.PutUint32(dst[start:], uint32(len(dst)-start-lengthSize))
	return dst, nil
}

func appendString(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

func appendInt32(dst []byte, v int32) []byte {
	dst = append(dst, byte(kindInt32))
	return binary.BigEndian.AppendUint32(dst, uint32(v))
}

func appendBoard(dst []byte, b types.Snapshot) []byte {
	dst = append(dst, byte(kindBoard))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	for _, tile := range slices.Sorted(maps.Keys(b)) {
		pieces := b[tile]
		dst = binary.BigEndian.AppendUint32(dst, uint32(int32(tile)))
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(pieces)))
		for _, id := range pieces {
			dst = binary.BigEndian.AppendUint32(dst, uint32(int32(id)))
		}
	}
	return dst
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// Decode parses the first frame in buf and reports how many bytes it used.
// With ErrNeedMoreData or a fatal error nothing is consumed; with an
// *UnknownTypeError the whole frame is consumed.
func Decode(buf []byte) (Message, int, error) {
	return decode(buf, DefaultMaxFrameSize)
}

func decode(buf []byte, maxFrame int) (Message, int, error) {
	if len(buf) < lengthSize {
		return nil, 0, ErrNeedMoreData
	}
	size := binary.BigEndian.Uint32(buf)
	if uint64(size) > uint64(maxFrame) {
		return nil, 0, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, size, maxFrame)
	}
	total := lengthSize + int(size)
	if len(buf) < total {
		return nil, 0, ErrNeedMoreData
	}

	r := &reader{buf: buf[lengthSize:total]}
	tag, err := r.string()
	if err != nil {
		return nil, 0, err
	}
	msg, err := decodeArgs(tag, r)
	if err != nil {
		var unknown *UnknownTypeError
		if errors.As(err, &unknown) {
			return nil, total, err
		}
		return nil, 0, err
	}
	if r.remaining() != 0 {
		return nil, 0, malformed("%d trailing bytes after %s", r.remaining(), tag)
	}
	return msg, total, nil
}

func decodeArgs(tag string, r *reader) (Message, error) {
	switch tag {
	case types.TagReady:
		return Ready{}, nil

	case types.TagPlaneOp:
		dice, err := r.int32Arg()
		if err != nil {
			return nil, err
		}
		plane, err := r.int32Arg()
		if err != nil {
			return nil, err
		}
		return PlaneOp{Dice: dice, Plane: plane}, nil

	case types.TagFlyOver:
		accepted, err := r.boolArg()
		if err != nil {
			return nil, err
		}
		return FlyOver{Accepted: accepted}, nil

	case types.TagGameState:
		board, err := r.boardArg()
		if err != nil {
			return nil, err
		}
		return GameState{Board: board}, nil

	case types.TagText:
		if err := r.expect(kindString); err != nil {
			return nil, err
		}
		body, err := r.string()
		if err != nil {
			return nil, err
		}
		return Text{Body: body}, nil

	default:
		return nil, &UnknownTypeError{Tag: tag}
	}
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, malformed("truncated field at offset %d", r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) int32() (int32, error) {
	v, err := r.uint32()
	return int32(v), err
}

func (r *reader) string() (string, error) {
	n, err := r.uint32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(r.remaining()) {
		return "", malformed("string of %d bytes exceeds frame", n)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", malformed("string is not valid UTF-8")
	}
	return string(b), nil
}

func (r *reader) expect(want kind) error {
	b, err := r.take(1)
	if err != nil {
		return err
	}
	if kind(b[0]) != want {
		return malformed("argument kind %d, want %d", b[0], want)
	}
	return nil
}

func (r *reader) int32Arg() (int32, error) {
	if err := r.expect(kindInt32); err != nil {
		return 0, err
	}
	return r.int32()
}

func (r *reader) boolArg() (bool, error) {
	if err := r.expect(kindBool); err != nil {
		return false, err
	}
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, malformed("bool byte %d", b[0])
}

func (r *reader) boardArg() (types.Snapshot, error) {
	if err := r.expect(kindBoard); err != nil {
		return nil, err
	}
	count, err := r.uint32()
	if err != nil {
		return nil, err
	}
	// every tile entry needs at least 8 bytes
	if uint64(count) > uint64(r.remaining()/8) {
		return nil, malformed("board declares %d tiles", count)
	}
	board := make(types.Snapshot, count)
	for i := uint32(0); i < count; i++ {
		tile, err := r.int32()
		if err != nil {
			return nil, err
		}
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		if uint64(n) > uint64(r.remaining()/4) {
			return nil, malformed("tile %d declares %d pieces", tile, n)
		}
		if _, dup := board[int(tile)]; dup {
			return nil, malformed("tile %d listed twice", tile)
		}
		pieces := make([]int, 0, n)
		for j := uint32(0); j < n; j++ {
			id, err := r.int32()
			if err != nil {
				return nil, err
			}
			pieces = append(pieces, int(id))
		}
		board[int(tile)] = pieces
	}
	return board, nil
}
