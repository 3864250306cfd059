package gui

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	kerrors "orionos/errors"
)

// Wire is the packed layout a Message takes when it crosses the
// GUI_SEND/GUI_RECV syscall boundary: the caller marshals a Message
// into this shape in its own address space and passes a pointer,
// since the trap ABI only carries three scalar registers, not enough
// room for CREATE's four ints plus inline text.
type Wire struct {
	Type    int32
	A, B, C int32
	Text    [MsgTextMax]byte
}

// WireSize is the on-the-wire byte length of a Wire value.
const WireSize = 4*4 + MsgTextMax

// EncodeMessage packs msg (SenderPID excluded; it is stamped
// server-side by Send) into its wire representation.
func EncodeMessage(msg Message) ([]byte, error) {
	w := Wire{Type: int32(msg.Type), A: msg.A, B: msg.B, C: msg.C}
	copy(w.Text[:], msg.Text)
	raw, err := restruct.Pack(binary.LittleEndian, &w)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Fault, "gui.encodemessage")
	}
	return raw, nil
}

// DecodeMessage unpacks raw (as produced by EncodeMessage) into a
// Message with no SenderPID set.
func DecodeMessage(raw []byte) (Message, error) {
	if len(raw) < WireSize {
		return Message{}, kerrors.New(kerrors.InvalidArgument, "gui.decodemessage", "short message buffer")
	}
	var w Wire
	if err := restruct.Unpack(raw, binary.LittleEndian, &w); err != nil {
		return Message{}, kerrors.Wrap(err, kerrors.Fault, "gui.decodemessage")
	}
	return Message{
		Type: MessageType(w.Type),
		A:    w.A,
		B:    w.B,
		C:    w.C,
		Text: trimNUL(w.Text[:]),
	}, nil
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
