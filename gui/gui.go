// Package gui implements the GUI server IPC queue and window
// compositor: a single elected server process, a bounded message
// ring, and a z-ordered window table with hit-testing.
package gui

import (
	"sync"

	kerrors "orionos/errors"
)

// GUIQueueMax is the bounded message ring's capacity (power of two).
const GUIQueueMax = 256

// MsgTextMax bounds a message's inline text payload.
const MsgTextMax = 128

// MaxWindows bounds the window table.
const MaxWindows = 32

// MessageType enumerates the fixed message kinds plus the
// user-defined range.
type MessageType int

const (
	MsgCreate MessageType = iota
	MsgSetText
	MsgClose
	MsgUserDefined
)

// Message is one GUI IPC message. A, B, C carry
// position/size; for MsgCreate, A=x, B=y, C=(w<<16)|h with negative
// x/y meaning "auto" and zero w/h meaning "default size".
type Message struct {
	SenderPID int32
	Type      MessageType
	A, B, C   int32
	Text      string
}

// Server is the bound GUI server plus its message queue and window
// compositor state.
type Server struct {
	mu sync.Mutex

	boundPID int32 // 0 if unbound

	ring              [GUIQueueMax]Message
	head, tail, count int

	windows   [MaxWindows]Window
	zOrder    []int // back-to-front indices into windows
	nextClick int32 // cascade offset counter

	screenW, screenH int
	fontW, fontH     int
	taskbarH         int
	closeBtn         int
}

// Window is one compositor-managed window.
type Window struct {
	Used       bool
	System     bool
	OwnerPID   int32
	X, Y, W, H int32
	Title      string
	Body       string
}

// NewServer creates an unbound server sized to the given desktop
// resolution, and creates the single permanent system (log) window.
func NewServer(screenW, screenH, fontW, fontH, taskbarH, closeBtn int) *Server {
	s := &Server{
		screenW: screenW, screenH: screenH,
		fontW: fontW, fontH: fontH,
		taskbarH: taskbarH, closeBtn: closeBtn,
	}
	s.windows[0] = Window{Used: true, System: true, Title: "log", X: 0, Y: 0, W: int32(screenW / 2), H: int32(screenH / 2)}
	s.zOrder = []int{0}
	return s
}

// Bind elects pid as the GUI server, provided no live server is bound.
func (s *Server) Bind(pid int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundPID != 0 {
		return kerrors.New(kerrors.Permission, "gui.bind", "a server is already bound")
	}
	s.boundPID = pid
	return nil
}

// Release frees the bound seat, e.g. when the server process dies.
func (s *Server) Release(pid int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundPID == pid {
		s.boundPID = 0
	}
}

// Bound reports whether a server is currently bound.
func (s *Server) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundPID != 0
}

// Send pushes a caller-owned copy onto the ring with SenderPID
// stamped server-side. Returns false (message dropped) on overflow;
// returns an error if no server is bound.
func (s *Server) Send(senderPID int32, msg Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundPID == 0 {
		return false, kerrors.New(kerrors.NotFound, "gui.send", "no GUI server bound")
	}
	if s.count == GUIQueueMax {
		return false, nil
	}
	msg.SenderPID = senderPID
	if len(msg.Text) > MsgTextMax {
		msg.Text = msg.Text[:MsgTextMax]
	}
	s.ring[s.tail] = msg
	s.tail = (s.tail + 1) % GUIQueueMax
	s.count++
	return true, nil
}

// Recv pops the next queued message. ok is false if the queue is
// empty.
func (s *Server) Recv() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return Message{}, false
	}
	m := s.ring[s.head]
	s.ring[s.head] = Message{}
	s.head = (s.head + 1) % GUIQueueMax
	s.count--
	return m, true
}

// QueueLen reports the number of queued messages.
func (s *Server) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
