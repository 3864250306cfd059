package gui

// workAreaHeight is the desktop height minus the taskbar strip.
func (s *Server) workAreaHeight() int32 { return int32(s.screenH - s.taskbarH) }

func (s *Server) windowSlotByOwner(pid int32) int {
	for i := range s.windows {
		if s.windows[i].Used && s.windows[i].OwnerPID == pid {
			return i
		}
	}
	return -1
}

func (s *Server) allocWindow() int {
	for i := range s.windows {
		if !s.windows[i].Used {
			return i
		}
	}
	return -1
}

func (s *Server) clampToWorkArea(w *Window) {
	maxX := int32(s.screenW) - w.W
	maxY := s.workAreaHeight() - w.H
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}
	if w.X < 0 {
		w.X = 0
	}
	if w.X > maxX {
		w.X = maxX
	}
	if w.Y < 0 {
		w.Y = 0
	}
	if w.Y > maxY {
		w.Y = maxY
	}
}

// cascadePosition returns the next auto-placement offset, used when a
// client doesn't supply coordinates. Cascades seed from the desktop's
// resolved font cell size and advance by a fixed step, wrapping after
// 10 windows so cascades don't walk off-screen.
func (s *Server) cascadePosition() (int32, int32) {
	const step = 24
	s.nextClick++
	off := int32(s.nextClick-1) % 10
	return int32(s.fontW) + off*step, int32(s.fontH) + off*step
}

// focusTop moves slot to the back of zOrder. The focused window is
// always the back-most entry, so it is drawn last.
func (s *Server) focusTop(slot int) {
	for i, idx := range s.zOrder {
		if idx == slot {
			s.zOrder = append(s.zOrder[:i], s.zOrder[i+1:]...)
			break
		}
	}
	s.zOrder = append(s.zOrder, slot)
}

// HandleMessage applies one message's effect to the window table
// and reports whether the UI needs a redraw.
func (s *Server) HandleMessage(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Type {
	case MsgCreate:
		return s.handleCreate(msg)
	case MsgSetText:
		return s.handleSetText(msg)
	case MsgClose:
		return s.handleClose(msg)
	default:
		return false
	}
}

func (s *Server) handleCreate(msg Message) bool {
	w := int32(msg.C>>16) & 0xFFFF
	h := int32(msg.C) & 0xFFFF
	if w == 0 {
		w = 200
	}
	if h == 0 {
		h = 120
	}

	if slot := s.windowSlotByOwner(msg.SenderPID); slot >= 0 {
		s.windows[slot].Title = msg.Text
		s.focusTop(slot)
		return true
	}

	slot := s.allocWindow()
	if slot < 0 {
		return false
	}
	x, y := msg.A, msg.B
	if x < 0 || y < 0 {
		x, y = s.cascadePosition()
	}
	win := Window{Used: true, OwnerPID: msg.SenderPID, X: x, Y: y, W: w, H: h, Title: msg.Text}
	s.clampToWorkArea(&win)
	s.windows[slot] = win
	s.zOrder = append(s.zOrder, slot)
	return true
}

func (s *Server) handleSetText(msg Message) bool {
	slot := s.windowSlotByOwner(msg.SenderPID)
	if slot < 0 {
		// SET_TEXT from an unknown pid auto-creates a default window
		if !s.handleCreate(Message{SenderPID: msg.SenderPID, A: -1, B: -1}) {
			return false
		}
		slot = s.windowSlotByOwner(msg.SenderPID)
	}
	s.windows[slot].Body = msg.Text
	return true
}

func (s *Server) handleClose(msg Message) bool {
	slot := s.windowSlotByOwner(msg.SenderPID)
	if slot < 0 || s.windows[slot].System {
		return false
	}
	s.windows[slot] = Window{}
	for i, idx := range s.zOrder {
		if idx == slot {
			s.zOrder = append(s.zOrder[:i], s.zOrder[i+1:]...)
			break
		}
	}
	return true
}

// HitTest iterates zOrder front-to-back (i.e. the slice in reverse,
// since zOrder is stored back-to-front) and returns the first window
// whose rectangle contains (x, y).
func (s *Server) HitTest(x, y int32) (Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.zOrder) - 1; i >= 0; i-- {
		w := s.windows[s.zOrder[i]]
		if x >= w.X && x < w.X+w.W && y >= w.Y && y < w.Y+w.H {
			return w, true
		}
	}
	return Window{}, false
}

// HitTestCloseButton reports whether (x, y) falls within the
// close-button square at the title bar's right edge of the focused
// window.
func (s *Server) HitTestCloseButton(x, y int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.zOrder) == 0 {
		return false
	}
	w := s.windows[s.zOrder[len(s.zOrder)-1]]
	btn := int32(s.closeBtn)
	bx := w.X + w.W - btn
	by := w.Y
	return x >= bx && x < bx+btn && y >= by && y < by+btn
}

// FocusedWindow returns the back-most (focused) window.
func (s *Server) FocusedWindow() (Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.zOrder) == 0 {
		return Window{}, false
	}
	return s.windows[s.zOrder[len(s.zOrder)-1]], true
}

// ZOrder returns a copy of the current back-to-front index list.
func (s *Server) ZOrder() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.zOrder))
	copy(out, s.zOrder)
	return out
}
