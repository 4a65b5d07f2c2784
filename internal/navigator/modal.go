package navigator

import "sync"

// ModalKind is the free-text sub-dialog currently waiting for a reply.
type ModalKind int

const (
	// ModalRegister waits for the Twitter username to link.
	ModalRegister ModalKind = iota + 1

	// ModalJump waits for the 1-based position to jump to.
	ModalJump
)

// Modal is a single-shot free-text interaction armed for one conversation.
type Modal struct {
	Kind ModalKind

	// Session is the navigation session a ModalJump applies to.
	Session SessionKey

	// Prompt is the message asking for the reply, deleted once answered.
	Prompt MessageRef
}

// Modals holds at most one pending modal per conversation. Arming a modal
// replaces whatever was pending for that conversation: a later modal wins.
type Modals struct {
	mu      sync.Mutex
	pending map[int64]Modal
}

// NewModals creates an empty registry.
func NewModals() *Modals {
	return &Modals{pending: make(map[int64]Modal)}
}

// Arm installs m as the pending modal of chatID.
func (m *Modals) Arm(chatID int64, modal Modal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[chatID] = modal
}

// Take removes and returns the pending modal of chatID.
func (m *Modals) Take(chatID int64) (Modal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	modal, ok := m.pending[chatID]
	if ok {
		delete(m.pending, chatID)
	}
	return modal, ok
}

// Clear drops the pending modal of chatID, if any.
func (m *Modals) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, chatID)
}
