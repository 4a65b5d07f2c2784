package navigator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blackmichael/tweet-rewind/internal/metrics"
)

var errTransport = errors.New("telegram is down")

type sentMessage struct {
	Ref      MessageRef
	Text     string
	Keyboard *Keyboard
}

// fakeMessenger records outgoing traffic. failSendAfter makes every send
// after the first n fail; a negative value never fails.
type fakeMessenger struct {
	mu            sync.Mutex
	nextID        int
	sends         []sentMessage
	edits         []sentMessage
	deleted       []MessageRef
	failSendAfter int
	failEdit      bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100, failSendAfter: -1}
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string, kb *Keyboard) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSendAfter >= 0 && len(f.sends) >= f.failSendAfter {
		return MessageRef{}, errTransport
	}
	f.nextID++
	ref := MessageRef{ChatID: chatID, MessageID: f.nextID}
	f.sends = append(f.sends, sentMessage{Ref: ref, Text: text, Keyboard: kb})
	return ref, nil
}

func (f *fakeMessenger) EditText(_ context.Context, ref MessageRef, text string, kb *Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit {
		return errTransport
	}
	f.edits = append(f.edits, sentMessage{Ref: ref, Text: text, Keyboard: kb})
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeMessenger) lastEdit() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits[len(f.edits)-1]
}

func (f *fakeMessenger) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, len(f.sends))
	for i, s := range f.sends {
		texts[i] = s.Text
	}
	return texts
}

func newTestController(m Messenger, opts Options) *Controller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewController(m, NewModals(), metrics.New(prometheus.NewRegistry()), logger, opts)
}

func buttonLabels(kb *Keyboard) []string {
	if kb == nil {
		return nil
	}
	var labels []string
	for _, row := range kb.Rows {
		for _, b := range row {
			labels = append(labels, b.Label)
		}
	}
	return labels
}

func buttonData(kb *Keyboard, label string) string {
	for _, row := range kb.Rows {
		for _, b := range row {
			if b.Label == label {
				return b.Data
			}
		}
	}
	return ""
}
