package navigator

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is the kind of navigation button pressed.
type Action string

const (
	ActionNext     Action = "n"
	ActionPrevious Action = "p"
	ActionJump     Action = "j"
)

func (a Action) String() string {
	switch a {
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "previous"
	case ActionJump:
		return "jump"
	default:
		return "unknown"
	}
}

const callbackPrefix = "rw"

// Callback is the payload carried by a navigation button. Index is the
// position the session was at when the button was rendered.
type Callback struct {
	Action Action
	Key    SessionKey
	Index  int
}

// Encode serialises the callback into button data. The result stays well
// below Telegram's 64 byte limit.
func (c Callback) Encode() string {
	return fmt.Sprintf("%s:%s:%d:%d:%d", callbackPrefix, string(c.Action), c.Key.ChatID, c.Key.MessageID, c.Index)
}

// DecodeCallback parses button data produced by Encode.
func DecodeCallback(data string) (Callback, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 5 || parts[0] != callbackPrefix {
		return Callback{}, fmt.Errorf("not a navigation callback: %q", data)
	}

	action := Action(parts[1])
	switch action {
	case ActionNext, ActionPrevious, ActionJump:
	default:
		return Callback{}, fmt.Errorf("unknown navigation action %q", parts[1])
	}

	chatID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Callback{}, fmt.Errorf("invalid chat id: %w", err)
	}
	messageID, err := strconv.Atoi(parts[3])
	if err != nil {
		return Callback{}, fmt.Errorf("invalid message id: %w", err)
	}
	index, err := strconv.Atoi(parts[4])
	if err != nil || index < 0 {
		return Callback{}, fmt.Errorf("invalid index %q", parts[4])
	}

	return Callback{
		Action: action,
		Key:    SessionKey{ChatID: chatID, MessageID: messageID},
		Index:  index,
	}, nil
}
