package navigator

import (
	"fmt"

	"github.com/blackmichael/tweet-rewind/internal/domain"
)

const (
	labelPrevious = "←"
	labelNext     = "→"

	// JumpPrompt asks the user for the position to jump to.
	JumpPrompt = "Now send me tweet index to jump to."

	// InvalidIndexMessage is sent when a jump reply is not a valid position.
	InvalidIndexMessage = "Invalid index value."
)

// YearsAgoHeader returns "1 year ago:" or "N years ago:".
func YearsAgoHeader(yearsAgo int) string {
	if yearsAgo == 1 {
		return "1 year ago:"
	}
	return fmt.Sprintf("%d years ago:", yearsAgo)
}

// RenderText is the text of a paginated rewind message.
func RenderText(p domain.BucketedPost) string {
	return YearsAgoHeader(p.YearsAgo) + "\n\n" + p.Permalink
}

// controls builds the previous / jump / next row for a session at index.
// Arrows that would leave the sequence are left out.
func controls(key SessionKey, index, length int) *Keyboard {
	row := make([]Button, 0, 3)
	if index > 0 {
		row = append(row, Button{
			Label: labelPrevious,
			Data:  Callback{Action: ActionPrevious, Key: key, Index: index}.Encode(),
		})
	}
	row = append(row, Button{
		Label: fmt.Sprintf("%d/%d", index+1, length),
		Data:  Callback{Action: ActionJump, Key: key, Index: index}.Encode(),
	})
	if index < length-1 {
		row = append(row, Button{
			Label: labelNext,
			Data:  Callback{Action: ActionNext, Key: key, Index: index}.Encode(),
		})
	}
	return &Keyboard{Rows: [][]Button{row}}
}
