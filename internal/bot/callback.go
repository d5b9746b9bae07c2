package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Действия inline-кнопок. Формат callback data — "<action>:<id>".
const (
	ActionBook   = "book"
	ActionCancel = "cancel"
)

type Callback struct {
	Action string
	ID     int64
}

func BookData(slotID int64) string      { return fmt.Sprintf("%s:%d", ActionBook, slotID) }
func CancelData(bookingID int64) string { return fmt.Sprintf("%s:%d", ActionCancel, bookingID) }

func ParseCallback(data string) (Callback, error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return Callback{}, fmt.Errorf("bad callback %q", data)
	}
	switch action {
	case ActionBook, ActionCancel:
	default:
		return Callback{}, fmt.Errorf("unknown callback action %q", action)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return Callback{}, fmt.Errorf("bad callback id %q", rawID)
	}
	return Callback{Action: action, ID: id}, nil
}
