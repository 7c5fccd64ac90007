package domain

import (
	"errors"
	"strings"
)

var ErrInvalidRoomID = errors.New("invalid room id")

// RoomID addresses both the connection path and the room on the broker.
// Codes are case-insensitive; the canonical form is upper case.
type RoomID string

func NewRoomID(raw string) (RoomID, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if id == "" || strings.ContainsAny(id, "/?# ") {
		return "", ErrInvalidRoomID
	}

	return RoomID(id), nil
}

func (id RoomID) String() string {
	return string(id)
}
