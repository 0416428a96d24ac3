package dispatch

import (
	"time"

	"github.com/Ghost-ify/Namite/internal/chatcolor"
)

// Entry is one discovered username inside a batch, kept in submission order.
type Entry struct {
	Username  string          `json:"username"`
	Length    int             `json:"length"`
	Color     chatcolor.Color `json:"color"`
	ColorHex  string          `json:"color_hex"`
	CheckedAt time.Time       `json:"checked_at"`
}

// Batch is a bounded group of discovered usernames delivered as one
// notification.
type Batch struct {
	ID        string    `json:"id"`
	OpenedAt  time.Time `json:"opened_at"`
	Flushed   bool      `json:"flushed"`
	FlushedAt time.Time `json:"flushed_at,omitempty"`
	Entries   []Entry   `json:"entries"`
}

// Notice is a single high-value find delivered immediately, outside any
// batch. Mention asks the consumer to ping its audience.
type Notice struct {
	Username  string          `json:"username"`
	Length    int             `json:"length"`
	Color     chatcolor.Color `json:"color"`
	ColorHex  string          `json:"color_hex"`
	CheckedAt time.Time       `json:"checked_at"`
	Mention   bool            `json:"mention"`
}
