package protocol

// Message tags of the room protocol.
const (
	TypeSyncState = "SYNC_STATE"
	TypePlay      = "PLAY"
	TypePause     = "PAUSE"
	TypeChangeURL = "CHANGE_URL"
	TypeSeek      = "SEEK"
)

// Inbound is a message received from the room broker. The set of
// implementations is closed: SyncState, Play, Pause, ChangeURL, Seek and
// Unrecognized.
type Inbound interface {
	inbound()
	Type() string
}

// Outbound is a message sent to the room broker: Play, Pause, ChangeURL or
// Seek.
type Outbound interface {
	outbound()
	Type() string
}

// SyncState is the full room snapshot sent once on join.
type SyncState struct {
	URL       string  `json:"url"`
	IsPlaying bool    `json:"is_playing"`
	Timestamp float64 `json:"timestamp"`
}

type Play struct{}

type Pause struct{}

type ChangeURL struct {
	URL string `json:"url"`
}

type Seek struct {
	Time float64 `json:"time"`
}

// Unrecognized carries the tag of a frame this client does not understand.
type Unrecognized struct {
	Tag string
}

func (SyncState) inbound()    {}
func (Play) inbound()         {}
func (Pause) inbound()        {}
func (ChangeURL) inbound()    {}
func (Seek) inbound()         {}
func (Unrecognized) inbound() {}

func (Play) outbound()      {}
func (Pause) outbound()     {}
func (ChangeURL) outbound() {}
func (Seek) outbound()      {}

func (SyncState) Type() string      { return TypeSyncState }
func (Play) Type() string           { return TypePlay }
func (Pause) Type() string          { return TypePause }
func (ChangeURL) Type() string      { return TypeChangeURL }
func (Seek) Type() string           { return TypeSeek }
func (u Unrecognized) Type() string { return u.Tag }
