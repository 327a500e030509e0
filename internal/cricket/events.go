package cricket

// EventKind identifies a notification the transport relays to players.
type EventKind string

const (
	EventGameUpdate        EventKind = "game_update"
	EventTossResult        EventKind = "toss_result"
	EventRequestTossChoice EventKind = "request_toss_choice"
)

// Event is emitted by Match operations. Empty Recipients means every
// participant. A game update carries no payload; the transport renders the
// current State for each recipient.
type Event struct {
	Kind       EventKind
	Recipients []string
	Payload    any
}

type TossResult struct {
	Batter  *Player `json:"batter,omitempty"`
	Bowler  *Player `json:"bowler,omitempty"`
	Message string  `json:"message"`
}

type TossRequest struct {
	GameCode     string `json:"gameCode"`
	TossWinnerID string `json:"tossWinnerId"`
}

func updateEvent() Event { return Event{Kind: EventGameUpdate} }
