package replaydto

import "time"

type Player struct {
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
}

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// SessionState is the wire view of one replay session.
type SessionState struct {
	SessionID   string        `json:"session_id"`
	Loaded      bool          `json:"loaded"`
	Moves       []string      `json:"moves"`
	Cursor      int           `json:"cursor"`
	Total       int           `json:"total"`
	AtStart     bool          `json:"at_start"`
	AtEnd       bool          `json:"at_end"`
	LastMove    string        `json:"last_move,omitempty"`
	FEN         string        `json:"fen"`
	Outcome     string        `json:"outcome"`
	ResultToken string        `json:"result_token"`
	Revealed    bool          `json:"revealed"`
	White       Player        `json:"white"`
	Black       Player        `json:"black"`
	Material    MaterialScore `json:"material"`
	Opening     *Opening      `json:"opening,omitempty"`
}

// MoveEvent is the wire view of a classified forward step.
type MoveEvent struct {
	Ply    int      `json:"ply"`
	Token  string   `json:"token"`
	Tags   []string `json:"tags"`
	Sound  string   `json:"sound"`
	Accent string   `json:"accent,omitempty"`
}

const (
	FrameCue   = "cue"
	FrameState = "state"
)

// Frame is one message on the live stream of a session.
type Frame struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id"`
	Cue       *MoveEvent    `json:"cue,omitempty"`
	State     *SessionState `json:"state,omitempty"`
	At        time.Time     `json:"at"`
}

// RecordSummary lists a stored finished game.
type RecordSummary struct {
	ID      string    `json:"id"`
	White   Player    `json:"white"`
	Black   Player    `json:"black"`
	Result  string    `json:"result"`
	EndedAt time.Time `json:"ended_at"`
}
