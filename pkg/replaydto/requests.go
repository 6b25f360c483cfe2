package replaydto

import "time"

// LoadRequest carries either inline move text or the ID of a stored record.
type LoadRequest struct {
	PGN      string  `json:"pgn,omitempty"`
	RecordID string  `json:"record_id,omitempty"`
	White    *Player `json:"white,omitempty"`
	Black    *Player `json:"black,omitempty"`
}

type CreateSessionRequest struct {
	LoadRequest
	Flip bool `json:"flip,omitempty"`
}

type SessionResponse struct {
	State *SessionState `json:"state"`
}

type RecordsResponse struct {
	Records []RecordSummary `json:"records"`
}

type ErrorResponse struct {
	Error DomainError `json:"error"`
}

// SaveRecordRequest stores a finished game. ID is generated when empty.
type SaveRecordRequest struct {
	ID      string    `json:"id,omitempty"`
	PGN     string    `json:"pgn"`
	White   *Player   `json:"white,omitempty"`
	Black   *Player   `json:"black,omitempty"`
	EndedAt time.Time `json:"ended_at,omitempty"`
}

type SaveRecordResponse struct {
	ID string `json:"id"`
}
