package domain

import (
	"strconv"
	"strings"
	"time"
)

// Player labels one side of a replayed game. Consumed opaquely by the replay core.
type Player struct {
	Name   string
	Rating int
}

// Label renders "name (rating)" or just the name when the rating is unknown.
func (p Player) Label() string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "?"
	}
	if p.Rating <= 0 {
		return name
	}
	return name + " (" + strconv.Itoa(p.Rating) + ")"
}

// GameRecord is a finished game's move text plus its participants.
type GameRecord struct {
	ID        string
	PGN       string
	White     Player
	Black     Player
	Result    string
	EndedAt   time.Time
	CreatedAt time.Time
}
