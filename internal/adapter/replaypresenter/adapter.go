package replaypresenter

import (
	"github.com/park285/cheese-replay/internal/chessrules"
	"github.com/park285/cheese-replay/internal/domain"
	"github.com/park285/cheese-replay/internal/replay"
	"github.com/park285/cheese-replay/pkg/replaydto"
)

func ToDTOState(sessionID string, st replay.State) *replaydto.SessionState {
	out := &replaydto.SessionState{
		SessionID:   sessionID,
		Loaded:      st.Loaded,
		Moves:       st.Moves.Tokens(),
		Cursor:      st.Cursor,
		Total:       st.Len(),
		AtStart:     st.AtStart(),
		AtEnd:       st.AtEnd(),
		LastMove:    st.LastToken(),
		Outcome:     st.Outcome.String(),
		ResultToken: st.Outcome.ResultToken(),
		Revealed:    st.Revealed,
		White:       ToDTOPlayer(st.White),
		Black:       ToDTOPlayer(st.Black),
	}
	if out.Moves == nil {
		out.Moves = []string{}
	}
	if st.Board != nil {
		out.FEN = st.Board.FEN()
	}
	if cb, ok := chessrules.AsBoard(st.Board); ok {
		m := cb.Material()
		out.Material = replaydto.MaterialScore{White: m.White, Black: m.Black}
		if code, title := cb.Opening(); code != "" {
			out.Opening = &replaydto.Opening{Code: code, Title: title}
		}
	}
	return out
}

func ToDTOEvent(ev replay.MoveEvent) *replaydto.MoveEvent {
	tags := ev.Classification.Names()
	if tags == nil {
		tags = []string{}
	}
	return &replaydto.MoveEvent{
		Ply:    ev.Ply,
		Token:  ev.Token,
		Tags:   tags,
		Sound:  string(ev.Cue.Sound),
		Accent: string(ev.Cue.Accent),
	}
}

func ToDTOPlayer(p domain.Player) replaydto.Player {
	return replaydto.Player{Name: p.Name, Rating: p.Rating}
}

func FromDTOPlayer(p *replaydto.Player) domain.Player {
	if p == nil {
		return domain.Player{}
	}
	return domain.Player{Name: p.Name, Rating: p.Rating}
}

func ToDTORecord(r domain.GameRecord) replaydto.RecordSummary {
	return replaydto.RecordSummary{
		ID:      r.ID,
		White:   ToDTOPlayer(r.White),
		Black:   ToDTOPlayer(r.Black),
		Result:  r.Result,
		EndedAt: r.EndedAt,
	}
}
