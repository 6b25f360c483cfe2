package replay

import "strings"

// Outcome is the terminal result announced by a move-text record.
type Outcome int

const (
	Undetermined Outcome = iota
	WhiteWins
	BlackWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case WhiteWins:
		return "white_wins"
	case BlackWins:
		return "black_wins"
	case Draw:
		return "draw"
	default:
		return "undetermined"
	}
}

// ResultToken returns the PGN result token for the outcome ("*" when undecided).
func (o Outcome) ResultToken() string {
	switch o {
	case WhiteWins:
		return "1-0"
	case BlackWins:
		return "0-1"
	case Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func (o Outcome) Decided() bool { return o != Undetermined }

// ResolveOutcome reads the last whitespace-delimited token of the record.
// Anything other than a standard result token is Undetermined.
func ResolveOutcome(record string) Outcome {
	fields := strings.Fields(record)
	if len(fields) == 0 {
		return Undetermined
	}
	return outcomeFromToken(fields[len(fields)-1])
}

func outcomeFromToken(tok string) Outcome {
	switch tok {
	case "1-0":
		return WhiteWins
	case "0-1":
		return BlackWins
	case "1/2-1/2", "½-½":
		return Draw
	default:
		return Undetermined
	}
}

func isResultToken(tok string) bool {
	return tok == "*" || outcomeFromToken(tok) != Undetermined
}
