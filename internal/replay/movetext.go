package replay

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/park285/cheese-replay/internal/domain"
)

// MoveList is the immutable ply-ordered token list of one loaded game.
type MoveList struct {
	tokens []string
}

// NewMoveList copies tokens into a MoveList without validating them.
func NewMoveList(tokens ...string) MoveList {
	return MoveList{tokens: append([]string(nil), tokens...)}
}

func (l MoveList) Len() int { return len(l.tokens) }

// At returns the token of ply i (0-based).
func (l MoveList) At(i int) string { return l.tokens[i] }

// Tokens returns a copy of the underlying tokens.
func (l MoveList) Tokens() []string { return append([]string(nil), l.tokens...) }

var (
	moveNumberPrefix = regexp.MustCompile(`^[0-9]+\.+`)
	tagPairPattern   = regexp.MustCompile(`\[\s*([A-Za-z0-9_]+)\s+"((?:[^"\\]|\\.)*)"\s*\]`)
)

// ParseMoveText splits a PGN move-text record into its main-line SAN tokens.
// Headers, comments, variations and NAGs are dropped; a result token ends the list.
func ParseMoveText(record string) (MoveList, error) {
	if strings.TrimSpace(record) == "" {
		return MoveList{}, &ParseError{Reason: "empty record", Index: -1}
	}

	clean, err := stripNonMoveText(record)
	if err != nil {
		return MoveList{}, err
	}

	var tokens []string
	ended := false
	for _, field := range strings.Fields(clean) {
		if strings.HasPrefix(field, "$") {
			continue
		}
		if isResultToken(field) {
			ended = true
			continue
		}
		tok := moveNumberPrefix.ReplaceAllString(field, "")
		if tok == "" {
			continue
		}
		if ended {
			return MoveList{}, &ParseError{Reason: "move after result token", Token: field, Index: len(tokens)}
		}
		tok = normalizeToken(tok)
		if !IsSAN(tok) {
			return MoveList{}, &ParseError{Reason: "unrecognised move token", Token: field, Index: len(tokens)}
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) == 0 {
		return MoveList{}, &ParseError{Reason: "no moves found", Index: -1}
	}
	return MoveList{tokens: tokens}, nil
}

// ParseHeaders returns the tag pairs of a PGN record. Later duplicates win.
func ParseHeaders(record string) map[string]string {
	out := make(map[string]string)
	for _, m := range tagPairPattern.FindAllStringSubmatch(record, -1) {
		v := strings.ReplaceAll(m[2], `\"`, `"`)
		v = strings.ReplaceAll(v, `\\`, `\`)
		out[m[1]] = v
	}
	return out
}

// HeaderPlayers reads both sides from the White/Black and WhiteElo/BlackElo tags.
// A missing or malformed rating is 0.
func HeaderPlayers(record string) (white, black domain.Player) {
	h := ParseHeaders(record)
	white = domain.Player{Name: strings.TrimSpace(h["White"]), Rating: parseElo(h["WhiteElo"])}
	black = domain.Player{Name: strings.TrimSpace(h["Black"]), Rating: parseElo(h["BlackElo"])}
	return white, black
}

func parseElo(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func normalizeToken(tok string) string {
	tok = strings.TrimRight(tok, "!?")
	switch {
	case strings.HasPrefix(tok, "0-0-0"):
		return "O-O-O" + strings.TrimPrefix(tok, "0-0-0")
	case strings.HasPrefix(tok, "0-0"):
		return "O-O" + strings.TrimPrefix(tok, "0-0")
	}
	return tok
}

// stripNonMoveText blanks out tag pairs, comments, escapes and variations.
func stripNonMoveText(record string) (string, error) {
	var b strings.Builder
	b.Grow(len(record))

	runes := []rune(record)
	depth := 0
	lineStart := true
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '%' && lineStart:
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
		case r == '{':
			end := indexRune(runes, i+1, '}')
			if end < 0 {
				return "", &ParseError{Reason: "unterminated comment", Index: -1}
			}
			i = end
			b.WriteByte(' ')
		case r == ';':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
		case r == '[' && depth == 0:
			end := tagEnd(runes, i+1)
			if end < 0 {
				return "", &ParseError{Reason: "unterminated tag pair", Index: -1}
			}
			i = end
			b.WriteByte(' ')
		case r == '(':
			depth++
			b.WriteByte(' ')
		case r == ')':
			depth--
			if depth < 0 {
				return "", &ParseError{Reason: "unbalanced variation", Index: -1}
			}
			b.WriteByte(' ')
		case depth > 0:
			// variation text is dropped
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
		lineStart = i < len(runes) && runes[i] == '\n'
	}
	if depth != 0 {
		return "", &ParseError{Reason: "unbalanced variation", Index: -1}
	}
	return b.String(), nil
}

func indexRune(runes []rune, from int, target rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

func tagEnd(runes []rune, from int) int {
	quoted := false
	for i := from; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			if quoted {
				i++
			}
		case '"':
			quoted = !quoted
		case ']':
			if !quoted {
				return i
			}
		}
	}
	return -1
}
