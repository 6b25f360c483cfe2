package replay

import (
	"regexp"
	"strings"
)

// Tag is a single semantic marker derived from a SAN token.
type Tag uint8

const (
	TagCapture Tag = 1 << iota
	TagCastleKingside
	TagCastleQueenside
	TagPromotion
	TagCheck
	TagCheckmate
)

var tagOrder = []Tag{TagCapture, TagCastleKingside, TagCastleQueenside, TagPromotion, TagCheck, TagCheckmate}

func (t Tag) String() string {
	switch t {
	case TagCapture:
		return "capture"
	case TagCastleKingside:
		return "castle-kingside"
	case TagCastleQueenside:
		return "castle-queenside"
	case TagPromotion:
		return "promotion"
	case TagCheck:
		return "check"
	case TagCheckmate:
		return "checkmate"
	default:
		return "unknown"
	}
}

// Classification is the set of tags attached to one move token.
type Classification uint8

func (c Classification) Has(t Tag) bool { return uint8(c)&uint8(t) != 0 }

func (c Classification) IsEmpty() bool { return c == 0 }

// GivesCheck reports check or checkmate; mate is stored without the check tag.
func (c Classification) GivesCheck() bool { return c.Has(TagCheck) || c.Has(TagCheckmate) }

func (c Classification) IsCastle() bool { return c.Has(TagCastleKingside) || c.Has(TagCastleQueenside) }

// Tags returns the set members in a stable order.
func (c Classification) Tags() []Tag {
	out := make([]Tag, 0, len(tagOrder))
	for _, t := range tagOrder {
		if c.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Names returns tag names in the same order as Tags.
func (c Classification) Names() []string {
	tags := c.Tags()
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.String()
	}
	return names
}

func (c Classification) String() string {
	return "{" + strings.Join(c.Names(), ",") + "}"
}

// sanPattern matches standard algebraic moves including disambiguators,
// promotions, castling (letter O or digit zero) and check/mate suffixes.
var sanPattern = regexp.MustCompile(`^(?:[KQRBN][a-h]?[1-8]?x?[a-h][1-8]|[a-h](?:x[a-h])?[1-8](?:=?[QRBN])?|O-O(?:-O)?|0-0(?:-0)?)(?:\+\+|\+|#)?$`)

// IsSAN reports whether token is shaped like a standard algebraic move.
func IsSAN(token string) bool {
	return sanPattern.MatchString(token)
}

// Classify derives the tag set of a move token from its text alone.
// Tokens that do not look like SAN degrade to the empty set.
func Classify(token string) Classification {
	token = strings.TrimRight(strings.TrimSpace(token), "!?")
	if !IsSAN(token) {
		return 0
	}

	var c Classification
	body := token
	switch {
	case strings.HasSuffix(body, "#"):
		c |= Classification(TagCheckmate)
		body = strings.TrimSuffix(body, "#")
	case strings.HasSuffix(body, "++"):
		c |= Classification(TagCheckmate)
		body = strings.TrimSuffix(body, "++")
	case strings.HasSuffix(body, "+"):
		c |= Classification(TagCheck)
		body = strings.TrimSuffix(body, "+")
	}

	switch body {
	case "O-O", "0-0":
		return c | Classification(TagCastleKingside)
	case "O-O-O", "0-0-0":
		return c | Classification(TagCastleQueenside)
	}

	if strings.Contains(body, "x") {
		c |= Classification(TagCapture)
	}
	if strings.Contains(body, "=") {
		c |= Classification(TagPromotion)
	}
	return c
}
