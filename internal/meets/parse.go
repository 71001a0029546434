// Package meets parses meeting strings such as "MWF 10:00-10:50" or
// "TuTh 14:00 - 15:20" into model.Meeting values.
//
// Grammar:
//
//	meets = days SP+ time SP* "-" SP* time
//	days  = 1*( "M" / "Tu" / "W" / "Th" / "F" )
//	time  = 1*2DIGIT ":" 2DIGIT
package meets

import (
	"errors"
	"fmt"
	"strings"

	"coursesched/internal/model"
)

// ErrMalformed is matched by every error returned from Parse.
var ErrMalformed = errors.New("malformed meeting string")

// ParseError describes where and why a meeting string was rejected.
type ParseError struct {
	Input  string
	Pos    int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("meets %q: %s at offset %d", e.Input, e.Reason, e.Pos)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

type parser struct {
	in  string
	pos int
}

// Parse parses a meeting string. Leading and trailing whitespace is ignored.
func Parse(s string) (model.Meeting, error) {
	p := &parser{in: strings.TrimSpace(s)}

	days, err := p.days()
	if err != nil {
		return model.Meeting{}, err
	}
	if p.spaces() == 0 {
		return model.Meeting{}, p.fail("expected space after days")
	}
	start, err := p.clock()
	if err != nil {
		return model.Meeting{}, err
	}
	p.spaces()
	if !p.consume("-") {
		return model.Meeting{}, p.fail("expected '-' between times")
	}
	p.spaces()
	endPos := p.pos
	end, err := p.clock()
	if err != nil {
		return model.Meeting{}, err
	}
	if p.pos != len(p.in) {
		return model.Meeting{}, p.fail("unexpected trailing input")
	}
	if end <= start {
		return model.Meeting{}, &ParseError{Input: p.in, Pos: endPos, Reason: "end time is not after start time"}
	}

	return model.Meeting{Days: days, Start: start, End: end}, nil
}

func (p *parser) fail(reason string) *ParseError {
	return &ParseError{Input: p.in, Pos: p.pos, Reason: reason}
}

func (p *parser) consume(tok string) bool {
	if strings.HasPrefix(p.in[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) spaces() int {
	n := 0
	for p.pos < len(p.in) && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t') {
		p.pos++
		n++
	}
	return n
}

// days reads day tokens. Two-letter tokens are tried first so that "Th" is
// not read as an unknown "T".
func (p *parser) days() (model.DaySet, error) {
	var set model.DaySet
	for p.pos < len(p.in) {
		day, n := matchDay(p.in[p.pos:])
		if n == 0 {
			break
		}
		if set.Has(day) {
			return 0, p.fail("duplicate day")
		}
		set |= day
		p.pos += n
	}
	if set.Empty() {
		return 0, p.fail("expected day token (M, Tu, W, Th, F)")
	}
	return set, nil
}

func matchDay(s string) (model.DaySet, int) {
	if len(s) >= 2 {
		if d, ok := model.DayForToken(s[:2]); ok {
			return d, 2
		}
	}
	if len(s) >= 1 {
		if d, ok := model.DayForToken(s[:1]); ok {
			return d, 1
		}
	}
	return 0, 0
}

// clock reads H:MM or HH:MM and returns minutes since midnight.
func (p *parser) clock() (int, error) {
	start := p.pos
	hour, n := p.digits(2)
	if n == 0 {
		return 0, p.fail("expected hour")
	}
	if !p.consume(":") {
		return 0, p.fail("expected ':'")
	}
	minute, n := p.digits(2)
	if n != 2 {
		return 0, p.fail("expected two-digit minute")
	}
	if hour > 23 || minute > 59 {
		return 0, &ParseError{Input: p.in, Pos: start, Reason: "time out of range"}
	}
	return hour*60 + minute, nil
}

func (p *parser) digits(limit int) (int, int) {
	v, n := 0, 0
	for n < limit && p.pos < len(p.in) && p.in[p.pos] >= '0' && p.in[p.pos] <= '9' {
		v = v*10 + int(p.in[p.pos]-'0')
		p.pos++
		n++
	}
	return v, n
}
