package artifact

import (
	"strconv"
	"strings"
)

// Kind identifies which of the artifact's statement shapes a line has.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindInitial           // scoreboard players add @s <name> <n>
	KindCommand           // execute if score <target> <name> matches <n> run <payload>
	KindFinal             // execute if score <target> <name> matches <n>.. run scoreboard players set <target> <name> -1
)

func (k Kind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindCommand:
		return "command"
	case KindFinal:
		return "final"
	default:
		return "unrecognized"
	}
}

// Statement is a classified artifact line. Only the fields relevant to Kind
// are set.
type Statement struct {
	Kind    Kind
	Target  string // score holder, usually @s
	Name    string // scoreboard objective, i.e. the script name
	Counter int    // threshold, or the increment for KindInitial
	Payload string // KindCommand only

	// KindFinal only
	ResetTarget string
	ResetName   string
}

// Classify matches line against the three statement shapes. Tokens are
// separated by exactly one space; a payload is the rest of the line verbatim.
func Classify(line string) Statement {
	sc := &scanner{s: line}

	if sc.words("scoreboard", "players", "add", "@s") {
		name, ok := sc.token()
		if !ok || !sc.space() {
			return Statement{}
		}
		n, ok := sc.number()
		if !ok || !sc.done() {
			return Statement{}
		}
		return Statement{Kind: KindInitial, Target: "@s", Name: name, Counter: n}
	}

	sc.pos = 0
	if !sc.words("execute", "if", "score") {
		return Statement{}
	}
	target, ok := sc.token()
	if !ok || !sc.space() {
		return Statement{}
	}
	name, ok := sc.token()
	if !ok || !sc.space() || !sc.words("matches") {
		return Statement{}
	}
	n, ok := sc.number()
	if !ok {
		return Statement{}
	}

	if sc.literal("..") {
		if !sc.space() || !sc.words("run", "scoreboard", "players", "set") {
			return Statement{}
		}
		resetTarget, ok := sc.token()
		if !ok || !sc.space() {
			return Statement{}
		}
		resetName, ok := sc.token()
		if !ok || !sc.space() || !sc.literal("-1") || !sc.done() {
			return Statement{}
		}
		return Statement{
			Kind:        KindFinal,
			Target:      target,
			Name:        name,
			Counter:     n,
			ResetTarget: resetTarget,
			ResetName:   resetName,
		}
	}

	if !sc.space() || !sc.literal("run") || !sc.space() {
		return Statement{}
	}
	payload := sc.rest()
	if payload == "" {
		return Statement{}
	}
	return Statement{Kind: KindCommand, Target: target, Name: name, Counter: n, Payload: payload}
}

// scanner walks a single line left to right.
type scanner struct {
	s   string
	pos int
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\f' || c == '\r'
}

func (sc *scanner) done() bool {
	return sc.pos == len(sc.s)
}

func (sc *scanner) space() bool {
	if sc.pos < len(sc.s) && sc.s[sc.pos] == ' ' {
		sc.pos++
		return true
	}
	return false
}

func (sc *scanner) literal(lit string) bool {
	if strings.HasPrefix(sc.s[sc.pos:], lit) {
		sc.pos += len(lit)
		return true
	}
	return false
}

// words consumes each word followed by a single space.
func (sc *scanner) words(words ...string) bool {
	for _, w := range words {
		if !sc.literal(w) || !sc.space() {
			return false
		}
	}
	return true
}

func (sc *scanner) token() (string, bool) {
	start := sc.pos
	for sc.pos < len(sc.s) && !isSpace(sc.s[sc.pos]) {
		sc.pos++
	}
	return sc.s[start:sc.pos], sc.pos > start
}

func (sc *scanner) number() (int, bool) {
	start := sc.pos
	for sc.pos < len(sc.s) && sc.s[sc.pos] >= '0' && sc.s[sc.pos] <= '9' {
		sc.pos++
	}
	if sc.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(sc.s[start:sc.pos])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (sc *scanner) rest() string {
	r := sc.s[sc.pos:]
	sc.pos = len(sc.s)
	return r
}
