package hsn

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ParseCodeList decodes a goods_hsns value into its codes.
//
// The column holds a list literal such as "['100110', '200220']" or
// "[1001, 2002]". Each element is returned in its string form: strings
// unquoted, integers in decimal (hex, octal and binary included), and
// nested lists, tuples, dicts and sets in their printed form, so
// "['1001', ['x']]" yields "1001" and "['x']". Anything that is not a list
// literal (a bare code, a tuple, unbalanced quotes, an empty field)
// decodes to an empty list. Decoding never fails: legacy rows degrade to
// "no codes" instead of aborting a batch.
func ParseCodeList(raw string) []string {
	p := &literalParser{src: strings.TrimSpace(raw)}
	codes, ok := p.list()
	if !ok {
		return []string{}
	}
	return codes
}

type literalParser struct {
	src string
	pos int
}

// value is a decoded element: str is its string form, repr its printed
// form inside a container. They differ only for strings.
type value struct {
	str  string
	repr string
}

func plain(s string) value { return value{str: s, repr: s} }

func (p *literalParser) list() ([]string, bool) {
	if !p.consume('[') {
		return nil, false
	}
	items, _, ok := p.seq(']')
	if !ok {
		return nil, false
	}
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.str
	}
	return out, p.done()
}

// seq reads comma-separated elements up to and including end. The second
// result reports a comma before end.
func (p *literalParser) seq(end byte) ([]value, bool, bool) {
	items := []value{}
	p.skipSpace()
	if p.consume(end) {
		return items, false, true
	}
	for {
		p.skipSpace()
		v, ok := p.element()
		if !ok {
			return nil, false, false
		}
		items = append(items, v)
		p.skipSpace()
		if p.consume(end) {
			return items, false, true
		}
		if !p.consume(',') {
			return nil, false, false
		}
		p.skipSpace()
		if p.consume(end) {
			return items, true, true
		}
	}
}

func (p *literalParser) element() (value, bool) {
	if p.eof() {
		return value{}, false
	}
	c := p.src[p.pos]
	switch {
	case c == '\'' || c == '"':
		s, ok := p.stringLit()
		return value{str: s, repr: quoteRepr(s)}, ok
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		s, ok := p.number()
		return plain(s), ok
	case c == '[':
		p.pos++
		items, _, ok := p.seq(']')
		return plain("[" + joinRepr(items) + "]"), ok
	case c == '(':
		p.pos++
		items, trailing, ok := p.seq(')')
		switch {
		case !ok:
			return value{}, false
		case len(items) == 1 && !trailing:
			// parentheses only group
			return items[0], true
		case len(items) == 1:
			return plain("(" + items[0].repr + ",)"), true
		}
		return plain("(" + joinRepr(items) + ")"), true
	case c == '{':
		p.pos++
		return p.braced()
	case isIdentStart(c):
		switch ident := p.ident(); ident {
		case "True", "False", "None":
			return plain(ident), true
		}
		return value{}, false
	default:
		return value{}, false
	}
}

// braced reads a dict or set literal after its opening brace.
func (p *literalParser) braced() (value, bool) {
	p.skipSpace()
	if p.consume('}') {
		return plain("{}"), true
	}
	first, ok := p.element()
	if !ok || !hashable(first) {
		return value{}, false
	}
	p.skipSpace()
	if !p.consume(':') {
		items := []value{first}
		for {
			p.skipSpace()
			if p.consume('}') {
				return plain("{" + joinRepr(items) + "}"), true
			}
			if !p.consume(',') {
				return value{}, false
			}
			p.skipSpace()
			if p.consume('}') {
				return plain("{" + joinRepr(items) + "}"), true
			}
			v, ok := p.element()
			if !ok || !hashable(v) {
				return value{}, false
			}
			items = append(items, v)
		}
	}

	var entries []string
	key := first
	for {
		p.skipSpace()
		v, ok := p.element()
		if !ok {
			return value{}, false
		}
		entries = append(entries, key.repr+": "+v.repr)
		p.skipSpace()
		if p.consume('}') {
			return plain("{" + strings.Join(entries, ", ") + "}"), true
		}
		if !p.consume(',') {
			return value{}, false
		}
		p.skipSpace()
		if p.consume('}') {
			return plain("{" + strings.Join(entries, ", ") + "}"), true
		}
		if key, ok = p.element(); !ok || !hashable(key) {
			return value{}, false
		}
		p.skipSpace()
		if !p.consume(':') {
			return value{}, false
		}
	}
}

// hashable rejects lists, dicts and sets as dict keys or set members.
func hashable(v value) bool {
	return !strings.HasPrefix(v.repr, "[") && !strings.HasPrefix(v.repr, "{")
}

func joinRepr(items []value) string {
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = v.repr
	}
	return strings.Join(parts, ", ")
}

// quoteRepr prints s the way the literal syntax does: single quotes unless
// s holds a single quote and no double quote.
func quoteRepr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var sb strings.Builder
	sb.WriteByte(quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' || c == quote:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

// stringLit reads one quoted string plus any adjacent quoted strings, which
// the literal syntax concatenates.
func (p *literalParser) stringLit() (string, bool) {
	var sb strings.Builder
	for {
		s, ok := p.quoted()
		if !ok {
			return "", false
		}
		sb.WriteString(s)
		save := p.pos
		p.skipSpace()
		if p.eof() || (p.src[p.pos] != '\'' && p.src[p.pos] != '"') {
			p.pos = save
			return sb.String(), true
		}
	}
}

func (p *literalParser) quoted() (string, bool) {
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), true
		case c == '\n':
			return "", false
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", false
			}
			next := p.src[p.pos+1]
			switch next {
			case '\\', '\'', '"':
				sb.WriteByte(next)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				// unknown escapes are kept verbatim
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			p.pos += 2
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", false
}

func (p *literalParser) number() (string, bool) {
	start := p.pos
	neg := false
	if c := p.src[p.pos]; c == '-' || c == '+' {
		neg = c == '-'
		p.pos++
		p.skipSpace()
	}
	if p.pos+1 < len(p.src) && p.src[p.pos] == '0' && strings.IndexByte("xXoObB", p.src[p.pos+1]) >= 0 {
		return p.radixInt(start, neg)
	}
	bodyStart := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if isDigit(c) || c == '_' || c == '.' || c == 'e' || c == 'E' ||
			((c == '+' || c == '-') && p.pos > bodyStart && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E')) {
			p.pos++
			continue
		}
		break
	}
	body := p.src[bodyStart:p.pos]
	if body == "" || strings.HasPrefix(body, "_") || strings.HasSuffix(body, "_") || strings.Contains(body, "__") {
		p.pos = start
		return "", false
	}
	clean := strings.ReplaceAll(body, "_", "")

	if !strings.ContainsAny(clean, ".eE") {
		if len(clean) > 1 && clean[0] == '0' && strings.Trim(clean, "0") != "" {
			// leading zeros are not a valid integer literal
			return "", false
		}
		digits := strings.TrimLeft(clean, "0")
		if digits == "" {
			return "0", true
		}
		if neg {
			return "-" + digits, true
		}
		return digits, true
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return "", false
	}
	if neg {
		v = -v
	}
	return formatFloat(v), true
}

// radixInt reads a hex, octal or binary integer and renders it in decimal.
func (p *literalParser) radixInt(start int, neg bool) (string, bool) {
	bodyStart := p.pos
	p.pos += 2
	for !p.eof() && (isIdentStart(p.src[p.pos]) || isDigit(p.src[p.pos])) {
		p.pos++
	}
	n, ok := new(big.Int).SetString(p.src[bodyStart:p.pos], 0)
	if !ok {
		p.pos = start
		return "", false
	}
	if neg {
		n.Neg(n)
	}
	return n.String(), true
}

// formatFloat renders v the way the literal syntax prints floats:
// fixed notation with at least one decimal between 1e-4 and 1e16,
// scientific outside that range.
func formatFloat(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	return strconv.FormatFloat(v, 'e', -1, 64)
}

func (p *literalParser) ident() string {
	start := p.pos
	for !p.eof() && (isIdentStart(p.src[p.pos]) || isDigit(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *literalParser) consume(c byte) bool {
	if !p.eof() && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) done() bool {
	p.skipSpace()
	return p.eof()
}

func (p *literalParser) eof() bool {
	return p.pos >= len(p.src)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
