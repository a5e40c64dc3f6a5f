package sqlgen

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDisallowedSQL = errors.New("generated SQL is outside the allow-list")

// tableFunctions may appear where a relation is expected.
var tableFunctions = map[string]struct{}{
	"unnest":             {},
	"ml.predict":         {},
	"ml.forecast":        {},
	"ml.explain_predict": {},
	"ml.evaluate":        {},
}

// operandCalls take FROM as an argument separator, not a clause.
var operandCalls = map[string]struct{}{
	"extract":   {},
	"trim":      {},
	"substring": {},
	"overlay":   {},
}

// clauseKeywords end a comma separated FROM list.
var clauseKeywords = map[string]struct{}{
	"select":    {},
	"where":     {},
	"group":     {},
	"having":    {},
	"qualify":   {},
	"window":    {},
	"order":     {},
	"limit":     {},
	"union":     {},
	"except":    {},
	"intersect": {},
}

// Guard is an optional check run between generation and execution. It
// accepts a single read-only statement in which every relation read after
// FROM, JOIN, a FROM-list comma or MODEL is on the allow-list or names a
// common table expression of the statement.
type Guard struct {
	allowed map[string]struct{}
}

func NewGuard(tables, models []string) *Guard {
	allowed := make(map[string]struct{}, len(tables)+len(models))
	for _, name := range append(append([]string{}, tables...), models...) {
		allowed[strings.ToLower(name)] = struct{}{}
	}
	return &Guard{allowed: allowed}
}

func (g *Guard) Check(sql string) error {
	tokens, err := tokenize(sql)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDisallowedSQL, err)
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].is(";") {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return fmt.Errorf("%w: empty statement", ErrDisallowedSQL)
	}
	for _, tok := range tokens {
		if tok.is(";") {
			return fmt.Errorf("%w: multiple statements", ErrDisallowedSQL)
		}
	}
	first := 0
	for first < len(tokens) && tokens[first].is("(") {
		first++
	}
	if first == len(tokens) || !(tokens[first].is("select") || tokens[first].is("with")) {
		return fmt.Errorf("%w: only SELECT or WITH statements are allowed", ErrDisallowedSQL)
	}
	return g.checkRelations(tokens, cteNames(tokens))
}

type scope struct {
	call     string
	fromList bool
}

func (g *Guard) checkRelations(tokens []token, ctes map[string]struct{}) error {
	stack := []scope{{}}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		top := &stack[len(stack)-1]
		switch {
		case tok.is("("):
			call := ""
			if i > 0 && tokens[i-1].kind == tokenWord {
				call = tokens[i-1].text
			}
			stack = append(stack, scope{call: call})
			continue
		case tok.is(")"):
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		case tok.is("from"):
			if _, ok := operandCalls[top.call]; ok || isDistinctFrom(tokens, i) {
				continue
			}
			top.fromList = true
		case tok.is("join"):
		case tok.is(",") && top.fromList:
		case tok.is("model") && i > 0 && tokens[i-1].is("(") && i+1 < len(tokens) && tokens[i+1].isName():
		default:
			if tok.kind == tokenWord {
				if _, ok := clauseKeywords[tok.text]; ok {
					top.fromList = false
				}
			}
			continue
		}
		next, err := g.checkRelation(tokens, i+1, ctes)
		if err != nil {
			return err
		}
		i = next - 1
	}
	return nil
}

// checkRelation validates the relation starting at start and returns the
// index of the first token after its name.
func (g *Guard) checkRelation(tokens []token, start int, ctes map[string]struct{}) (int, error) {
	if start >= len(tokens) {
		return start, fmt.Errorf("%w: missing relation", ErrDisallowedSQL)
	}
	if tokens[start].is("(") {
		return start, nil
	}
	parts, next := relationPath(tokens, start)
	if len(parts) == 0 {
		return start, fmt.Errorf("%w: unsupported relation", ErrDisallowedSQL)
	}
	name := strings.Join(parts, ".")
	if next < len(tokens) && tokens[next].is("(") {
		if _, ok := tableFunctions[name]; ok {
			return next, nil
		}
		return next, fmt.Errorf("%w: table function %s is not allowed", ErrDisallowedSQL, name)
	}
	if len(parts) == 1 {
		if _, ok := ctes[name]; ok {
			return next, nil
		}
	}
	if _, ok := g.allowed[name]; !ok {
		return next, fmt.Errorf("%w: %s is not an allowed table or model", ErrDisallowedSQL, name)
	}
	return next, nil
}

// relationPath joins a dotted name whose parts may be bare or back-tick
// quoted, so `p.d`.t and p.d.t normalize alike.
func relationPath(tokens []token, start int) ([]string, int) {
	var parts []string
	i := start
	for i < len(tokens) && tokens[i].isName() {
		parts = append(parts, strings.Split(tokens[i].text, ".")...)
		i++
		if i+1 < len(tokens) && tokens[i].is(".") && tokens[i+1].isName() {
			i++
			continue
		}
		break
	}
	return parts, i
}

func isDistinctFrom(tokens []token, i int) bool {
	return i >= 2 && tokens[i-1].is("distinct") && (tokens[i-2].is("is") || tokens[i-2].is("not"))
}

// cteNames collects the names bound by WITH lists.
func cteNames(tokens []token) map[string]struct{} {
	names := map[string]struct{}{}
	for i := range tokens {
		if !tokens[i].is("with") {
			continue
		}
		j := i + 1
		if j < len(tokens) && tokens[j].is("recursive") {
			j++
		}
		for j < len(tokens) && tokens[j].isName() {
			name := tokens[j].text
			j++
			if j < len(tokens) && tokens[j].is("(") {
				j = skipParens(tokens, j)
			}
			if j+1 >= len(tokens) || !tokens[j].is("as") || !tokens[j+1].is("(") {
				break
			}
			names[name] = struct{}{}
			j = skipParens(tokens, j+1)
			if j >= len(tokens) || !tokens[j].is(",") {
				break
			}
			j++
		}
	}
	return names
}

func skipParens(tokens []token, start int) int {
	depth := 0
	for i := start; i < len(tokens); i++ {
		switch {
		case tokens[i].is("("):
			depth++
		case tokens[i].is(")"):
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(tokens)
}

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuoted
	tokenLiteral
	tokenSymbol
)

// token text is lower-cased; quoted tokens carry the text between back-ticks.
type token struct {
	kind tokenKind
	text string
}

func (t token) is(text string) bool {
	return (t.kind == tokenWord || t.kind == tokenSymbol) && t.text == text
}

func (t token) isName() bool {
	return t.kind == tokenWord || t.kind == tokenQuoted
}

// tokenize splits sql into words, back-tick identifiers, string literals and
// single-character symbols, dropping comments.
func tokenize(sql string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case c == '#' || strings.HasPrefix(sql[i:], "--"):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 1
			}
		case strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, errors.New("unterminated comment")
			}
			i += end + 4
		case c == '`':
			end := strings.IndexByte(sql[i+1:], '`')
			if end < 0 {
				return nil, errors.New("unterminated quoted identifier")
			}
			tokens = append(tokens, token{kind: tokenQuoted, text: strings.ToLower(sql[i+1 : i+1+end])})
			i += end + 2
		case c == '\'' || c == '"':
			n, err := literalLength(sql[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenLiteral})
			i += n
		case isWordByte(c):
			j := i
			for j < len(sql) && isWordByte(sql[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokenWord, text: strings.ToLower(sql[i:j])})
			i = j
		default:
			tokens = append(tokens, token{kind: tokenSymbol, text: string(c)})
			i++
		}
	}
	return tokens, nil
}

// literalLength measures a single, double or triple quoted string literal
// at the start of s.
func literalLength(s string) (int, error) {
	quote := s[0]
	triple := strings.Repeat(string(quote), 3)
	if strings.HasPrefix(s, triple) {
		end := strings.Index(s[3:], triple)
		if end < 0 {
			return 0, errors.New("unterminated string literal")
		}
		return end + 6, nil
	}
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1, nil
		}
	}
	return 0, errors.New("unterminated string literal")
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
