// Package sqlt compiles parameterized SQL expressed as literal text
// interleaved with typed values. Each interpolated value carries an
// explicit kind:
//
//   - Value: ordinary data, always bound or escaped as a literal
//   - Ident: a table/column name drawn from a fixed internal whitelist,
//     escaped as a SQL identifier
//   - Raw: a keyword fragment such as ASC/DESC, validated and spliced
//     verbatim
//
// Two backends produce equivalent queries from the same input: Bind emits
// a $1..$n placeholder string plus a positional argument slice for drivers
// that support parameter binding, and Inline emits a single fully-escaped
// flat string for clients that accept only plain SQL text.
//
// Ident and Raw must never be fed attacker-controlled input. Free text
// (search terms, form fields) enters exclusively through Value, where it
// is bound or escaped as data and can never alter query structure.
package sqlt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// kind discriminates the three interpolation categories.
type kind int

const (
	kindValue kind = iota
	kindIdent
	kindRaw
)

// Fragment is one interpolated position in a query.
type Fragment struct {
	kind kind
	val  any
}

// Value tags v as an ordinary data literal. v must be a string, bool,
// nil, or any integer/float type; compilation fails on anything else.
func Value(v any) Fragment { return Fragment{kind: kindValue, val: v} }

// Ident tags name as a SQL identifier (table or column name). Callers must
// only pass names from a fixed internal map, never user input.
func Ident(name string) Fragment { return Fragment{kind: kindIdent, val: name} }

// Raw tags s as a bare SQL keyword fragment (e.g. "ASC"). Compilation
// rejects anything that is not a plain keyword sequence.
func Raw(s string) Fragment { return Fragment{kind: kindRaw, val: s} }

// Query is an immutable alternation of text pieces and fragments, built
// with New and Text/Add.
type Query struct {
	text  []string
	frags []Fragment
}

// New starts a query with its leading text.
func New(text string) *Query {
	return &Query{text: []string{text}}
}

// Add appends a fragment followed by the next text piece.
func (q *Query) Add(f Fragment, text string) *Query {
	q.frags = append(q.frags, f)
	q.text = append(q.text, text)
	return q
}

// Text appends literal SQL text to the current tail piece.
func (q *Query) Text(text string) *Query {
	q.text[len(q.text)-1] += text
	return q
}

// rawPattern accepts keyword fragments only: letters and single interior
// spaces, as in "ASC" or "NULLS LAST".
var rawPattern = regexp.MustCompile(`^[A-Za-z]+( [A-Za-z]+)*$`)

// Bind compiles the query for a parameter-binding driver. Values become
// $1..$n placeholders with a matching positional argument slice;
// identifiers and raw fragments are spliced into the text because they
// cannot occupy bind positions.
func (q *Query) Bind() (string, []any, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString(q.text[0])
	for i, f := range q.frags {
		switch f.kind {
		case kindValue:
			if err := checkValue(f.val); err != nil {
				return "", nil, err
			}
			args = append(args, f.val)
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(len(args)))
		case kindIdent:
			id, err := quoteIdent(f.val)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(id)
		case kindRaw:
			raw, err := checkRaw(f.val)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(raw)
		}
		sb.WriteString(q.text[i+1])
	}

	return sb.String(), args, nil
}

// Inline compiles the query to a single flat string with every value
// pre-escaped as a Postgres literal. Used for the hosted SQL client, which
// accepts only plain strings.
func (q *Query) Inline() (string, error) {
	var sb strings.Builder

	sb.WriteString(q.text[0])
	for i, f := range q.frags {
		switch f.kind {
		case kindValue:
			lit, err := quoteLiteral(f.val)
			if err != nil {
				return "", err
			}
			sb.WriteString(lit)
		case kindIdent:
			id, err := quoteIdent(f.val)
			if err != nil {
				return "", err
			}
			sb.WriteString(id)
		case kindRaw:
			raw, err := checkRaw(f.val)
			if err != nil {
				return "", err
			}
			sb.WriteString(raw)
		}
		sb.WriteString(q.text[i+1])
	}

	return sb.String(), nil
}

// checkValue rejects value types neither backend can represent.
func checkValue(v any) error {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	default:
		return fmt.Errorf("sqlt: unsupported value type %T", v)
	}
}

// quoteLiteral renders v as a self-contained Postgres literal. Strings are
// single-quoted with '' doubling; backslashes are escaped through the E''
// form so the result is safe regardless of standard_conforming_strings.
func quoteLiteral(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if t {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return quoteString(t), nil
	case int:
		return strconv.FormatInt(int64(t), 10), nil
	case int8:
		return strconv.FormatInt(int64(t), 10), nil
	case int16:
		return strconv.FormatInt(int64(t), 10), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("sqlt: unsupported value type %T", v)
	}
}

// quoteString escapes s as a Postgres string literal. NUL bytes are
// rejected by Postgres inside literals and are stripped here.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	hasBackslash := strings.Contains(s, `\`)
	s = strings.ReplaceAll(s, "'", "''")
	if hasBackslash {
		return "E'" + strings.ReplaceAll(s, `\`, `\\`) + "'"
	}
	return "'" + s + "'"
}

// quoteIdent escapes an identifier with double quotes and " doubling.
func quoteIdent(v any) (string, error) {
	name, ok := v.(string)
	if !ok || name == "" {
		return "", fmt.Errorf("sqlt: identifier must be a non-empty string, got %T", v)
	}
	if strings.Contains(name, "\x00") {
		return "", fmt.Errorf("sqlt: identifier contains NUL byte")
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`, nil
}

// checkRaw validates a raw keyword fragment.
func checkRaw(v any) (string, error) {
	s, ok := v.(string)
	if !ok || !rawPattern.MatchString(s) {
		return "", fmt.Errorf("sqlt: raw fragment %q is not a plain keyword sequence", v)
	}
	return s, nil
}
