// Package soql builds and parses the SELECT statements sent to the CRM query
// endpoint.
package soql

import (
	"net/url"
	"strconv"
	"strings"
)

// FieldsAll selects every field of the object.
const FieldsAll = "FIELDS(ALL)"

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Value is a condition operand. Quoted values are escaped string literals,
// the rest are emitted as-is (date literals, numbers, booleans).
type Value struct {
	Text   string
	Quoted bool
}

func String(value string) Value {
	return Value{Text: value, Quoted: true}
}

// Literal is emitted verbatim. Only pass trusted text.
func Literal(value string) Value {
	return Value{Text: value}
}

func (v Value) render() string {
	if v.Quoted {
		return "'" + Escape(v.Text) + "'"
	}
	return v.Text
}

type Condition struct {
	Field    string
	Operator string
	Value    Value
}

func (c Condition) render() string {
	return c.Field + " " + c.Operator + " " + c.Value.render()
}

type Ordering struct {
	Field     string
	Direction Direction
}

// Query is a single-object SELECT statement. Builder methods return copies.
type Query struct {
	Fields     []string
	Object     string
	Conditions []Condition
	Order      *Ordering
	RowLimit   int
}

func Select(fields ...string) Query {
	return Query{Fields: append([]string(nil), fields...)}
}

func SelectAll() Query {
	return Query{Fields: []string{FieldsAll}}
}

func (q Query) From(object string) Query {
	q.Object = strings.TrimSpace(object)
	return q
}

// Where appends a condition; conditions are joined with AND.
func (q Query) Where(field string, operator string, value Value) Query {
	conditions := make([]Condition, 0, len(q.Conditions)+1)
	conditions = append(conditions, q.Conditions...)
	conditions = append(conditions, Condition{
		Field:    strings.TrimSpace(field),
		Operator: strings.TrimSpace(operator),
		Value:    value,
	})
	q.Conditions = conditions
	return q
}

func (q Query) Eq(field string, value string) Query {
	return q.Where(field, "=", String(value))
}

func (q Query) OrderBy(field string, direction Direction) Query {
	q.Order = &Ordering{Field: strings.TrimSpace(field), Direction: direction}
	return q
}

// Limit sets the row limit; values <= 0 omit the clause.
func (q Query) Limit(limit int) Query {
	q.RowLimit = limit
	return q
}

// AllFields reports whether the statement selects FIELDS(ALL).
func (q Query) AllFields() bool {
	return len(q.Fields) == 1 && strings.EqualFold(q.Fields[0], FieldsAll)
}

// Condition returns the first condition value for field.
func (q Query) Condition(field string) (string, bool) {
	for _, condition := range q.Conditions {
		if strings.EqualFold(condition.Field, field) {
			return condition.Value.Text, true
		}
	}
	return "", false
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.Object)
	for index, condition := range q.Conditions {
		if index == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(condition.render())
	}
	if q.Order != nil && q.Order.Field != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.Order.Field)
		if q.Order.Direction != "" {
			b.WriteString(" ")
			b.WriteString(string(q.Order.Direction))
		}
	}
	if q.RowLimit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.RowLimit))
	}
	return b.String()
}

// Params renders the statement as the query endpoint parameter string.
func (q Query) Params() string {
	return "?q=" + url.QueryEscape(q.String())
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Escape escapes a value for use inside a single-quoted SOQL literal.
func Escape(value string) string {
	return escaper.Replace(value)
}

// Unescape reverses Escape.
func Unescape(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for index := 0; index < len(value); index++ {
		ch := value[index]
		if ch != '\\' || index+1 == len(value) {
			b.WriteByte(ch)
			continue
		}
		index++
		switch value[index] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(value[index])
		}
	}
	return b.String()
}
