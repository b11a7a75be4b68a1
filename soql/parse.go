package soql

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-crmquery/core"
)

const (
	kwFrom    = " FROM "
	kwWhere   = " WHERE "
	kwOrderBy = " ORDER BY "
	kwLimit   = " LIMIT "
	kwAnd     = " AND "
)

var operators = []string{"!=", "<=", ">=", "=", "<", ">", "NOT IN", "LIKE", "IN"}

// ParseParams recovers the statement from a "?q=..." parameter string.
func ParseParams(params string) (Query, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(params), "?"))
	if err != nil {
		return Query{}, core.BadInputError(fmt.Sprintf("soql: invalid params: %v", err))
	}
	statement := values.Get("q")
	if strings.TrimSpace(statement) == "" {
		return Query{}, core.BadInputError("soql: params carry no q statement")
	}
	return Parse(statement)
}

// Parse reads a statement in the shape produced by Query.String.
func Parse(statement string) (Query, error) {
	text := strings.TrimSpace(statement)
	if len(text) < len("SELECT ") || !strings.EqualFold(text[:len("SELECT ")], "SELECT ") {
		return Query{}, core.BadInputError("soql: statement must start with SELECT")
	}
	rest := text[len("SELECT "):]

	fromAt := indexKeyword(rest, kwFrom)
	if fromAt < 0 {
		return Query{}, core.BadInputError("soql: statement has no FROM clause")
	}
	q := Query{}
	for _, field := range strings.Split(rest[:fromAt], ",") {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			q.Fields = append(q.Fields, trimmed)
		}
	}
	if len(q.Fields) == 0 {
		return Query{}, core.BadInputError("soql: statement selects no fields")
	}
	rest = rest[fromAt+len(kwFrom):]

	clauses := []string{kwWhere, kwOrderBy, kwLimit}
	head, keyword, tail := cutFirst(rest, clauses)
	q.Object = strings.TrimSpace(head)
	if q.Object == "" {
		return Query{}, core.BadInputError("soql: statement has no object")
	}

	for keyword != "" {
		clauses = clausesAfter(clauses, keyword)
		var body string
		current := keyword
		body, keyword, tail = cutFirst(tail, clauses)
		body = strings.TrimSpace(body)

		switch current {
		case kwWhere:
			for _, part := range splitKeyword(body, kwAnd) {
				condition, err := parseCondition(part)
				if err != nil {
					return Query{}, err
				}
				q.Conditions = append(q.Conditions, condition)
			}
		case kwOrderBy:
			fields := strings.Fields(body)
			if len(fields) == 0 {
				return Query{}, core.BadInputError("soql: empty ORDER BY clause")
			}
			ordering := &Ordering{Field: fields[0]}
			if len(fields) > 1 {
				ordering.Direction = Direction(strings.ToUpper(fields[1]))
			}
			q.Order = ordering
		case kwLimit:
			limit, err := strconv.Atoi(body)
			if err != nil || limit < 0 {
				return Query{}, core.BadInputError(fmt.Sprintf("soql: invalid LIMIT %q", body))
			}
			q.RowLimit = limit
		}
	}
	return q, nil
}

func parseCondition(text string) (Condition, error) {
	text = strings.TrimSpace(text)
	end := strings.IndexAny(text, " =<>!")
	if end <= 0 {
		return Condition{}, core.BadInputError(fmt.Sprintf("soql: invalid condition %q", text))
	}
	condition := Condition{Field: text[:end]}
	rest := strings.TrimSpace(text[end:])
	for _, operator := range operators {
		if len(rest) >= len(operator) && strings.EqualFold(rest[:len(operator)], operator) {
			condition.Operator = operator
			rest = strings.TrimSpace(rest[len(operator):])
			break
		}
	}
	if condition.Operator == "" || rest == "" {
		return Condition{}, core.BadInputError(fmt.Sprintf("soql: invalid condition %q", text))
	}
	if len(rest) >= 2 && rest[0] == '\'' && rest[len(rest)-1] == '\'' {
		condition.Value = String(Unescape(rest[1 : len(rest)-1]))
	} else {
		condition.Value = Literal(rest)
	}
	return condition, nil
}

func clausesAfter(clauses []string, keyword string) []string {
	for index, clause := range clauses {
		if clause == keyword {
			return clauses[index+1:]
		}
	}
	return nil
}

// cutFirst splits s at the earliest keyword found outside string literals.
func cutFirst(s string, keywords []string) (string, string, string) {
	best, bestKeyword := -1, ""
	for _, keyword := range keywords {
		at := indexKeyword(s, keyword)
		if at >= 0 && (best < 0 || at < best) {
			best, bestKeyword = at, keyword
		}
	}
	if best < 0 {
		return s, "", ""
	}
	return s[:best], bestKeyword, s[best+len(bestKeyword):]
}

func splitKeyword(s string, keyword string) []string {
	parts := []string{}
	for {
		at := indexKeyword(s, keyword)
		if at < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:at])
		s = s[at+len(keyword):]
	}
}

// indexKeyword finds keyword case-insensitively, skipping quoted literals.
func indexKeyword(s string, keyword string) int {
	quoted := false
	for index := 0; index < len(s); index++ {
		ch := s[index]
		if quoted {
			if ch == '\\' {
				index++
				continue
			}
			if ch == '\'' {
				quoted = false
			}
			continue
		}
		if ch == '\'' {
			quoted = true
			continue
		}
		if len(s)-index >= len(keyword) && strings.EqualFold(s[index:index+len(keyword)], keyword) {
			return index
		}
	}
	return -1
}
