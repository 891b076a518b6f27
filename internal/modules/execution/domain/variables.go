package domain

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// variablesPattern matches a `variables { ... }` line. The object may span
// lines but cannot contain a nested closing brace.
var variablesPattern = regexp.MustCompile(`(?m)^\s*variables\s*(\{[^}]*\})\s*$`)

type Query struct {
	Text      string
	Variables map[string]any
}

type VariablesError struct {
	Err error
}

func (e *VariablesError) Error() string {
	return "Unable to parse 'variables': " + e.Err.Error()
}

func (e *VariablesError) Unwrap() error { return e.Err }

// ParseCell splits cell text into the query body and the first embedded
// variables block, if any.
func ParseCell(content string) (Query, error) {
	loc := variablesPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return Query{Text: strings.TrimSpace(content)}, nil
	}
	raw := content[loc[2]:loc[3]]
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	variables := map[string]any{}
	if err := dec.Decode(&variables); err != nil {
		return Query{}, &VariablesError{Err: err}
	}
	text := content[:loc[0]] + content[loc[1]:]
	return Query{Text: strings.TrimSpace(text), Variables: variables}, nil
}
