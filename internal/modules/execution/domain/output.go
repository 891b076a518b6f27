package domain

import (
	"bytes"
	"encoding/json"
)

const (
	MIMEJSON   = "application/json"
	jsonIndent = "    "
)

// Output is the single artifact a cell execution leaves behind.
type Output struct {
	MIME string
	Data []byte
}

func (o Output) String() string {
	return string(o.Data)
}

// NewJSONOutput encodes value with four-space indentation.
func NewJSONOutput(value any) Output {
	buf := bytes.Buffer{}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(value); err != nil {
		return NewJSONOutput(map[string]string{"message": "unable to encode output: " + err.Error()})
	}
	return Output{MIME: MIMEJSON, Data: bytes.TrimSuffix(buf.Bytes(), []byte("\n"))}
}

// NewRawJSONOutput re-indents an already encoded value, keeping key order.
func NewRawJSONOutput(raw json.RawMessage) Output {
	if len(bytes.TrimSpace(raw)) == 0 {
		return NewJSONOutput(nil)
	}
	buf := bytes.Buffer{}
	if err := json.Indent(&buf, raw, "", jsonIndent); err != nil {
		return NewJSONOutput(string(raw))
	}
	return Output{MIME: MIMEJSON, Data: buf.Bytes()}
}

// ErrorOutput renders err as the cell's output. Errors that know their JSON
// form marshal themselves; anything else becomes {"message": ...}.
func ErrorOutput(err error) Output {
	if m, ok := err.(json.Marshaler); ok {
		if raw, mErr := m.MarshalJSON(); mErr == nil {
			return NewRawJSONOutput(raw)
		}
	}
	return NewJSONOutput(map[string]string{"message": err.Error()})
}
