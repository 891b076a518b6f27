package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type GraphQLError struct {
	Message   string          `json:"message"`
	Type      string          `json:"type,omitempty"`
	Path      []any           `json:"path,omitempty"`
	Locations json.RawMessage `json:"locations,omitempty"`
}

// QueryError is returned when the API answers with a GraphQL `errors` array.
type QueryError struct {
	Errors []GraphQLError
	Data   json.RawMessage
}

func (e *QueryError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, gqlErr := range e.Errors {
		msgs = append(msgs, gqlErr.Message)
	}
	return "Request failed due to following response errors:\n - " + strings.Join(msgs, "\n - ")
}

func (e *QueryError) MarshalJSON() ([]byte, error) {
	payload := struct {
		Name    string          `json:"name"`
		Message string          `json:"message"`
		Errors  []GraphQLError  `json:"errors"`
		Data    json.RawMessage `json:"data,omitempty"`
	}{Name: "GraphqlResponseError", Message: e.Error(), Errors: e.Errors, Data: e.Data}
	return json.Marshal(payload)
}

// RequestError is returned for non-2xx responses.
type RequestError struct {
	Status  int
	Message string
	Body    json.RawMessage
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

func (e *RequestError) MarshalJSON() ([]byte, error) {
	payload := struct {
		Name     string          `json:"name"`
		Status   int             `json:"status"`
		Message  string          `json:"message"`
		Response json.RawMessage `json:"response,omitempty"`
	}{Name: "HttpError", Status: e.Status, Message: e.Message, Response: e.Body}
	return json.Marshal(payload)
}
