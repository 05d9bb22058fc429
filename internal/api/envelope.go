package api

import (
	"encoding/json"
	"strings"
)

// envelope is the common part of every response body.
type envelope struct {
	Success *bool        `json:"success"`
	Sucess  *bool        `json:"sucess"` // add-expense spells it this way
	Message string       `json:"message"`
	Error   errorPayload `json:"error"`
}

// ok reports the success flag under either spelling. An absent flag counts as
// success; the HTTP status is checked separately.
func (e envelope) ok() bool {
	switch {
	case e.Success != nil:
		return *e.Success
	case e.Sucess != nil:
		return *e.Sucess
	default:
		return true
	}
}

// errorPayload accepts "error" as a plain string or as {"message": "..."}.
type errorPayload struct {
	Message string
}

func (p *errorPayload) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.Message = s
		return nil
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		p.Message = obj.Message
		return nil
	}
	// Anything else (null, numbers) carries no usable message.
	p.Message = strings.Trim(string(b), `"`)
	if p.Message == "null" {
		p.Message = ""
	}
	return nil
}

// failureMessage picks the text to surface for a failed call.
func (e envelope) failureMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}
