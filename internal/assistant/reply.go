package assistant

import (
	"strings"

	"dot-hub/internal/jobs"
)

// Reply is the decoded assistant response. The concrete type is the intent.
type Reply interface {
	Kind() string
	isReply()
}

type Answer struct {
	Message    string
	Jobs       []jobs.Ref
	NextPrompt *string
}

type Action struct {
	Message    string
	NextPrompt *string
}

type Confirm struct {
	Message string
	Jobs    []jobs.Ref
}

type Clarify struct {
	Message string
	Jobs    []jobs.Ref
}

type Redirect struct {
	Message string
	To      string
	Client  string
}

type Horoscope struct {
	Message    string
	NextPrompt *string
}

// ErrorReply is an apology the assistant chose to send; the call itself
// succeeded.
type ErrorReply struct {
	Message string
}

// Unknown covers a missing or unrecognised type. It renders like an answer.
type Unknown struct {
	Type       string
	Message    string
	Jobs       []jobs.Ref
	NextPrompt *string
}

func (Answer) Kind() string { return "answer" }
func (Action) Kind() string { return "action" }
func (Confirm) Kind() string { return "confirm" }
func (Clarify) Kind() string { return "clarify" }
func (Redirect) Kind() string { return "redirect" }
func (Horoscope) Kind() string { return "horoscope" }
func (ErrorReply) Kind() string { return "error" }
func (Unknown) Kind() string { return "unknown" }

func (Answer) isReply() {}
func (Action) isReply() {}
func (Confirm) isReply() {}
func (Clarify) isReply() {}
func (Redirect) isReply() {}
func (Horoscope) isReply() {}
func (ErrorReply) isReply() {}
func (Unknown) isReply() {}

// Decode converts the wire response into its variant. Fields a variant does
// not carry are dropped here.
func Decode(r Response) Reply {
	switch strings.ToLower(strings.TrimSpace(r.Type)) {
	case "answer":
		return Answer{Message: r.Message, Jobs: r.Jobs, NextPrompt: r.NextPrompt}
	case "action":
		return Action{Message: r.Message, NextPrompt: r.NextPrompt}
	case "confirm":
		return Confirm{Message: r.Message, Jobs: r.Jobs}
	case "clarify":
		return Clarify{Message: r.Message, Jobs: r.Jobs}
	case "redirect":
		rd := Redirect{Message: r.Message, To: r.RedirectTo}
		if r.RedirectParams != nil {
			rd.Client = r.RedirectParams.Client
		}
		return rd
	case "horoscope":
		return Horoscope{Message: r.Message, NextPrompt: r.NextPrompt}
	case "error":
		return ErrorReply{Message: r.Message}
	default:
		return Unknown{Type: r.Type, Message: r.Message, Jobs: r.Jobs, NextPrompt: r.NextPrompt}
	}
}
