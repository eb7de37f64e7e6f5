package assistant

import (
	"strings"

	"dot-hub/internal/conversation"
	"dot-hub/internal/jobs"
)

// Request is the body posted for one turn.
type Request struct {
	Content     string              `json:"content"`
	SenderName  string              `json:"senderName"`
	SessionID   string              `json:"sessionId"`
	Jobs        []jobs.Record       `json:"jobs"`
	History     []conversation.Turn `json:"history"`
	AccessLevel string              `json:"accessLevel"`
}

// Response is the structured reply as it arrives on the wire.
type Response struct {
	Type           string          `json:"type"`
	Message        string          `json:"message"`
	Jobs           []jobs.Ref      `json:"jobs,omitempty"`
	NextPrompt     *string         `json:"nextPrompt,omitempty"`
	RedirectTo     string          `json:"redirectTo,omitempty"`
	RedirectParams *RedirectParams `json:"redirectParams,omitempty"`
}

type RedirectParams struct {
	Client string `json:"client,omitempty"`
}

type clearRequest struct {
	SessionID string `json:"sessionId"`
}

// Identity is the signed-in user as far as the assistant is concerned.
type Identity struct {
	Name        string
	AccessLevel string
	Client      string
}

func (i Identity) SessionID() string {
	if n := strings.TrimSpace(i.Name); n != "" {
		return n
	}
	return "anonymous"
}

func (i Identity) SenderName() string {
	if n := strings.TrimSpace(i.Name); n != "" {
		return n
	}
	return "Hub User"
}

func (i Identity) Level() string {
	if l := strings.TrimSpace(i.AccessLevel); l != "" {
		return l
	}
	return jobs.LevelClientWIP
}

func (i Identity) Access() jobs.Access {
	return jobs.Access{Level: i.Level(), Client: i.Client}
}

// Context is what accompanies a question: who asked and the jobs they may see.
type Context struct {
	Identity Identity
	Jobs     []jobs.Record
}

// NewContext applies the identity's access filter to the job snapshot.
func NewContext(id Identity, snapshot []jobs.Record) Context {
	return Context{Identity: id, Jobs: id.Access().Filter(snapshot)}
}
