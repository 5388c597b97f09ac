package protocol

import "github.com/soyeahso/agentchat/internal/domain"

// Request is the single outbound frame of a turn.
type Request struct {
	Message string  `json:"message"`
	Details Details `json:"details"`
}

// Details carries the session scope and credential with every request.
type Details struct {
	Organization string `json:"organization"`
	Workspace    string `json:"workspace"`
	Project      string `json:"project"`
	Token        string `json:"token"`
}

// NewRequest builds the outbound frame for a user query.
func NewRequest(query string, creds domain.Credentials) Request {
	return Request{
		Message: query,
		Details: Details{
			Organization: creds.Organization,
			Workspace:    creds.Workspace,
			Project:      creds.Project,
			Token:        creds.Token,
		},
	}
}
