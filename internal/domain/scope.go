package domain

// Unselected is the selection sentinel for a scope level. It is distinct from
// every value the backend can return, including the empty string, which is a
// legitimate "proceed without this level" selection.
const Unselected = "\x00unselected"

// Level names one tier of the scope hierarchy.
type Level int

const (
	LevelOrganization Level = iota
	LevelWorkspace
	LevelProject
)

// Levels lists the hierarchy from the root down.
var Levels = []Level{LevelOrganization, LevelWorkspace, LevelProject}

func (l Level) String() string {
	switch l {
	case LevelOrganization:
		return "organization"
	case LevelWorkspace:
		return "workspace"
	case LevelProject:
		return "project"
	default:
		return "unknown"
	}
}

// CandidateSet is the backend-provided list of choices for one level.
type CandidateSet struct {
	Fetched bool     `json:"fetched"`
	Items   []string `json:"items"`
	Warning bool     `json:"warning"`
}

// Empty reports whether the level resolved to zero candidates.
func (c CandidateSet) Empty() bool {
	return c.Fetched && len(c.Items) == 0
}

// Contains reports whether v is one of the fetched candidates.
func (c CandidateSet) Contains(v string) bool {
	for _, item := range c.Items {
		if item == v {
			return true
		}
	}
	return false
}

// Credentials is the token plus resolved scope a chat session runs under.
// It is immutable once the session starts.
type Credentials struct {
	Token        string `json:"token"`
	Organization string `json:"organization"`
	Workspace    string `json:"workspace"`
	Project      string `json:"project"`
}
