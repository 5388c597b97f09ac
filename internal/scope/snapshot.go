package scope

import "github.com/soyeahso/agentchat/internal/domain"

// Snapshot is the observable resolver state.
type Snapshot struct {
	Token         string
	Verifying     bool
	Verified      bool
	VerifyMessage string

	Organizations domain.CandidateSet
	Workspaces    domain.CandidateSet
	Projects      domain.CandidateSet

	// Selections hold domain.Unselected until chosen.
	Organization string
	Workspace    string
	Project      string
}

func emptySnapshot(token string) Snapshot {
	return Snapshot{
		Token:        token,
		Organization: domain.Unselected,
		Workspace:    domain.Unselected,
		Project:      domain.Unselected,
	}
}

// Candidates returns the candidate set of level.
func (s Snapshot) Candidates(level domain.Level) domain.CandidateSet {
	switch level {
	case domain.LevelOrganization:
		return s.Organizations
	case domain.LevelWorkspace:
		return s.Workspaces
	default:
		return s.Projects
	}
}

// Selection returns the selected value of level.
func (s Snapshot) Selection(level domain.Level) string {
	switch level {
	case domain.LevelOrganization:
		return s.Organization
	case domain.LevelWorkspace:
		return s.Workspace
	default:
		return s.Project
	}
}

// Next returns the first level still waiting for a user choice.
func (s Snapshot) Next() (domain.Level, bool) {
	if !s.Verified {
		return 0, false
	}
	for _, l := range domain.Levels {
		set := s.Candidates(l)
		if !set.Fetched || len(set.Items) == 0 {
			return 0, false
		}
		if s.Selection(l) == domain.Unselected {
			return l, true
		}
	}
	return 0, false
}

// Ready reports whether a chat session may start: the token is verified and
// every level is either selected or short-circuited by an empty ancestor.
func (s Snapshot) Ready() bool {
	if !s.Verified {
		return false
	}
	for _, l := range domain.Levels {
		set := s.Candidates(l)
		if !set.Fetched {
			return false
		}
		if len(set.Items) == 0 {
			return true
		}
		if s.Selection(l) == domain.Unselected {
			return false
		}
	}
	return true
}

// Credentials maps unselected levels to the empty string.
func (s Snapshot) Credentials() domain.Credentials {
	return domain.Credentials{
		Token:        s.Token,
		Organization: orEmpty(s.Organization),
		Workspace:    orEmpty(s.Workspace),
		Project:      orEmpty(s.Project),
	}
}

func (s *Snapshot) setSelection(level domain.Level, v string) {
	switch level {
	case domain.LevelOrganization:
		s.Organization = v
	case domain.LevelWorkspace:
		s.Workspace = v
	case domain.LevelProject:
		s.Project = v
	}
}

func (s *Snapshot) setCandidates(level domain.Level, set domain.CandidateSet) {
	switch level {
	case domain.LevelOrganization:
		s.Organizations = set
	case domain.LevelWorkspace:
		s.Workspaces = set
	case domain.LevelProject:
		s.Projects = set
	}
}

// applyFetch stores a fetch result. Zero items warn on this level only and
// resolve every deeper level to an empty, already-fetched set.
func (s *Snapshot) applyFetch(level domain.Level, items []string) {
	if len(items) > 0 {
		s.setCandidates(level, domain.CandidateSet{Fetched: true, Items: append([]string(nil), items...)})
		return
	}
	s.setCandidates(level, domain.CandidateSet{Fetched: true, Items: []string{}, Warning: true})
	for l := level + 1; l <= domain.LevelProject; l++ {
		s.setSelection(l, domain.Unselected)
		s.setCandidates(l, domain.CandidateSet{Fetched: true, Items: []string{}})
	}
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Organizations.Items = cloneItems(s.Organizations.Items)
	out.Workspaces.Items = cloneItems(s.Workspaces.Items)
	out.Projects.Items = cloneItems(s.Projects.Items)
	return out
}

func cloneItems(items []string) []string {
	if items == nil {
		return nil
	}
	return append([]string{}, items...)
}

func orEmpty(v string) string {
	if v == domain.Unselected {
		return ""
	}
	return v
}
