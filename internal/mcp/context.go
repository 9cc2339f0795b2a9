package mcp

// CallContext carries the caller's project/session identity as supplied by
// the surrounding assistant. The core does not authenticate or authorize;
// that is the host's concern.
type CallContext struct {
	ProjectID string `json:"project_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// defaultProject fills the context's project from the tool arguments when
// the host did not supply one, so log lines always name a project.
func (c *CallContext) defaultProject(projectID string) {
	if c.ProjectID == "" {
		c.ProjectID = projectID
	}
}
