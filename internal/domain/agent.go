package domain

// Agent is an AI persona users can chat with.
type Agent struct {
	AgentID  string `json:"agent_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Industry string `json:"industry"`
	Website  string `json:"website"`
}
