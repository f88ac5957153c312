// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// TitleRefineTask represents a best-effort request to upgrade a session title
// with a short LLM-generated one after the turn has already been answered.
type TitleRefineTask struct {
	TenantID      string `json:"tenant_id"`
	ProfileKey    string `json:"profile_key"`
	SessionID     string `json:"session_id"`
	FirstQuestion string `json:"first_question"`
}
