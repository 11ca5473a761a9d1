package models

// AuditLog records an action taken on a backend entity
type AuditLog struct {
	ID          int64  `json:"id,omitempty"`
	Action      string `json:"action"`
	EntityType  string `json:"entityType,omitempty"`
	EntityID    int64  `json:"entityId,omitempty"`
	PerformedBy string `json:"performedBy,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Details     string `json:"details,omitempty"`
}
