package models

// TaskStatusInProgress is the only status a task is ever reported with.
const TaskStatusInProgress = "in_progress"

// AuthRequest is the body of POST /auth/. Pointers distinguish an absent
// field from an empty string.
type AuthRequest struct {
	OAuthToken     *string `json:"oauth_token"`
	OrganizationID *string `json:"organization_id"`
}

// AuthResponse acknowledges an AuthRequest.
type AuthResponse struct {
	Result string `json:"result"`
}

// SearchResult is the reply of GET /search/.
//
// TaskID carries the "additional" query parameter and Status the search
// term. Clients depend on this layout, odd as it is.
type SearchResult struct {
	TaskID *string `json:"task_id"`
	Status string  `json:"status"`
}

// TaskStatus describes one task.
type TaskStatus struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskList is the reply of POST /tasks/.
type TaskList struct {
	Tasks []TaskStatus `json:"tasks"`
}
