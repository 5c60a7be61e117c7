package transport

import "encoding/json"

type RegisterRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	AdminInviteToken string `json:"adminInviteToken"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TaskCreateRequest mirrors the admin creation form. TodoChecklist stays raw
// so a missing or non-array value can be rejected with a precise error
// instead of a generic unmarshal failure.
type TaskCreateRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Priority      string          `json:"priority"`
	DueDate       string          `json:"dueDate"`
	AssignedTo    []string        `json:"assignedTo"`
	Attachments   []string        `json:"attachments"`
	TodoChecklist json.RawMessage `json:"todoChecklist"`
}

// TaskUpdateRequest uses pointers (and raw JSON for dueDate/todoChecklist)
// to distinguish absent fields from explicit values, including an explicit
// null dueDate.
type TaskUpdateRequest struct {
	Title         *string         `json:"title"`
	Description   *string         `json:"description"`
	Priority      *string         `json:"priority"`
	Status        *string         `json:"status"`
	Attachments   *[]string       `json:"attachments"`
	TodoChecklist json.RawMessage `json:"todoChecklist"`
	AssignedTo    *[]string       `json:"assignedTo"`
	DueDate       json.RawMessage `json:"dueDate"`
	Progress      *int            `json:"progress"`
}

type TaskStatusRequest struct {
	Status string `json:"status"`
}

type TaskChecklistRequest struct {
	TodoChecklist json.RawMessage `json:"todoChecklist"`
}

// AuthResponse pairs a user payload with the bearer access token. The
// refresh token never appears here; it travels only in the cookie.
type AuthResponse struct {
	User  interface{} `json:"user"`
	Token string      `json:"token"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}
