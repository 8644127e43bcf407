package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	CategoryID  *string `json:"category_id"`
}

// UpdateStatusRequest payload. Version enables optimistic concurrency when set.
type UpdateStatusRequest struct {
	Status  string `json:"status"`
	Version *int   `json:"version"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority string `json:"priority"`
	Version  *int   `json:"version"`
}

// AssignTicketRequest payload. An explicit "assignee_id": null unassigns.
type AssignTicketRequest struct {
	AssigneeID NullableString `json:"assignee_id"`
	Version    *int           `json:"version"`
}

// NullableString tells an absent JSON field from an explicit null.
type NullableString struct {
	Present bool
	Value   *string
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Present = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// IsNull reports an explicit null.
func (n NullableString) IsNull() bool {
	return n.Present && n.Value == nil
}

// String returns the value, or an empty string when absent or null.
func (n NullableString) String() string {
	if n.Value == nil {
		return ""
	}
	return *n.Value
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// ProfileRef is the embedded reporter/assignee summary.
type ProfileRef struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// CategoryRef is the embedded category summary.
type CategoryRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TicketResponse is the ticket representation shared by list and detail views.
type TicketResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	CategoryID    *string               `json:"category_id"`
	ReporterID    string                `json:"reporter_id"`
	AssigneeID    *string               `json:"assignee_id"`
	AttachmentURL *string               `json:"attachment_url"`
	Version       int                   `json:"version"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ResolvedAt    *time.Time            `json:"resolved_at"`
	Reporter      *ProfileRef           `json:"reporter,omitempty"`
	Assignee      *ProfileRef           `json:"assignee,omitempty"`
	Category      *CategoryRef          `json:"category,omitempty"`
}

// TicketDetailResponse adds the comments visible to the caller.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// CommentResponse represents a thread comment.
type CommentResponse struct {
	ID         string      `json:"id"`
	TicketID   string      `json:"ticket_id"`
	UserID     string      `json:"user_id"`
	Content    string      `json:"content"`
	IsInternal bool        `json:"is_internal"`
	CreatedAt  time.Time   `json:"created_at"`
	Author     *ProfileRef `json:"author,omitempty"`
}

// TicketHistoryResponse represents an audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	TicketID    string                  `json:"ticket_id"`
	ChangedByID string                  `json:"changed_by"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}
