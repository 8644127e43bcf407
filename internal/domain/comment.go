package domain

import "time"

// Comment is a message in a ticket thread.
type Comment struct {
	ID         string
	TicketID   string
	UserID     string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
	Author     *ProfileRef
}

// VisibleComments filters a thread for the reader. Staff see everything,
// reporters only public comments. The input slice is not modified.
func VisibleComments(actor Actor, comments []Comment) []Comment {
	visible := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if c.IsInternal && !CanReadInternal(actor) {
			continue
		}
		visible = append(visible, c)
	}
	return visible
}
