package domain

import "time"

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#6366f1"

// Category groups tickets by problem area.
type Category struct {
	ID          string
	Name        string
	Description *string
	Color       string
	CreatedAt   time.Time
}
