package model

import "time"

// DefaultListNames are created, in order, the first time a user's board is
// found empty.
var DefaultListNames = []string{"To Do", "In Progress", "Done"}

// List is a named column owned by exactly one user.
type List struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	UserID    uint64    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Card is a work item belonging to one list. CompletedAt is non-nil exactly
// when Completed is true.
type Card struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Deadline    *Date      `json:"deadline"`
	Completed   bool       `json:"completed"`
	ListID      uint64     `json:"list_id"`
	ListName    string     `json:"list_name,omitempty"` // filled by listing queries
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// NewCard holds the fields accepted when creating a card.
type NewCard struct {
	Title    string
	Content  string
	Deadline *Date
	ListID   uint64
}

// CardPatch is a merge patch: nil pointers and an unset Deadline leave the
// stored value untouched.
type CardPatch struct {
	Title     *string      `json:"title"`
	Content   *string      `json:"content"`
	Deadline  OptionalDate `json:"deadline"`
	Completed *bool        `json:"completed"`
	ListID    *uint64      `json:"list_id"`
}

// Apply merges p into c and maintains the completed_at invariant using now.
// UpdatedAt is always refreshed.
func (p CardPatch) Apply(c *Card, now time.Time) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Content != nil {
		c.Content = *p.Content
	}
	if p.Deadline.Set {
		c.Deadline = p.Deadline.Value
	}
	if p.ListID != nil {
		c.ListID = *p.ListID
	}
	if p.Completed != nil {
		switch was := c.Completed; {
		case !was && *p.Completed:
			t := now
			c.CompletedAt = &t
		case was && !*p.Completed:
			c.CompletedAt = nil
		}
		c.Completed = *p.Completed
	}
	c.UpdatedAt = now
}
