package domain

import "time"

// InitStatus records the bootstrap state of one domain. A domain is
// considered initialized only when a status row exists and its Version
// matches the content pack version currently shipped.
type InitStatus struct {
	Domain        string    `json:"domain"`
	Version       string    `json:"version"`
	InitializedAt time.Time `json:"initialized_at"`
	ItemCount     int       `json:"item_count"`
	ChunkCount    int       `json:"chunk_count"`
	LastCheck     time.Time `json:"last_check"`
}

// UpdateFields carries the mutable fields of an item for partial updates.
// Nil pointers leave the stored value untouched; Tags replaces wholesale
// when non-nil.
type UpdateFields struct {
	Content  *string
	Category *string
	Title    *string
	Tags     []string
	Priority *int
}

// Empty reports whether no field is set.
func (u UpdateFields) Empty() bool {
	return u.Content == nil && u.Category == nil && u.Title == nil &&
		u.Tags == nil && u.Priority == nil
}
