package types

import "time"

// Tag is a user-owned label used to categorize recipes.
// Tags are flat (no hierarchy) and only visible to their owner.
type Tag struct {
	// ID is the unique identifier of the tag.
	ID int `json:"id" db:"id"`

	// UserID identifies the owner of the tag.
	UserID int `json:"-" db:"user_id"`

	// Name is the display name of the tag (e.g., "Vegan", "Dessert").
	Name string `json:"name" db:"name"`

	// CreatedAt is the timestamp when the tag was created.
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// Ingredient is a user-owned ingredient that recipes can reference.
type Ingredient struct {
	// ID is the unique identifier of the ingredient.
	ID int `json:"id" db:"id"`

	// UserID identifies the owner of the ingredient.
	UserID int `json:"-" db:"user_id"`

	// Name is the display name of the ingredient (e.g., "Kale").
	Name string `json:"name" db:"name"`

	// CreatedAt is the timestamp when the ingredient was created.
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// TaxonomyFilter narrows tag and ingredient listings.
type TaxonomyFilter struct {
	// AssignedOnly restricts results to entries referenced by at least one
	// of the owner's recipes.
	AssignedOnly bool
}
