package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe represents a user-owned recipe.
// It references tags and ingredients owned by the same user and may carry
// an uploaded image stored in object storage.
type Recipe struct {
	// ID is the unique identifier of the recipe.
	ID int `json:"id" db:"id"`

	// UserID identifies the owner of the recipe.
	UserID int `json:"-" db:"user_id"`

	// Title is the human-readable name of the recipe.
	Title string `json:"title" db:"title"`

	// TimeMinutes is the preparation time, expressed in minutes.
	TimeMinutes int `json:"time_minutes" db:"time_minutes"`

	// Price is the estimated cost of the recipe with two decimal places.
	Price decimal.Decimal `json:"price" db:"price"`

	// Link is an optional external URL for the recipe.
	Link string `json:"link" db:"link"`

	// ImageKey is the object storage key of the uploaded image.
	// It is empty when no image is attached.
	ImageKey string `json:"-" db:"image"`

	// TagIDs lists the identifiers of the tags attached to the recipe.
	TagIDs []int `json:"tags" db:"-"`

	// IngredientIDs lists the identifiers of the ingredients used by the recipe.
	IngredientIDs []int `json:"ingredients" db:"-"`

	// Tags holds the attached tags when the recipe is loaded in detail.
	Tags []Tag `json:"-" db:"-"`

	// Ingredients holds the attached ingredients when the recipe is loaded
	// in detail.
	Ingredients []Ingredient `json:"-" db:"-"`

	// CreatedAt is the timestamp when the recipe was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the recipe.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RecipeFilter narrows recipe listings. A recipe matches when it references
// any of TagIDs (if set) and any of IngredientIDs (if set).
type RecipeFilter struct {
	TagIDs        []int
	IngredientIDs []int
}
