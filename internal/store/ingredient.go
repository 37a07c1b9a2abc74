package store

import (
	"context"
	"database/sql"

	"github.com/recipe-app/apiserver/types"
)

// IngredientRepository handles persistence for ingredients, scoped to the
// owning user.
type IngredientRepository struct {
	table taxonomyTable
}

func NewIngredientRepository(db *sql.DB) *IngredientRepository {
	return &IngredientRepository{table: newTaxonomyTable(db, "ingredients", "recipe_ingredients", "ingredient_id")}
}

// List returns the owner's ingredients ordered by name descending.
func (r *IngredientRepository) List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]types.Ingredient, error) {
	rows, err := r.table.list(ctx, owner, filter.AssignedOnly)
	if err != nil {
		return nil, err
	}
	return toIngredients(rows), nil
}

// GetMany returns the owner's ingredients among ids, skipping foreign or
// unknown ids.
func (r *IngredientRepository) GetMany(ctx context.Context, owner int, ids []int) ([]types.Ingredient, error) {
	rows, err := r.table.many(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	return toIngredients(rows), nil
}

func (r *IngredientRepository) Get(ctx context.Context, owner, id int) (types.Ingredient, error) {
	row, err := r.table.get(ctx, owner, id)
	if err != nil {
		return types.Ingredient{}, err
	}
	return types.Ingredient(row), nil
}

func (r *IngredientRepository) Create(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error) {
	row, err := r.table.create(ctx, namedRow(ingredient))
	if err != nil {
		return types.Ingredient{}, err
	}
	return types.Ingredient(row), nil
}

func (r *IngredientRepository) Update(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error) {
	if err := r.table.rename(ctx, ingredient.UserID, ingredient.ID, ingredient.Name); err != nil {
		return types.Ingredient{}, err
	}
	return ingredient, nil
}

func (r *IngredientRepository) Delete(ctx context.Context, owner, id int) error {
	return r.table.delete(ctx, owner, id)
}

func toIngredients(rows []namedRow) []types.Ingredient {
	ingredients := make([]types.Ingredient, 0, len(rows))
	for _, row := range rows {
		ingredients = append(ingredients, types.Ingredient(row))
	}
	return ingredients
}
