package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/recipe-app/apiserver/internal/db"
	"github.com/recipe-app/apiserver/types"
)

const recipeColumns = `r.id, r.user_id, r.title, r.time_minutes, r.price, r.link, r.image, r.created_at, r.updated_at`

// RecipeRepository handles persistence for recipes and their tag and
// ingredient associations.
type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// List returns the owner's recipes, newest first, with TagIDs and
// IngredientIDs populated.
func (r *RecipeRepository) List(ctx context.Context, owner int, filter types.RecipeFilter) ([]types.Recipe, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + recipeColumns + ` FROM recipes r WHERE r.user_id = $1`)
	args := []any{owner}

	if len(filter.TagIDs) > 0 {
		args = append(args, pq.Array(filter.TagIDs))
		fmt.Fprintf(&sb, ` AND EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = r.id AND rt.tag_id = ANY($%d))`, len(args))
	}
	if len(filter.IngredientIDs) > 0 {
		args = append(args, pq.Array(filter.IngredientIDs))
		fmt.Fprintf(&sb, ` AND EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = r.id AND ri.ingredient_id = ANY($%d))`, len(args))
	}
	sb.WriteString(` ORDER BY r.id DESC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes := make([]types.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return recipes, nil
	}

	ids := make([]int, len(recipes))
	for i, recipe := range recipes {
		ids[i] = recipe.ID
	}
	tagIDs, err := r.linkedIDs(ctx, `SELECT recipe_id, tag_id FROM recipe_tags WHERE recipe_id = ANY($1) ORDER BY tag_id`, ids)
	if err != nil {
		return nil, err
	}
	ingredientIDs, err := r.linkedIDs(ctx, `SELECT recipe_id, ingredient_id FROM recipe_ingredients WHERE recipe_id = ANY($1) ORDER BY ingredient_id`, ids)
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].TagIDs = orEmpty(tagIDs[recipes[i].ID])
		recipes[i].IngredientIDs = orEmpty(ingredientIDs[recipes[i].ID])
	}
	return recipes, nil
}

// Get returns one of the owner's recipes with its tags and ingredients loaded.
func (r *RecipeRepository) Get(ctx context.Context, owner, id int) (types.Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes r WHERE r.id = $1 AND r.user_id = $2`
	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, err
	}

	const tagQuery = `
		SELECT t.id, t.user_id, t.name, t.created_at
		FROM tags t
		JOIN recipe_tags rt ON rt.tag_id = t.id
		WHERE rt.recipe_id = $1
		ORDER BY t.name DESC, t.id DESC`
	tagRows, err := r.linkedRows(ctx, tagQuery, recipe.ID)
	if err != nil {
		return types.Recipe{}, err
	}
	const ingredientQuery = `
		SELECT i.id, i.user_id, i.name, i.created_at
		FROM ingredients i
		JOIN recipe_ingredients ri ON ri.ingredient_id = i.id
		WHERE ri.recipe_id = $1
		ORDER BY i.name DESC, i.id DESC`
	ingredientRows, err := r.linkedRows(ctx, ingredientQuery, recipe.ID)
	if err != nil {
		return types.Recipe{}, err
	}

	recipe.Tags = toTags(tagRows)
	recipe.Ingredients = toIngredients(ingredientRows)
	recipe.TagIDs = make([]int, 0, len(recipe.Tags))
	for _, tag := range recipe.Tags {
		recipe.TagIDs = append(recipe.TagIDs, tag.ID)
	}
	recipe.IngredientIDs = make([]int, 0, len(recipe.Ingredients))
	for _, ingredient := range recipe.Ingredients {
		recipe.IngredientIDs = append(recipe.IngredientIDs, ingredient.ID)
	}
	return recipe, nil
}

// Create inserts the recipe and its associations in one transaction.
// TagIDs and IngredientIDs must already be validated against the owner.
func (r *RecipeRepository) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		const query = `
			INSERT INTO recipes (user_id, title, time_minutes, price, link, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`
		if err := tx.QueryRowContext(
			ctx,
			query,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price,
			recipe.Link,
			recipe.ImageKey,
			recipe.CreatedAt,
			recipe.UpdatedAt,
		).Scan(&recipe.ID); err != nil {
			return err
		}
		return linkAll(ctx, tx, recipe)
	})
	if err != nil {
		return types.Recipe{}, mapWriteError(err)
	}
	return recipe, nil
}

// Update rewrites the recipe's fields and replaces its associations with
// TagIDs and IngredientIDs.
func (r *RecipeRepository) Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	recipe.UpdatedAt = time.Now()

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx db.DBTX) error {
		const query = `
			UPDATE recipes
			SET title = $1,
				time_minutes = $2,
				price = $3,
				link = $4,
				updated_at = $5
			WHERE id = $6 AND user_id = $7`
		result, err := tx.ExecContext(
			ctx,
			query,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price,
			recipe.Link,
			recipe.UpdatedAt,
			recipe.ID,
			recipe.UserID,
		)
		if err != nil {
			return err
		}
		if err := expectAffected(result); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = $1`, recipe.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipe.ID); err != nil {
			return err
		}
		return linkAll(ctx, tx, recipe)
	})
	if err != nil {
		return types.Recipe{}, mapWriteError(err)
	}
	return recipe, nil
}

// SetImage records key as the recipe's image. An empty key detaches it.
func (r *RecipeRepository) SetImage(ctx context.Context, owner, id int, key string) error {
	const query = `UPDATE recipes SET image = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, key, time.Now(), id, owner)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// Delete removes the recipe and returns the image key it carried.
func (r *RecipeRepository) Delete(ctx context.Context, owner, id int) (string, error) {
	const query = `DELETE FROM recipes WHERE id = $1 AND user_id = $2 RETURNING image`
	var image string
	if err := r.db.QueryRowContext(ctx, query, id, owner).Scan(&image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return image, nil
}

func (r *RecipeRepository) linkedIDs(ctx context.Context, query string, recipeIDs []int) (map[int][]int, error) {
	rows, err := r.db.QueryContext(ctx, query, pq.Array(recipeIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	linked := make(map[int][]int, len(recipeIDs))
	for rows.Next() {
		var recipeID, id int
		if err := rows.Scan(&recipeID, &id); err != nil {
			return nil, err
		}
		linked[recipeID] = append(linked[recipeID], id)
	}
	return linked, rows.Err()
}

func (r *RecipeRepository) linkedRows(ctx context.Context, query string, recipeID int) ([]namedRow, error) {
	rows, err := r.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]namedRow, 0)
	for rows.Next() {
		var row namedRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Name, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func linkAll(ctx context.Context, tx db.DBTX, recipe types.Recipe) error {
	if len(recipe.TagIDs) > 0 {
		const query = `
			INSERT INTO recipe_tags (recipe_id, tag_id)
			SELECT $1, unnest($2::int[])
			ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, recipe.ID, pq.Array(recipe.TagIDs)); err != nil {
			return err
		}
	}
	if len(recipe.IngredientIDs) > 0 {
		const query = `
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id)
			SELECT $1, unnest($2::int[])
			ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, recipe.ID, pq.Array(recipe.IngredientIDs)); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (types.Recipe, error) {
	var recipe types.Recipe
	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.TimeMinutes,
		&recipe.Price,
		&recipe.Link,
		&recipe.ImageKey,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	return recipe, err
}

func orEmpty(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
