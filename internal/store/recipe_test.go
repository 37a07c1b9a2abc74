package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/recipe-app/apiserver/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recipeRowColumns = []string{"id", "user_id", "title", "time_minutes", "price", "link", "image", "created_at", "updated_at"}

func TestRecipeRepositoryListLoadsAssociationIDs(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)
	now := time.Now()

	mock.ExpectQuery(`FROM recipes r WHERE r.user_id = \$1 ORDER BY r.id DESC`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(recipeRowColumns).
			AddRow(2, 1, "Soup", 20, "4.50", "", "", now, now).
			AddRow(1, 1, "Salad", 5, "3.00", "", "", now, now))
	mock.ExpectQuery(`SELECT recipe_id, tag_id FROM recipe_tags WHERE recipe_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"recipe_id", "tag_id"}).
			AddRow(2, 10).
			AddRow(2, 11))
	mock.ExpectQuery(`SELECT recipe_id, ingredient_id FROM recipe_ingredients WHERE recipe_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"recipe_id", "ingredient_id"}).
			AddRow(1, 30))

	recipes, err := repo.List(context.Background(), 1, types.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, recipes, 2)

	assert.Equal(t, "Soup", recipes[0].Title)
	assert.Equal(t, []int{10, 11}, recipes[0].TagIDs)
	assert.Equal(t, []int{}, recipes[0].IngredientIDs)
	assert.Equal(t, []int{30}, recipes[1].IngredientIDs)
	assert.True(t, decimal.RequireFromString("4.5").Equal(recipes[0].Price))
}

func TestRecipeRepositoryListAppliesFilters(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)

	mock.ExpectQuery(`rt.tag_id = ANY\(\$2\)\) AND EXISTS \(SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = r.id AND ri.ingredient_id = ANY\(\$3\)\) ORDER BY r.id DESC`).
		WithArgs(1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(recipeRowColumns))

	recipes, err := repo.List(context.Background(), 1, types.RecipeFilter{TagIDs: []int{1}, IngredientIDs: []int{2}})
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestRecipeRepositoryGetLoadsNested(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)
	now := time.Now()

	mock.ExpectQuery(`FROM recipes r WHERE r.id = \$1 AND r.user_id = \$2`).
		WithArgs(4, 1).
		WillReturnRows(sqlmock.NewRows(recipeRowColumns).
			AddRow(4, 1, "Curry", 45, "12.00", "https://example.com", "uploads/recipe/4/a.png", now, now))
	mock.ExpectQuery(`JOIN recipe_tags rt ON rt.tag_id = t.id`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(namedRowColumns).AddRow(8, 1, "Spicy", now))
	mock.ExpectQuery(`JOIN recipe_ingredients ri ON ri.ingredient_id = i.id`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(namedRowColumns).
			AddRow(6, 1, "Rice", now).
			AddRow(5, 1, "Chicken", now))

	recipe, err := repo.Get(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "uploads/recipe/4/a.png", recipe.ImageKey)
	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "Spicy", recipe.Tags[0].Name)
	assert.Equal(t, []int{8}, recipe.TagIDs)
	assert.Equal(t, []int{6, 5}, recipe.IngredientIDs)
}

func TestRecipeRepositoryGetNotFound(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)

	mock.ExpectQuery(`FROM recipes r WHERE r.id = \$1 AND r.user_id = \$2`).
		WithArgs(4, 2).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 2, 4)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecipeRepositoryCreateLinksInTransaction(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO recipes \(user_id, title, time_minutes, price, link, image, created_at, updated_at\)`).
		WithArgs(1, "Pie", 60, sqlmock.AnyArg(), "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectExec(`INSERT INTO recipe_tags \(recipe_id, tag_id\) SELECT \$1, unnest\(\$2::int\[\]\)`).
		WithArgs(12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO recipe_ingredients \(recipe_id, ingredient_id\)`).
		WithArgs(12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	recipe, err := repo.Create(context.Background(), types.Recipe{
		UserID:        1,
		Title:         "Pie",
		TimeMinutes:   60,
		Price:         decimal.RequireFromString("7.25"),
		TagIDs:        []int{1, 2},
		IngredientIDs: []int{3},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, recipe.ID)
}

func TestRecipeRepositoryCreateRollsBackOnLinkFailure(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO recipes`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectExec(`INSERT INTO recipe_tags`).
		WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), types.Recipe{UserID: 1, Title: "Pie", TagIDs: []int{99}})
	require.Error(t, err)
}

func TestRecipeRepositoryUpdateReplacesLinks(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipes SET title = \$1`).
		WithArgs("Pie", 30, sqlmock.AnyArg(), "", sqlmock.AnyArg(), 12, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM recipe_tags WHERE recipe_id = \$1`).
		WithArgs(12).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM recipe_ingredients WHERE recipe_id = \$1`).
		WithArgs(12).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO recipe_tags`).
		WithArgs(12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := repo.Update(context.Background(), types.Recipe{ID: 12, UserID: 1, Title: "Pie", TimeMinutes: 30, TagIDs: []int{2}})
	require.NoError(t, err)
}

func TestRecipeRepositoryUpdateForeignIsNotFound(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipes`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), types.Recipe{ID: 12, UserID: 2})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecipeRepositoryDeleteReturnsImage(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)

	mock.ExpectQuery(`DELETE FROM recipes WHERE id = \$1 AND user_id = \$2 RETURNING image`).
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow("uploads/recipe/3/x.jpg"))

	image, err := repo.Delete(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "uploads/recipe/3/x.jpg", image)
}

func TestRecipeRepositorySetImage(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewRecipeRepository(conn)

	mock.ExpectExec(`UPDATE recipes SET image = \$1, updated_at = \$2 WHERE id = \$3 AND user_id = \$4`).
		WithArgs("uploads/recipe/3/y.png", sqlmock.AnyArg(), 3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE recipes SET image`).
		WithArgs("", sqlmock.AnyArg(), 3, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetImage(context.Background(), 1, 3, "uploads/recipe/3/y.png"))
	require.ErrorIs(t, repo.SetImage(context.Background(), 2, 3, ""), ErrNotFound)
}
