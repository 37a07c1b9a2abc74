package services

import (
	"context"
	"strings"
	"testing"

	"github.com/recipe-app/apiserver/internal/store"
	"github.com/recipe-app/apiserver/internal/store/storetest"
	"github.com/recipe-app/apiserver/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recipeFixture struct {
	db          *storetest.DB
	objects     *storetest.ObjectStore
	publisher   *storetest.Publisher
	recipes     *RecipeService
	tags        *TagService
	ingredients *IngredientService
}

func newRecipeFixture(t *testing.T) recipeFixture {
	t.Helper()
	db := storetest.New()
	objects := storetest.NewObjectStore()
	pub := &storetest.Publisher{}
	return recipeFixture{
		db:          db,
		objects:     objects,
		publisher:   pub,
		recipes:     NewRecipeService(db.Recipes(), db.Tags(), db.Ingredients(), objects, NewEvents(pub, nil), nil),
		tags:        NewTagService(db.Tags()),
		ingredients: NewIngredientService(db.Ingredients()),
	}
}

func TestRecipeCreateLinksDistinctIDs(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	vegan, _ := f.tags.Create(ctx, 1, "Vegan")
	dessert, _ := f.tags.Create(ctx, 1, "Dessert")
	prawns, _ := f.ingredients.Create(ctx, 1, "Prawns")

	recipe, err := f.recipes.Create(ctx, 1, RecipeInput{
		Title:         "Thai prawn curry",
		TimeMinutes:   20,
		Price:         decimal.RequireFromString("7.00"),
		TagIDs:        []int{vegan.ID, dessert.ID, vegan.ID},
		IngredientIDs: []int{prawns.ID},
	})
	require.NoError(t, err)
	assert.Len(t, recipe.Tags, 2)
	assert.Len(t, recipe.Ingredients, 1)
	assert.Equal(t, 1, recipe.UserID)
	assert.Equal(t, []string{EventRecipeCreated}, f.publisher.Channels)
}

func TestRecipeCreateRejectsForeignTags(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	foreign, _ := f.tags.Create(ctx, 2, "Theirs")

	_, err := f.recipes.Create(ctx, 1, RecipeInput{Title: "Mine", TimeMinutes: 1, TagIDs: []int{foreign.ID}})
	require.ErrorIs(t, err, ErrInvalidInput)

	recipes, err := f.recipes.List(ctx, 1, types.RecipeFilter{})
	require.NoError(t, err)
	assert.Empty(t, recipes)
}

func TestRecipeValidation(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	cases := map[string]RecipeInput{
		"missing title":   {TimeMinutes: 1},
		"negative time":   {Title: "x", TimeMinutes: -1},
		"negative price":  {Title: "x", Price: decimal.RequireFromString("-1")},
		"price too large": {Title: "x", Price: decimal.RequireFromString("1000")},
		"price precision": {Title: "x", Price: decimal.RequireFromString("1.005")},
		"long link":       {Title: "x", Link: strings.Repeat("a", 256)},
		"bad tag id":      {Title: "x", TagIDs: []int{0}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.recipes.Create(ctx, 1, input)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRecipeListFiltersAndOrders(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	vegan, _ := f.tags.Create(ctx, 1, "Vegan")
	cheese, _ := f.ingredients.Create(ctx, 1, "Cheese")

	first, err := f.recipes.Create(ctx, 1, RecipeInput{Title: "Salad", TagIDs: []int{vegan.ID}})
	require.NoError(t, err)
	second, err := f.recipes.Create(ctx, 1, RecipeInput{Title: "Toastie", IngredientIDs: []int{cheese.ID}})
	require.NoError(t, err)
	_, err = f.recipes.Create(ctx, 2, RecipeInput{Title: "Other"})
	require.NoError(t, err)

	all, err := f.recipes.List(ctx, 1, types.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	byTag, err := f.recipes.List(ctx, 1, types.RecipeFilter{TagIDs: []int{vegan.ID}})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "Salad", byTag[0].Title)

	byIngredient, err := f.recipes.List(ctx, 1, types.RecipeFilter{IngredientIDs: []int{cheese.ID}})
	require.NoError(t, err)
	require.Len(t, byIngredient, 1)
	assert.Equal(t, "Toastie", byIngredient[0].Title)
}

func TestRecipeUpdatePartialAndFull(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	curry, _ := f.tags.Create(ctx, 1, "Curry")
	recipe, err := f.recipes.Create(ctx, 1, RecipeInput{
		Title:       "Chicken tikka",
		TimeMinutes: 30,
		Price:       decimal.RequireFromString("5.00"),
		TagIDs:      []int{curry.ID},
	})
	require.NoError(t, err)

	patched, err := f.recipes.Update(ctx, 1, recipe.ID, RecipePatch{Title: ptr("Chicken tikka masala")})
	require.NoError(t, err)
	assert.Equal(t, "Chicken tikka masala", patched.Title)
	assert.Equal(t, 30, patched.TimeMinutes)
	assert.Len(t, patched.Tags, 1)

	full, err := f.recipes.Update(ctx, 1, recipe.ID, RecipePatch{
		Title:       ptr("Spaghetti carbonara"),
		TimeMinutes: ptr(25),
		Price:       ptr(decimal.RequireFromString("5.00")),
		TagIDs:      ptr([]int{}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Spaghetti carbonara", full.Title)
	assert.Empty(t, full.Tags)

	_, err = f.recipes.Update(ctx, 2, recipe.ID, RecipePatch{Title: ptr("stolen")})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecipeAttachImage(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	recipe, err := f.recipes.Create(ctx, 1, RecipeInput{Title: "Pie"})
	require.NoError(t, err)

	updated, err := f.recipes.AttachImage(ctx, 1, recipe.ID, pngBytes(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.ImageKey, "uploads/recipe/"))
	assert.True(t, strings.HasSuffix(updated.ImageKey, ".png"))
	assert.Equal(t, []string{updated.ImageKey}, f.objects.Keys())

	replaced, err := f.recipes.AttachImage(ctx, 1, recipe.ID, pngBytes(t))
	require.NoError(t, err)
	assert.NotEqual(t, updated.ImageKey, replaced.ImageKey)
	assert.Equal(t, []string{replaced.ImageKey}, f.objects.Keys())

	require.NoError(t, f.recipes.DetachImage(ctx, 1, recipe.ID))
	assert.Empty(t, f.objects.Keys())
	got, err := f.recipes.Get(ctx, 1, recipe.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImageKey)
}

func TestRecipeAttachImageRejectsNonImage(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	recipe, err := f.recipes.Create(ctx, 1, RecipeInput{Title: "Pie"})
	require.NoError(t, err)

	_, err = f.recipes.AttachImage(ctx, 1, recipe.ID, []byte("notimage"))
	require.ErrorIs(t, err, ErrInvalidImage)
	assert.Empty(t, f.objects.Keys())

	_, err = f.recipes.AttachImage(ctx, 2, recipe.ID, pngBytes(t))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecipeDeleteRemovesImage(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	recipe, err := f.recipes.Create(ctx, 1, RecipeInput{Title: "Pie"})
	require.NoError(t, err)
	_, err = f.recipes.AttachImage(ctx, 1, recipe.ID, pngBytes(t))
	require.NoError(t, err)

	require.ErrorIs(t, f.recipes.Delete(ctx, 2, recipe.ID), store.ErrNotFound)
	require.NoError(t, f.recipes.Delete(ctx, 1, recipe.ID))
	assert.Empty(t, f.objects.Keys())
	assert.Contains(t, f.publisher.Channels, EventRecipeDeleted)
}
