package services

import (
	"context"
	"testing"

	"github.com/recipe-app/apiserver/internal/store"
	"github.com/recipe-app/apiserver/internal/store/storetest"
	"github.com/recipe-app/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagServiceScopesToOwner(t *testing.T) {
	db := storetest.New()
	svc := NewTagService(db.Tags())
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, "Dessert")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, "Vegan")
	require.NoError(t, err)
	foreign, err := svc.Create(ctx, 2, "Fruity")
	require.NoError(t, err)

	tags, err := svc.List(ctx, 1, types.TaxonomyFilter{})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Vegan", tags[0].Name)
	assert.Equal(t, "Dessert", tags[1].Name)

	_, err = svc.Get(ctx, 1, foreign.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Update(ctx, 1, foreign.ID, ptr("Mine"))
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 1, foreign.ID), store.ErrNotFound)
}

func TestTagServiceValidatesName(t *testing.T) {
	svc := NewTagService(storetest.New().Tags())

	_, err := svc.Create(context.Background(), 1, "  ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTagServiceUpdate(t *testing.T) {
	svc := NewTagService(storetest.New().Tags())
	ctx := context.Background()

	tag, err := svc.Create(ctx, 1, "Breakfast")
	require.NoError(t, err)

	unchanged, err := svc.Update(ctx, 1, tag.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", unchanged.Name)

	renamed, err := svc.Update(ctx, 1, tag.ID, ptr(" Brunch "))
	require.NoError(t, err)
	assert.Equal(t, "Brunch", renamed.Name)

	_, err = svc.Update(ctx, 1, tag.ID, ptr(""))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestIngredientServiceAssignedOnly(t *testing.T) {
	db := storetest.New()
	ingredients := NewIngredientService(db.Ingredients())
	recipes := NewRecipeService(db.Recipes(), db.Tags(), db.Ingredients(), storetest.NewObjectStore(), nil, nil)
	ctx := context.Background()

	kale, err := ingredients.Create(ctx, 1, "Kale")
	require.NoError(t, err)
	_, err = ingredients.Create(ctx, 1, "Salt")
	require.NoError(t, err)

	_, err = recipes.Create(ctx, 1, RecipeInput{Title: "Salad", TimeMinutes: 5, IngredientIDs: []int{kale.ID, kale.ID}})
	require.NoError(t, err)
	_, err = recipes.Create(ctx, 1, RecipeInput{Title: "Smoothie", TimeMinutes: 3, IngredientIDs: []int{kale.ID}})
	require.NoError(t, err)

	all, err := ingredients.List(ctx, 1, types.TaxonomyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assigned, err := ingredients.List(ctx, 1, types.TaxonomyFilter{AssignedOnly: true})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "Kale", assigned[0].Name)
}
