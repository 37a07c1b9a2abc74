package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/recipe-app/apiserver/internal/storage"
	"github.com/recipe-app/apiserver/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxTitleLength = 255
	maxLinkLength  = 255
)

var maxPrice = decimal.NewFromInt(1000)

// RecipeRepository defines owner-scoped persistence operations for recipes.
type RecipeRepository interface {
	List(ctx context.Context, owner int, filter types.RecipeFilter) ([]types.Recipe, error)
	Get(ctx context.Context, owner, id int) (types.Recipe, error)
	Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	SetImage(ctx context.Context, owner, id int, key string) error
	Delete(ctx context.Context, owner, id int) (string, error)
}

// ObjectStore holds uploaded recipe images. *storage.Storage satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// RecipeInput carries the fields of a new recipe.
type RecipeInput struct {
	Title         string
	TimeMinutes   int
	Price         decimal.Decimal
	Link          string
	TagIDs        []int
	IngredientIDs []int
}

// RecipePatch carries a partial recipe update. Nil fields are left
// untouched; a non-nil association slice replaces the current set.
type RecipePatch struct {
	Title         *string
	TimeMinutes   *int
	Price         *decimal.Decimal
	Link          *string
	TagIDs        *[]int
	IngredientIDs *[]int
}

// RecipeService encapsulates recipe use-cases.
type RecipeService struct {
	repo        RecipeRepository
	tags        TagRepository
	ingredients IngredientRepository
	objects     ObjectStore
	events      *Events
	logger      *zap.Logger
}

func NewRecipeService(
	repo RecipeRepository,
	tags TagRepository,
	ingredients IngredientRepository,
	objects ObjectStore,
	events *Events,
	logger *zap.Logger,
) *RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeService{
		repo:        repo,
		tags:        tags,
		ingredients: ingredients,
		objects:     objects,
		events:      events,
		logger:      logger,
	}
}

func (s *RecipeService) List(ctx context.Context, owner int, filter types.RecipeFilter) ([]types.Recipe, error) {
	return s.repo.List(ctx, owner, filter)
}

func (s *RecipeService) Get(ctx context.Context, owner, id int) (types.Recipe, error) {
	return s.repo.Get(ctx, owner, id)
}

// Create stores a recipe owned by owner. Every tag and ingredient id must
// belong to owner.
func (s *RecipeService) Create(ctx context.Context, owner int, input RecipeInput) (types.Recipe, error) {
	recipe := types.Recipe{
		UserID:      owner,
		Title:       strings.TrimSpace(input.Title),
		TimeMinutes: input.TimeMinutes,
		Price:       input.Price,
		Link:        strings.TrimSpace(input.Link),
	}
	if err := validateRecipe(recipe); err != nil {
		return types.Recipe{}, err
	}

	var err error
	if recipe.TagIDs, err = s.ownedTagIDs(ctx, owner, input.TagIDs); err != nil {
		return types.Recipe{}, err
	}
	if recipe.IngredientIDs, err = s.ownedIngredientIDs(ctx, owner, input.IngredientIDs); err != nil {
		return types.Recipe{}, err
	}

	created, err := s.repo.Create(ctx, recipe)
	if err != nil {
		return types.Recipe{}, err
	}

	s.events.Emit(ctx, Event{Type: EventRecipeCreated, UserID: owner, RecipeID: created.ID})
	return s.repo.Get(ctx, owner, created.ID)
}

// Update applies patch to one of owner's recipes.
func (s *RecipeService) Update(ctx context.Context, owner, id int, patch RecipePatch) (types.Recipe, error) {
	recipe, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return types.Recipe{}, err
	}

	if patch.Title != nil {
		recipe.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.TimeMinutes != nil {
		recipe.TimeMinutes = *patch.TimeMinutes
	}
	if patch.Price != nil {
		recipe.Price = *patch.Price
	}
	if patch.Link != nil {
		recipe.Link = strings.TrimSpace(*patch.Link)
	}
	if err := validateRecipe(recipe); err != nil {
		return types.Recipe{}, err
	}

	if patch.TagIDs != nil {
		if recipe.TagIDs, err = s.ownedTagIDs(ctx, owner, *patch.TagIDs); err != nil {
			return types.Recipe{}, err
		}
	}
	if patch.IngredientIDs != nil {
		if recipe.IngredientIDs, err = s.ownedIngredientIDs(ctx, owner, *patch.IngredientIDs); err != nil {
			return types.Recipe{}, err
		}
	}

	if _, err := s.repo.Update(ctx, recipe); err != nil {
		return types.Recipe{}, err
	}

	s.events.Emit(ctx, Event{Type: EventRecipeUpdated, UserID: owner, RecipeID: id})
	return s.repo.Get(ctx, owner, id)
}

// Delete removes the recipe and its stored image.
func (s *RecipeService) Delete(ctx context.Context, owner, id int) error {
	image, err := s.repo.Delete(ctx, owner, id)
	if err != nil {
		return err
	}
	s.removeObject(ctx, image)

	s.events.Emit(ctx, Event{Type: EventRecipeDeleted, UserID: owner, RecipeID: id})
	return nil
}

// AttachImage validates data as a raster image, stores it and records it on
// the recipe, replacing any previous image. Nothing is stored when the
// payload is not an image.
func (s *RecipeService) AttachImage(ctx context.Context, owner, id int, data []byte) (types.Recipe, error) {
	recipe, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return types.Recipe{}, err
	}

	format, err := inspectImage(data)
	if err != nil {
		return types.Recipe{}, err
	}

	key := imageKey(recipe.ID, format.ext)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), format.contentType); err != nil {
		return types.Recipe{}, fmt.Errorf("store image: %w", err)
	}

	if err := s.repo.SetImage(ctx, owner, id, key); err != nil {
		s.removeObject(ctx, key)
		return types.Recipe{}, err
	}
	s.removeObject(ctx, recipe.ImageKey)

	recipe.ImageKey = key
	s.events.Emit(ctx, Event{Type: EventRecipeImageAttached, UserID: owner, RecipeID: id, ImageKey: key})
	return recipe, nil
}

// DetachImage clears the recipe's image and deletes the stored object.
func (s *RecipeService) DetachImage(ctx context.Context, owner, id int) error {
	recipe, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if recipe.ImageKey == "" {
		return nil
	}
	if err := s.repo.SetImage(ctx, owner, id, ""); err != nil {
		return err
	}
	s.removeObject(ctx, recipe.ImageKey)
	return nil
}

func (s *RecipeService) ownedTagIDs(ctx context.Context, owner int, ids []int) ([]int, error) {
	ids, err := uniqueIDs(ids)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	found, err := s.tags.GetMany(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, fmt.Errorf("%w: unknown tag id", ErrInvalidInput)
	}
	return ids, nil
}

func (s *RecipeService) ownedIngredientIDs(ctx context.Context, owner int, ids []int) ([]int, error) {
	ids, err := uniqueIDs(ids)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	found, err := s.ingredients.GetMany(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, fmt.Errorf("%w: unknown ingredient id", ErrInvalidInput)
	}
	return ids, nil
}

func (s *RecipeService) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("delete image failed", zap.String("key", key), zap.Error(err))
	}
}

func validateRecipe(recipe types.Recipe) error {
	switch {
	case recipe.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case len(recipe.Title) > maxTitleLength:
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleLength)
	case recipe.TimeMinutes < 0:
		return fmt.Errorf("%w: time_minutes must not be negative", ErrInvalidInput)
	case recipe.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	case recipe.Price.GreaterThanOrEqual(maxPrice):
		return fmt.Errorf("%w: price must be below %s", ErrInvalidInput, maxPrice)
	case !recipe.Price.Equal(recipe.Price.Truncate(2)):
		return fmt.Errorf("%w: price must have at most 2 decimal places", ErrInvalidInput)
	case len(recipe.Link) > maxLinkLength:
		return fmt.Errorf("%w: link must be at most %d characters", ErrInvalidInput, maxLinkLength)
	}
	return nil
}

// uniqueIDs returns ids sorted with duplicates removed.
func uniqueIDs(ids []int) ([]int, error) {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id < 1 {
			return nil, fmt.Errorf("%w: invalid id %d", ErrInvalidInput, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

func imageKey(recipeID int, ext string) string {
	return fmt.Sprintf("uploads/recipe/%d/%s.%s", recipeID, uuid.NewString(), ext)
}
