package services

import (
	"context"

	"github.com/recipe-app/apiserver/types"
)

// IngredientRepository defines owner-scoped persistence operations for
// ingredients.
type IngredientRepository interface {
	List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]types.Ingredient, error)
	GetMany(ctx context.Context, owner int, ids []int) ([]types.Ingredient, error)
	Get(ctx context.Context, owner, id int) (types.Ingredient, error)
	Create(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error)
	Update(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error)
	Delete(ctx context.Context, owner, id int) error
}

// IngredientService encapsulates ingredient use-cases.
type IngredientService struct {
	repo IngredientRepository
}

func NewIngredientService(repo IngredientRepository) *IngredientService {
	return &IngredientService{repo: repo}
}

func (s *IngredientService) List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]types.Ingredient, error) {
	return s.repo.List(ctx, owner, filter)
}

func (s *IngredientService) Get(ctx context.Context, owner, id int) (types.Ingredient, error) {
	return s.repo.Get(ctx, owner, id)
}

func (s *IngredientService) Create(ctx context.Context, owner int, name string) (types.Ingredient, error) {
	name, err := validateName(name)
	if err != nil {
		return types.Ingredient{}, err
	}
	return s.repo.Create(ctx, types.Ingredient{UserID: owner, Name: name})
}

func (s *IngredientService) Update(ctx context.Context, owner, id int, name *string) (types.Ingredient, error) {
	ingredient, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return types.Ingredient{}, err
	}
	if name == nil {
		return ingredient, nil
	}
	if ingredient.Name, err = validateName(*name); err != nil {
		return types.Ingredient{}, err
	}
	return s.repo.Update(ctx, ingredient)
}

func (s *IngredientService) Delete(ctx context.Context, owner, id int) error {
	return s.repo.Delete(ctx, owner, id)
}
