package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/recipe-app/apiserver/types"
)

const maxNameLength = 255

// TagRepository defines owner-scoped persistence operations for tags.
type TagRepository interface {
	List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]types.Tag, error)
	GetMany(ctx context.Context, owner int, ids []int) ([]types.Tag, error)
	Get(ctx context.Context, owner, id int) (types.Tag, error)
	Create(ctx context.Context, tag types.Tag) (types.Tag, error)
	Update(ctx context.Context, tag types.Tag) (types.Tag, error)
	Delete(ctx context.Context, owner, id int) error
}

// TagService encapsulates tag use-cases.
type TagService struct {
	repo TagRepository
}

func NewTagService(repo TagRepository) *TagService {
	return &TagService{repo: repo}
}

func (s *TagService) List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]types.Tag, error) {
	return s.repo.List(ctx, owner, filter)
}

func (s *TagService) Get(ctx context.Context, owner, id int) (types.Tag, error) {
	return s.repo.Get(ctx, owner, id)
}

func (s *TagService) Create(ctx context.Context, owner int, name string) (types.Tag, error) {
	name, err := validateName(name)
	if err != nil {
		return types.Tag{}, err
	}
	return s.repo.Create(ctx, types.Tag{UserID: owner, Name: name})
}

// Update renames the tag. A nil name leaves it unchanged.
func (s *TagService) Update(ctx context.Context, owner, id int, name *string) (types.Tag, error) {
	tag, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return types.Tag{}, err
	}
	if name == nil {
		return tag, nil
	}
	if tag.Name, err = validateName(*name); err != nil {
		return types.Tag{}, err
	}
	return s.repo.Update(ctx, tag)
}

func (s *TagService) Delete(ctx context.Context, owner, id int) error {
	return s.repo.Delete(ctx, owner, id)
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, maxNameLength)
	}
	return name, nil
}
