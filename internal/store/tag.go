package store

import (
	"context"
	"database/sql"

	"github.com/recipe-app/apiserver/types"
)

// TagRepository handles persistence for tags. Every method is scoped to the
// owning user.
type TagRepository struct {
	table taxonomyTable
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{table: newTaxonomyTable(db, "tags", "recipe_tags", "tag_id")}
}

// List returns the owner's tags ordered by name descending.
func (r *TagRepository) List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]types.Tag, error) {
	rows, err := r.table.list(ctx, owner, filter.AssignedOnly)
	if err != nil {
		return nil, err
	}
	return toTags(rows), nil
}

// GetMany returns the owner's tags among ids. Foreign or unknown ids are
// silently omitted.
func (r *TagRepository) GetMany(ctx context.Context, owner int, ids []int) ([]types.Tag, error) {
	rows, err := r.table.many(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	return toTags(rows), nil
}

func (r *TagRepository) Get(ctx context.Context, owner, id int) (types.Tag, error) {
	row, err := r.table.get(ctx, owner, id)
	if err != nil {
		return types.Tag{}, err
	}
	return types.Tag(row), nil
}

func (r *TagRepository) Create(ctx context.Context, tag types.Tag) (types.Tag, error) {
	row, err := r.table.create(ctx, namedRow(tag))
	if err != nil {
		return types.Tag{}, err
	}
	return types.Tag(row), nil
}

func (r *TagRepository) Update(ctx context.Context, tag types.Tag) (types.Tag, error) {
	if err := r.table.rename(ctx, tag.UserID, tag.ID, tag.Name); err != nil {
		return types.Tag{}, err
	}
	return tag, nil
}

func (r *TagRepository) Delete(ctx context.Context, owner, id int) error {
	return r.table.delete(ctx, owner, id)
}

func toTags(rows []namedRow) []types.Tag {
	tags := make([]types.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, types.Tag(row))
	}
	return tags
}
