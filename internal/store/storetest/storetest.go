// Package storetest provides in-memory repositories and object storage with
// the same observable behavior as the PostgreSQL store, for service and
// handler tests.
package storetest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/recipe-app/apiserver/internal/storage"
	"github.com/recipe-app/apiserver/internal/store"
	"github.com/recipe-app/apiserver/types"
)

// DB is an in-memory database shared by the repositories below.
type DB struct {
	mu sync.Mutex

	nextID      int
	users       map[int]types.User
	tokens      map[int]types.AuthToken
	tags        map[int]types.Tag
	ingredients map[int]types.Ingredient
	recipes     map[int]types.Recipe
}

func New() *DB {
	return &DB{
		users:       map[int]types.User{},
		tokens:      map[int]types.AuthToken{},
		tags:        map[int]types.Tag{},
		ingredients: map[int]types.Ingredient{},
		recipes:     map[int]types.Recipe{},
	}
}

func (db *DB) id() int {
	db.nextID++
	return db.nextID
}

func (db *DB) Users() *UserRepository             { return &UserRepository{db: db} }
func (db *DB) Tokens() *TokenRepository           { return &TokenRepository{db: db} }
func (db *DB) Tags() *TagRepository               { return &TagRepository{db: db} }
func (db *DB) Ingredients() *IngredientRepository { return &IngredientRepository{db: db} }
func (db *DB) Recipes() *RecipeRepository         { return &RecipeRepository{db: db} }

// UserRepository mirrors store.UserRepository.
type UserRepository struct{ db *DB }

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	user, ok := r.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, user := range r.db.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.db.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.db.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for _, existing := range r.db.users {
		if existing.ID != user.ID && existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now()
	r.db.users[user.ID] = user
	return user, nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.db.users)
}

// TokenRepository mirrors store.TokenRepository.
type TokenRepository struct{ db *DB }

func (r *TokenRepository) GetOrCreate(ctx context.Context, userID int, key string) (types.AuthToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if token, ok := r.db.tokens[userID]; ok {
		return token, nil
	}
	token := types.AuthToken{Key: key, UserID: userID, CreatedAt: time.Now()}
	r.db.tokens[userID] = token
	return token, nil
}

func (r *TokenRepository) GetByKey(ctx context.Context, key string) (types.AuthToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, token := range r.db.tokens {
		if token.Key == key {
			return token, nil
		}
	}
	return types.AuthToken{}, store.ErrNotFound
}

// TagRepository mirrors store.TagRepository.
type TagRepository struct{ db *DB }

func (r *TagRepository) List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]types.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]types.Tag, 0)
	for _, tag := range r.db.tags {
		if tag.UserID != owner {
			continue
		}
		if filter.AssignedOnly && !r.db.tagAssigned(owner, tag.ID) {
			continue
		}
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return nameDesc(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *TagRepository) GetMany(ctx context.Context, owner int, ids []int) ([]types.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]types.Tag, 0, len(ids))
	for _, id := range ids {
		if tag, ok := r.db.tags[id]; ok && tag.UserID == owner {
			out = append(out, tag)
		}
	}
	return out, nil
}

func (r *TagRepository) Get(ctx context.Context, owner, id int) (types.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	tag, ok := r.db.tags[id]
	if !ok || tag.UserID != owner {
		return types.Tag{}, store.ErrNotFound
	}
	return tag, nil
}

func (r *TagRepository) Create(ctx context.Context, tag types.Tag) (types.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	tag.ID = r.db.id()
	tag.CreatedAt = time.Now()
	r.db.tags[tag.ID] = tag
	return tag, nil
}

func (r *TagRepository) Update(ctx context.Context, tag types.Tag) (types.Tag, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.tags[tag.ID]
	if !ok || existing.UserID != tag.UserID {
		return types.Tag{}, store.ErrNotFound
	}
	existing.Name = tag.Name
	r.db.tags[tag.ID] = existing
	return existing, nil
}

func (r *TagRepository) Delete(ctx context.Context, owner, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	tag, ok := r.db.tags[id]
	if !ok || tag.UserID != owner {
		return store.ErrNotFound
	}
	delete(r.db.tags, id)
	for rid, recipe := range r.db.recipes {
		recipe.TagIDs = without(recipe.TagIDs, id)
		r.db.recipes[rid] = recipe
	}
	return nil
}

// IngredientRepository mirrors store.IngredientRepository.
type IngredientRepository struct{ db *DB }

func (r *IngredientRepository) List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]types.Ingredient, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]types.Ingredient, 0)
	for _, ingredient := range r.db.ingredients {
		if ingredient.UserID != owner {
			continue
		}
		if filter.AssignedOnly && !r.db.ingredientAssigned(owner, ingredient.ID) {
			continue
		}
		out = append(out, ingredient)
	}
	sort.Slice(out, func(i, j int) bool { return nameDesc(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *IngredientRepository) GetMany(ctx context.Context, owner int, ids []int) ([]types.Ingredient, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]types.Ingredient, 0, len(ids))
	for _, id := range ids {
		if ingredient, ok := r.db.ingredients[id]; ok && ingredient.UserID == owner {
			out = append(out, ingredient)
		}
	}
	return out, nil
}

func (r *IngredientRepository) Get(ctx context.Context, owner, id int) (types.Ingredient, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ingredient, ok := r.db.ingredients[id]
	if !ok || ingredient.UserID != owner {
		return types.Ingredient{}, store.ErrNotFound
	}
	return ingredient, nil
}

func (r *IngredientRepository) Create(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ingredient.ID = r.db.id()
	ingredient.CreatedAt = time.Now()
	r.db.ingredients[ingredient.ID] = ingredient
	return ingredient, nil
}

func (r *IngredientRepository) Update(ctx context.Context, ingredient types.Ingredient) (types.Ingredient, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.ingredients[ingredient.ID]
	if !ok || existing.UserID != ingredient.UserID {
		return types.Ingredient{}, store.ErrNotFound
	}
	existing.Name = ingredient.Name
	r.db.ingredients[ingredient.ID] = existing
	return existing, nil
}

func (r *IngredientRepository) Delete(ctx context.Context, owner, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ingredient, ok := r.db.ingredients[id]
	if !ok || ingredient.UserID != owner {
		return store.ErrNotFound
	}
	delete(r.db.ingredients, id)
	for rid, recipe := range r.db.recipes {
		recipe.IngredientIDs = without(recipe.IngredientIDs, id)
		r.db.recipes[rid] = recipe
	}
	return nil
}

// RecipeRepository mirrors store.RecipeRepository.
type RecipeRepository struct{ db *DB }

func (r *RecipeRepository) List(ctx context.Context, owner int, filter types.RecipeFilter) ([]types.Recipe, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]types.Recipe, 0)
	for _, recipe := range r.db.recipes {
		if recipe.UserID != owner {
			continue
		}
		if len(filter.TagIDs) > 0 && !intersects(recipe.TagIDs, filter.TagIDs) {
			continue
		}
		if len(filter.IngredientIDs) > 0 && !intersects(recipe.IngredientIDs, filter.IngredientIDs) {
			continue
		}
		recipe.TagIDs = clone(recipe.TagIDs)
		recipe.IngredientIDs = clone(recipe.IngredientIDs)
		out = append(out, recipe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *RecipeRepository) Get(ctx context.Context, owner, id int) (types.Recipe, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recipe, ok := r.db.recipes[id]
	if !ok || recipe.UserID != owner {
		return types.Recipe{}, store.ErrNotFound
	}

	recipe.Tags = make([]types.Tag, 0, len(recipe.TagIDs))
	for _, tagID := range recipe.TagIDs {
		recipe.Tags = append(recipe.Tags, r.db.tags[tagID])
	}
	sort.Slice(recipe.Tags, func(i, j int) bool {
		return nameDesc(recipe.Tags[i].Name, recipe.Tags[i].ID, recipe.Tags[j].Name, recipe.Tags[j].ID)
	})
	recipe.Ingredients = make([]types.Ingredient, 0, len(recipe.IngredientIDs))
	for _, ingredientID := range recipe.IngredientIDs {
		recipe.Ingredients = append(recipe.Ingredients, r.db.ingredients[ingredientID])
	}
	sort.Slice(recipe.Ingredients, func(i, j int) bool {
		a, b := recipe.Ingredients[i], recipe.Ingredients[j]
		return nameDesc(a.Name, a.ID, b.Name, b.ID)
	})

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

func (r *RecipeRepository) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recipe.ID = r.db.id()
	recipe.CreatedAt = time.Now()
	recipe.UpdatedAt = recipe.CreatedAt
	recipe.TagIDs = clone(recipe.TagIDs)
	recipe.IngredientIDs = clone(recipe.IngredientIDs)
	recipe.Tags, recipe.Ingredients = nil, nil
	r.db.recipes[recipe.ID] = recipe
	return recipe, nil
}

func (r *RecipeRepository) Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.recipes[recipe.ID]
	if !ok || existing.UserID != recipe.UserID {
		return types.Recipe{}, store.ErrNotFound
	}
	existing.Title = recipe.Title
	existing.TimeMinutes = recipe.TimeMinutes
	existing.Price = recipe.Price
	existing.Link = recipe.Link
	existing.TagIDs = clone(recipe.TagIDs)
	existing.IngredientIDs = clone(recipe.IngredientIDs)
	existing.UpdatedAt = time.Now()
	r.db.recipes[recipe.ID] = existing
	return existing, nil
}

func (r *RecipeRepository) SetImage(ctx context.Context, owner, id int, key string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recipe, ok := r.db.recipes[id]
	if !ok || recipe.UserID != owner {
		return store.ErrNotFound
	}
	recipe.ImageKey = key
	r.db.recipes[id] = recipe
	return nil
}

func (r *RecipeRepository) Delete(ctx context.Context, owner, id int) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	recipe, ok := r.db.recipes[id]
	if !ok || recipe.UserID != owner {
		return "", store.ErrNotFound
	}
	delete(r.db.recipes, id)
	return recipe.ImageKey, nil
}

func (db *DB) tagAssigned(owner, tagID int) bool {
	for _, recipe := range db.recipes {
		if recipe.UserID == owner && contains(recipe.TagIDs, tagID) {
			return true
		}
	}
	return false
}

func (db *DB) ingredientAssigned(owner, ingredientID int) bool {
	for _, recipe := range db.recipes {
		if recipe.UserID == owner && contains(recipe.IngredientIDs, ingredientID) {
			return true
		}
	}
	return false
}

// ObjectStore is an in-memory storage.ObjectStorage backend.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string]storedObject
}

type storedObject struct {
	data        []byte
	contentType string
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: map[string]storedObject{}}
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error { return nil }

func (s *ObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = storedObject{data: data, contentType: contentType}
	return nil
}

func (s *ObjectStore) Get(ctx context.Context, key string) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *ObjectStore) Bucket() string { return "memory" }

// Keys returns the stored keys in sorted order.
func (s *ObjectStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Publisher records published events.
type Publisher struct {
	mu       sync.Mutex
	Channels []string
	Payloads [][]byte
}

func (p *Publisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Channels = append(p.Channels, channel)
	p.Payloads = append(p.Payloads, data)
	return channel, nil
}

func nameDesc(nameA string, idA int, nameB string, idB int) bool {
	if nameA != nameB {
		return nameA > nameB
	}
	return idA > idB
}

func contains(ids []int, id int) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func intersects(ids, wanted []int) bool {
	for _, id := range wanted {
		if contains(ids, id) {
			return true
		}
	}
	return false
}

func without(ids []int, id int) []int {
	out := make([]int, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func clone(ids []int) []int {
	return append([]int{}, ids...)
}
