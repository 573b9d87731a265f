// Package category manages each owner's coloured expense categories.
package category

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/events"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/store"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Registry is the owner-scoped category store.
type Registry struct {
	categories *store.Collection[models.Category]
	pub        events.Publisher
	now        func() time.Time

	// seedMu makes the empty check and the seeding of one owner atomic.
	seedMu sync.Mutex
}

// NewRegistry creates a Registry over a loaded collection.
func NewRegistry(categories *store.Collection[models.Category], pub events.Publisher) *Registry {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Registry{categories: categories, pub: pub, now: time.Now}
}

// Patch carries the replacement name and colour for Update.
type Patch struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ListForOwner returns the owner's categories, seeding the defaults when
// the owner has none.
func (r *Registry) ListForOwner(ctx context.Context, owner string) ([]models.Category, error) {
	if list := r.categories.ByOwner(owner); len(list) > 0 {
		return list, nil
	}

	r.seedMu.Lock()
	defer r.seedMu.Unlock()

	if list := r.categories.ByOwner(owner); len(list) > 0 {
		return list, nil
	}

	now := r.now().UTC()
	saved := make([]string, 0, len(models.DefaultCategories))
	for _, seed := range models.DefaultCategories {
		c := models.Category{
			ID:        uuid.NewString(),
			Owner:     owner,
			Name:      seed.Name,
			Color:     seed.Color,
			CreatedAt: now,
		}
		if err := r.categories.Save(ctx, c, store.Back); err != nil {
			r.rollbackSeed(ctx, owner, saved)
			return nil, err
		}
		saved = append(saved, c.ID)
	}

	logger.Log.Info().
		Str("user_hash", logger.HashUsername(owner)).
		Int("count", len(models.DefaultCategories)).
		Msg("Seeded default categories")
	events.Emit(ctx, r.pub, events.New(events.CategorySeeded, owner, ""))

	return r.categories.ByOwner(owner), nil
}

// rollbackSeed removes a partially written default set so the next
// ListForOwner seeds the owner again.
func (r *Registry) rollbackSeed(ctx context.Context, owner string, ids []string) {
	for _, id := range ids {
		if _, err := r.categories.Delete(ctx, id); err != nil {
			logger.Log.Error().Err(err).
				Str("user_hash", logger.HashUsername(owner)).
				Str("category_id", id).
				Msg("Failed to roll back seeded category")
		}
	}
}

// Create adds a category to the front of the owner's list.
func (r *Registry) Create(ctx context.Context, owner, name, color string) (models.Category, error) {
	name, color, err := normalize(name, color)
	if err != nil {
		return models.Category{}, err
	}

	c := models.Category{
		ID:        uuid.NewString(),
		Owner:     owner,
		Name:      name,
		Color:     color,
		CreatedAt: r.now().UTC(),
	}
	if err := r.categories.Save(ctx, c, store.Front); err != nil {
		return models.Category{}, err
	}

	events.Emit(ctx, r.pub, events.New(events.CategoryCreated, owner, c.ID))
	return c, nil
}

// Update replaces the name and colour of the owner's category. A blank
// colour keeps the current one. An unknown id is ignored and reported as
// found=false.
func (r *Registry) Update(ctx context.Context, owner, id string, patch Patch) (models.Category, bool, error) {
	name, err := normalizeName(patch.Name)
	if err != nil {
		return models.Category{}, false, err
	}
	color, err := normalizeColor(patch.Color)
	if err != nil {
		return models.Category{}, false, err
	}

	c, ok := r.categories.Get(id)
	if !ok || c.Owner != owner {
		return models.Category{}, false, nil
	}

	c.Name = name
	if color != "" {
		c.Color = color
	}
	if err := r.categories.Save(ctx, c, store.Back); err != nil {
		return models.Category{}, false, err
	}

	events.Emit(ctx, r.pub, events.New(events.CategoryUpdated, owner, id))
	return c, true, nil
}

// Delete removes the owner's category. Expenses that name it are kept.
func (r *Registry) Delete(ctx context.Context, owner, id string) (bool, error) {
	c, ok := r.categories.Get(id)
	if !ok || c.Owner != owner {
		return false, nil
	}

	deleted, err := r.categories.Delete(ctx, id)
	if err != nil || !deleted {
		return false, err
	}

	events.Emit(ctx, r.pub, events.New(events.CategoryDeleted, owner, id))
	return true, nil
}

// Get returns one of the owner's categories.
func (r *Registry) Get(owner, id string) (models.Category, error) {
	c, ok := r.categories.Get(id)
	if !ok || c.Owner != owner {
		return models.Category{}, apperr.NotFound("category not found")
	}
	return c, nil
}

// Revision changes whenever the owner's categories change.
func (r *Registry) Revision(owner string) uint64 {
	return r.categories.Revision(owner)
}

// Names returns the owner's category names in display order.
func (r *Registry) Names(ctx context.Context, owner string) ([]string, error) {
	list, err := r.ListForOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}
	return names, nil
}

func normalize(name, color string) (string, string, error) {
	name, err := normalizeName(name)
	if err != nil {
		return "", "", err
	}
	color, err = normalizeColor(color)
	if err != nil {
		return "", "", err
	}
	if color == "" {
		color = models.DefaultCategoryColor
	}
	return name, color, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxCategoryNameLength {
		return "", apperr.Validationf("name must be at most %d characters", models.MaxCategoryNameLength)
	}
	return name, nil
}

// normalizeColor lowercases a #rrggbb colour. Blank stays blank.
func normalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return "", nil
	}
	if !colorPattern.MatchString(color) {
		return "", apperr.Validation("color must look like #rrggbb")
	}
	return strings.ToLower(color), nil
}
