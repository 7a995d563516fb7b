package store

import (
	"context"

	"securegate/internal/domain"

	"gorm.io/gorm"
)

// SectionInput is one section to write, with its image urls already in display order
type SectionInput struct {
	Title     string
	Body      string
	ImageURLs []string
}

// PostUpdate holds the optional top-level fields of an update
type PostUpdate struct {
	Slug      *string
	Published *bool
}

// PostStore persists post aggregates. Every write runs in one transaction.
type PostStore struct {
	db *gorm.DB
}

// NewPostStore creates a post store on db
func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

// Create inserts the post, then its sections and images with dense 1-based ordering
func (s *PostStore) Create(ctx context.Context, slug string, published bool, sections []SectionInput) (*domain.Post, error) {
	post := domain.Post{Slug: slug, Published: published}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return insertSections(tx, post.ID, sections)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, post.ID)
}

// Update changes slug/published and, when replace is set, swaps all children for sections
func (s *PostStore) Update(ctx context.Context, id uint, fields PostUpdate, sections []SectionInput, replace bool) (*domain.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.Post
		if err := tx.First(&post, id).Error; err != nil {
			return notFound(err)
		}

		updates := map[string]any{}
		if fields.Slug != nil {
			updates["slug"] = *fields.Slug
		}
		if fields.Published != nil {
			updates["published"] = *fields.Published
		}
		if len(updates) > 0 {
			if err := tx.Model(&post).Updates(updates).Error; err != nil {
				return err
			}
		}

		if !replace {
			return nil
		}
		sectionIDs := tx.Model(&domain.PostSection{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("section_id IN (?)", sectionIDs).Delete(&domain.PostImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.PostSection{}).Error; err != nil {
			return err
		}
		return insertSections(tx, id, sections)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// insertSections writes sections in array order, each followed by a bulk insert of its images
func insertSections(tx *gorm.DB, postID uint, sections []SectionInput) error {
	for i, in := range sections {
		section := domain.PostSection{
			PostID:       postID,
			Title:        in.Title,
			Body:         in.Body,
			SectionOrder: i + 1,
		}
		if err := tx.Create(&section).Error; err != nil {
			return err
		}
		if len(in.ImageURLs) == 0 {
			continue
		}
		images := make([]domain.PostImage, len(in.ImageURLs))
		for j, url := range in.ImageURLs {
			images[j] = domain.PostImage{SectionID: section.ID, ImageURL: url, ImageOrder: j + 1}
		}
		if err := tx.Create(&images).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a post. Sections and images go with it through the foreign key cascade.
func (s *PostStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every post newest first, with children attached in order
func (s *PostStore) List(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	err := withChildren(s.db.WithContext(ctx)).
		Order("created_at DESC").Order("id DESC").
		Find(&posts).Error
	return posts, err
}

// Get returns one post with children attached in order
func (s *PostStore) Get(ctx context.Context, id uint) (*domain.Post, error) {
	var post domain.Post
	if err := withChildren(s.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("section_order ASC").Order("id ASC")
		}).
		Preload("Sections.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("image_order ASC").Order("id ASC")
		})
}
