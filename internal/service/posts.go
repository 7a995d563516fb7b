package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"securegate/internal/domain"
	"securegate/internal/metrics"
	"securegate/internal/store"
	"securegate/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// MaxPostImages caps the files accepted by one create request
	MaxPostImages = 10
	// ImagesField is the legacy multipart field; files are matched to sections by filename prefix
	ImagesField = "images"

	postsGenerationKey = "posts:generation"
	postCacheTTL       = 60 * time.Second
)

// Cache keys embed the generation so a write makes every earlier entry unreachable,
// including entries a concurrent read stores after the write committed.
func postsCacheKey(gen int64) string {
	return "posts:" + strconv.FormatInt(gen, 10) + ":all"
}

func postCacheKey(gen int64, id uint) string {
	return "posts:" + strconv.FormatInt(gen, 10) + ":id:" + strconv.FormatUint(uint64(id), 10)
}

// SectionPayload is one section as submitted by the client.
// TempID correlates uploads on create; Images lists known urls on update.
type SectionPayload struct {
	TempID string   `json:"tempId"`
	Title  string   `json:"title" validate:"max=255"`
	Body   string   `json:"body"`
	Images []string `json:"images" validate:"dive,required,max=255"`
}

// FileUpload is one multipart file with the form field it arrived under
type FileUpload struct {
	Field  string
	Header *multipart.FileHeader
}

// CreatePostInput is the create payload
type CreatePostInput struct {
	Slug      string
	Published bool
	Sections  []SectionPayload `validate:"dive"`
}

// UpdatePostInput is the update payload. A non-empty Sections replaces every section and image.
type UpdatePostInput struct {
	Slug      *string          `json:"slug"`
	Published *bool            `json:"published"`
	Sections  []SectionPayload `json:"sections" validate:"dive"`
}

// PostStore is the aggregate persistence the post service depends on
type PostStore interface {
	Create(ctx context.Context, slug string, published bool, sections []store.SectionInput) (*domain.Post, error)
	Update(ctx context.Context, id uint, fields store.PostUpdate, sections []store.SectionInput, replace bool) (*domain.Post, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]domain.Post, error)
	Get(ctx context.Context, id uint) (*domain.Post, error)
}

// PostService manages post aggregates and their read cache
type PostService struct {
	posts PostStore
	files utils.FileStore
	rdb   *redis.Client
}

// NewPostService creates the post service. rdb may be nil to disable caching.
func NewPostService(posts PostStore, files utils.FileStore, rdb *redis.Client) *PostService {
	return &PostService{posts: posts, files: files, rdb: rdb}
}

// explicitSection returns the tempId of an `images[<tempId>]` field
func explicitSection(field string) (string, bool) {
	if !strings.HasPrefix(field, ImagesField+"[") || !strings.HasSuffix(field, "]") {
		return "", false
	}
	return field[len(ImagesField)+1 : len(field)-1], true
}

// correlate assigns files to sections and returns, per section, the indexes of its files in upload order.
// Files under `images[<tempId>]` match exactly. Files under `images` match the section whose tempId is the
// longest prefix of the filename. Files matching no section are left out.
func correlate(sections []SectionPayload, files []FileUpload) ([][]int, error) {
	byID := make(map[string]int, len(sections))
	for i, s := range sections {
		if s.TempID == "" {
			continue
		}
		if _, dup := byID[s.TempID]; dup {
			return nil, domain.NewValidation(fmt.Sprintf("Duplicate section tempId %q", s.TempID))
		}
		byID[s.TempID] = i
	}

	out := make([][]int, len(sections))
	for fi, f := range files {
		if id, ok := explicitSection(f.Field); ok {
			si, found := byID[id]
			if !found {
				return nil, domain.NewValidation(fmt.Sprintf("No section with tempId %q for uploaded file", id))
			}
			out[si] = append(out[si], fi)
			continue
		}
		if f.Field != ImagesField || f.Header == nil {
			continue
		}
		best, bestLen := -1, 0
		for id, si := range byID {
			if len(id) > bestLen && strings.HasPrefix(f.Header.Filename, id) {
				best, bestLen = si, len(id)
			}
		}
		if best >= 0 {
			out[best] = append(out[best], fi)
		}
	}
	return out, nil
}

// CreatePost stores the uploads that belong to a section, then writes the aggregate in one transaction.
// Saved files are removed again when anything fails.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput, files []FileUpload) (*domain.Post, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		return nil, domain.NewValidation("slug is required")
	}
	if len(in.Slug) > 191 {
		return nil, domain.NewValidation("slug must be at most 191 characters long")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if len(files) > MaxPostImages {
		return nil, domain.NewValidation(fmt.Sprintf("At most %d images may be uploaded", MaxPostImages))
	}
	assigned, err := correlate(in.Sections, files)
	if err != nil {
		return nil, err
	}

	var saved []string
	sections := make([]store.SectionInput, len(in.Sections))
	for i, sec := range in.Sections {
		sections[i] = store.SectionInput{Title: sec.Title, Body: sec.Body}
		for _, fi := range assigned[i] {
			path, err := s.files.Save(files[fi].Field, files[fi].Header)
			if err != nil {
				s.discard(saved)
				if errors.Is(err, utils.ErrInvalidImageType) || errors.Is(err, utils.ErrImageTooLarge) {
					return nil, domain.NewValidation(err.Error())
				}
				return nil, fmt.Errorf("save upload: %w", err)
			}
			saved = append(saved, path)
			sections[i].ImageURLs = append(sections[i].ImageURLs, path)
		}
	}

	post, err := s.posts.Create(ctx, in.Slug, in.Published, sections)
	if err != nil {
		s.discard(saved)
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.invalidate(ctx, post.ID)
	metrics.PostWritesTotal.WithLabelValues("create").Inc()
	logrus.WithFields(logrus.Fields{"postID": post.ID, "sections": len(sections), "images": len(saved)}).Info("post created")
	return post, nil
}

// UpdatePost changes slug/published and replaces the children when sections are given
func (s *PostService) UpdatePost(ctx context.Context, id uint, in UpdatePostInput) (*domain.Post, error) {
	if in.Slug != nil {
		slug := strings.TrimSpace(*in.Slug)
		if slug == "" {
			return nil, domain.NewValidation("slug must not be empty")
		}
		if len(slug) > 191 {
			return nil, domain.NewValidation("slug must be at most 191 characters long")
		}
		in.Slug = &slug
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	replace := len(in.Sections) > 0
	sections := make([]store.SectionInput, len(in.Sections))
	for i, sec := range in.Sections {
		sections[i] = store.SectionInput{Title: sec.Title, Body: sec.Body, ImageURLs: sec.Images}
	}

	post, err := s.posts.Update(ctx, id, store.PostUpdate{Slug: in.Slug, Published: in.Published}, sections, replace)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFound("Post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	s.invalidate(ctx, id)
	metrics.PostWritesTotal.WithLabelValues("update").Inc()
	logrus.WithFields(logrus.Fields{"postID": id, "replaced": replace}).Info("post updated")
	return post, nil
}

// DeletePost removes a post with all its sections and images
func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	err := s.posts.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewNotFound("Post not found")
	}
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	s.invalidate(ctx, id)
	metrics.PostWritesTotal.WithLabelValues("delete").Inc()
	logrus.WithField("postID", id).Info("post deleted")
	return nil
}

// ListPosts returns every post with its children and whether the result came from the cache
func (s *PostService) ListPosts(ctx context.Context) ([]domain.Post, bool, error) {
	gen, cacheOK := s.generation(ctx)
	var posts []domain.Post
	if cacheOK {
		if hit, err := utils.GetCache(ctx, s.rdb, postsCacheKey(gen), &posts); err != nil {
			logrus.WithError(err).Warn("post cache read failed")
		} else if hit {
			return posts, true, nil
		}
	}

	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	if cacheOK {
		if err := utils.SetCache(ctx, s.rdb, postsCacheKey(gen), posts, postCacheTTL); err != nil {
			logrus.WithError(err).Warn("post cache write failed")
		}
	}
	return posts, false, nil
}

// GetPost returns one post with its children and whether it came from the cache
func (s *PostService) GetPost(ctx context.Context, id uint) (*domain.Post, bool, error) {
	gen, cacheOK := s.generation(ctx)
	var post domain.Post
	if cacheOK {
		if hit, err := utils.GetCache(ctx, s.rdb, postCacheKey(gen, id), &post); err != nil {
			logrus.WithError(err).Warn("post cache read failed")
		} else if hit {
			return &post, true, nil
		}
	}

	p, err := s.posts.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, domain.NewNotFound("Post not found")
	}
	if err != nil {
		return nil, false, fmt.Errorf("get post: %w", err)
	}
	if cacheOK {
		if err := utils.SetCache(ctx, s.rdb, postCacheKey(gen, id), p, postCacheTTL); err != nil {
			logrus.WithError(err).Warn("post cache write failed")
		}
	}
	return p, false, nil
}

// generation reads the cache generation before the database is queried.
// It reports false when the cache is disabled or unreadable.
func (s *PostService) generation(ctx context.Context) (int64, bool) {
	if s.rdb == nil {
		return 0, false
	}
	gen, err := s.rdb.Get(ctx, postsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		logrus.WithError(err).Warn("post cache generation read failed")
		return 0, false
	}
	return gen, true
}

// invalidate moves readers to a new generation and drops the entries of the previous one
func (s *PostService) invalidate(ctx context.Context, id uint) {
	if s.rdb == nil {
		return
	}
	gen, err := s.rdb.Incr(ctx, postsGenerationKey).Result()
	if err != nil {
		logrus.WithError(err).Warn("post cache invalidation failed")
		return
	}
	if err := utils.DeleteCache(ctx, s.rdb, postsCacheKey(gen-1), postCacheKey(gen-1, id)); err != nil {
		logrus.WithError(err).Warn("post cache cleanup failed")
	}
}

// discard removes files saved for a request that did not complete
func (s *PostService) discard(paths []string) {
	for _, p := range paths {
		if err := s.files.Remove(p); err != nil {
			metrics.ImageCleanupFailuresTotal.Inc()
			logrus.WithError(err).WithField("path", p).Warn("failed to remove orphaned upload")
		}
	}
}
