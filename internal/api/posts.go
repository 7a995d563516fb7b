package api

import (
	"encoding/json"               // Sections field decoding
	"net/http"                    // HTTP status codes
	"securegate/internal/service" // Inputs
	"sort"                        // Deterministic file order
	"strconv"                     // Boolean form fields
	"strings"                     // Field name matching

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListPostsHandler returns every post with its sections and images
func ListPostsHandler(posts PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, cached, err := posts.ListPosts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "posts": list, "cached": cached})
	}
}

// GetPostHandler returns one post with its sections and images
func GetPostHandler(posts PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c) // Post id
		if !ok {
			return
		}
		post, cached, err := posts.GetPost(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "post": post, "cached": cached})
	}
}

// collectUploads lists the files under `images` followed by those under `images[<tempId>]` keys in key order
func collectUploads(c *gin.Context) ([]service.FileUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	var keys []string
	for key := range form.File {
		if strings.HasPrefix(key, service.ImagesField+"[") {
			keys = append(keys, key) // Explicit per-section field
		}
	}
	sort.Strings(keys)
	keys = append([]string{service.ImagesField}, keys...) // Legacy field first

	var files []service.FileUpload
	for _, key := range keys {
		for _, fh := range form.File[key] {
			files = append(files, service.FileUpload{Field: key, Header: fh})
		}
	}
	return files, nil
}

// CreatePostHandler creates a post from a multipart form: slug, published, sections (JSON) and image files
func CreatePostHandler(posts PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		files, err := collectUploads(c) // Uploaded files in a stable order
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		in := service.CreatePostInput{Slug: c.PostForm("slug")}
		if v := c.PostForm("published"); v != "" {
			published, err := strconv.ParseBool(v)
			if err != nil {
				fail(c, http.StatusBadRequest, "published must be true or false")
				return
			}
			in.Published = published
		}
		if raw := c.PostForm("sections"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in.Sections); err != nil {
				fail(c, http.StatusBadRequest, "sections must be a JSON array")
				return
			}
		}
		post, err := posts.CreatePost(c.Request.Context(), in, files)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Post created successfully", "post": post})
	}
}

// UpdatePostHandler updates slug/published and replaces sections when a non-empty list is sent
func UpdatePostHandler(posts PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c) // Post id
		if !ok {
			return
		}
		var req service.UpdatePostInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		post, err := posts.UpdatePost(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post updated successfully", "post": post})
	}
}

// DeletePostHandler removes a post with its sections and images
func DeletePostHandler(posts PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c) // Post id
		if !ok {
			return
		}
		if err := posts.DeletePost(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post deleted successfully"})
	}
}
