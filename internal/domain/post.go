package domain

import "time"

// Post Model. A post owns its sections, which own their images.
type Post struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Slug      string        `gorm:"size:191;index" json:"slug"`
	Published bool          `gorm:"not null;default:false" json:"published"`
	Sections  []PostSection `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"PostSections"`
	CreatedAt time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// PostSection Model. SectionOrder is 1-based and dense per post.
type PostSection struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	PostID       uint        `gorm:"not null;index" json:"postId"`
	Title        string      `gorm:"size:255" json:"title"`
	Body         string      `gorm:"type:text" json:"body"`
	SectionOrder int         `gorm:"not null" json:"section_order"`
	Images       []PostImage `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"PostImages"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// PostImage Model. ImageOrder is 1-based and dense per section.
type PostImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SectionID  uint      `gorm:"not null;index" json:"sectionId"`
	ImageURL   string    `gorm:"size:255;not null" json:"image_url"`
	ImageOrder int       `gorm:"not null" json:"image_order"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
