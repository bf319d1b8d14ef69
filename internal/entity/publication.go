package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRate = 0.0
	MaxRate = 5.0

	// FeaturedRate is the lowest rating that makes a publication featured.
	FeaturedRate = 4.5
)

// Publication carries Author and Avatar as they were when it was written;
// later profile changes do not rewrite them.
type Publication struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Author    string    `gorm:"size:50" json:"author"`
	Avatar    *string   `gorm:"type:text" json:"avatar,omitempty"`
	Ratings   []Rating  `gorm:"foreignKey:PublicationID;constraint:OnDelete:CASCADE" json:"ratings"`
	Comments  []Comment `gorm:"foreignKey:PublicationID;constraint:OnDelete:CASCADE" json:"comments"`
	WrittenAt time.Time `gorm:"not null;index" json:"written_at"`
}

func (p *Publication) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}

type Rating struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PublicationID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	UserID        uuid.UUID `gorm:"type:uuid;not null" json:"user"`
	Rate          float64   `gorm:"not null;default:0;check:chk_ratings_rate,rate >= 0 AND rate <= 5" json:"rate"`
}

func (r *Rating) TableName() string {
	return "publication_ratings"
}

func (r *Rating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

type Comment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PublicationID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	UserID        uuid.UUID `gorm:"type:uuid;not null" json:"user"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	Author        string    `gorm:"size:50" json:"author"`
	Avatar        *string   `gorm:"type:text" json:"avatar,omitempty"`
	CommentedAt   time.Time `gorm:"not null" json:"commented_at"`
}

func (c *Comment) TableName() string {
	return "publication_comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

// Models lists every table, in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Publication{},
		&Rating{},
		&Comment{},
	}
}
