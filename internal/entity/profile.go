package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Profile struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	Owner     *UserSummary `gorm:"-" json:"user,omitempty"`
	FirstName string       `gorm:"size:100;not null" json:"first_name"`
	MidName   *string      `gorm:"size:100" json:"mid_name,omitempty"`
	LastName  string       `gorm:"size:100;not null" json:"last_name"`
	Country   *string      `gorm:"size:100" json:"country,omitempty"`
	City      *string      `gorm:"size:100" json:"city,omitempty"`
	School    string       `gorm:"size:200;not null" json:"school"`
	Hobbies   []string     `gorm:"serializer:json;type:text;not null" json:"hobbies"`
	Skills    []string     `gorm:"serializer:json;type:text;not null" json:"skills"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
