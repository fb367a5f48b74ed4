package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mxvalidator/internal/utils"
)

type AccessUser struct {
	ID                string     `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Name              string     `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Company           string     `gorm:"column:company;type:varchar(255);not null" json:"company"`
	Email             string     `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	IsVerified        bool       `gorm:"column:is_verified;type:boolean;not null;default:false" json:"isVerified"`
	VerificationToken string     `gorm:"column:verification_token;type:varchar(64);index" json:"-"`
	VerifiedAt        *time.Time `gorm:"column:verified_at;type:timestamp" json:"verifiedAt,omitempty"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamp;not null" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;type:timestamp;not null" json:"updatedAt"`
}

func (AccessUser) TableName() string {
	return "access_users"
}

func (m *AccessUser) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("acu", 16)
	}
	return nil
}
