package credentials

import (
	"time"
)

// TokenModel represents the database row for one connected account's OAuth
// credentials
type TokenModel struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	Subdomain    string `json:"subdomain" gorm:"column:subdomain;unique;not null;size:255"`
	AccessToken  string `json:"access_token" gorm:"column:access_token;type:text"`
	RefreshToken string `json:"refresh_token" gorm:"column:refresh_token;type:text"`
	ExpiresAt    int64  `json:"expires_at" gorm:"column:expires_at"`
	BaseURL      string `json:"base_url" gorm:"column:base_url;size:500"`
}

// TableName sets the table name for GORM
func (TokenModel) TableName() string {
	return "amocrm_tokens"
}
