package domain

import "time"

// Setting is a durable key/value row shared by every process using the store.
type Setting struct {
	Key       string    `gorm:"column:key;type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"column:value;type:varchar(255);not null" json:"value"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Setting) TableName() string {
	return "Settings"
}
