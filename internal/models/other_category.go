package models

// OtherCategory labels OTHER transactions.
type OtherCategory struct {
	Base
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}
