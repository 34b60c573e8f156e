package models

// Icon is a reusable image in the shared library, grouped by category.
// Filename is the stored file name only, never a path.
type Icon struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"uniqueIndex;size:120;not null"`
	Category string `json:"category" gorm:"size:120;not null;index:ix_icon_category_name;uniqueIndex:uq_icon_category_filename"`
	Filename string `json:"filename" gorm:"size:255;not null;uniqueIndex:uq_icon_category_filename"`
}
