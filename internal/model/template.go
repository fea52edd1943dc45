package model

import "time"

// TemplateSection is a reusable block of listing copy. At most one default
// per (owner, category); prior defaults are cleared when a new one is set.
type TemplateSection struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Name      string    `db:"name" json:"name"`
	Content   string    `db:"content" json:"content"`
	Category  string    `db:"category" json:"category"`
	IsDefault bool      `db:"is_default" json:"isDefault"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

const TemplateCategorySection = "section"

type CreateTemplateParams struct {
	UserID    string
	Name      string
	Content   string
	Category  string
	IsDefault bool
}

// UpdateTemplateParams carries a partial update; nil fields are left as
// they are.
type UpdateTemplateParams struct {
	Name      *string `json:"name"`
	Content   *string `json:"content"`
	Category  *string `json:"category"`
	IsDefault *bool   `json:"isDefault"`
}
