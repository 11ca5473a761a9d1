package models

import "strconv"

// Category is an expense category
type Category struct {
	ID           int64  `json:"id,omitempty"`
	CategoryName string `json:"categoryName" validate:"required,max=100"`
	Description  string `json:"description,omitempty"`
}

// DefaultCategories is used when the backend has no categories or cannot be
// reached.
// TODO: confirm with product whether this offline list should ship or be
// replaced by an empty-state message.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, CategoryName: "Travel"},
		{ID: 2, CategoryName: "Meals"},
		{ID: 3, CategoryName: "Office Supplies"},
		{ID: 4, CategoryName: "Training"},
		{ID: 5, CategoryName: "Entertainment"},
	}
}

// CategoryName looks up a category name by id, falling back to "Category <id>"
func CategoryName(categories []Category, id int64) string {
	for _, c := range categories {
		if c.ID == id {
			return c.CategoryName
		}
	}
	return "Category " + strconv.FormatInt(id, 10)
}
