package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Pageable carries the {page, size, sort} paging convention of the backend
type Pageable struct {
	Page int
	Size int
	Sort string
}

// Values encodes the paging parameters as query values
func (p *Pageable) Values() url.Values {
	values := url.Values{}
	if p == nil {
		return values
	}
	values.Set("page", strconv.Itoa(p.Page))
	if p.Size > 0 {
		values.Set("size", strconv.Itoa(p.Size))
	}
	if p.Sort != "" {
		values.Set("sort", p.Sort)
	}
	return values
}

// Page is a paginated list response. The backend normally answers
// {content, totalElements, ...}; some endpoints return a bare array, which
// decodes into Content with the totals left at zero.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// rawPage has Page's fields without its UnmarshalJSON method
type rawPage[T any] Page[T]

// UnmarshalJSON accepts both the paginated object and a bare array
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = Page[T]{}
		return nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("failed to decode list response: %w", err)
		}
		*p = Page[T]{Content: items}
		return nil
	}

	var decoded rawPage[T]
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return fmt.Errorf("failed to decode page response: %w", err)
	}
	*p = Page[T](decoded)
	return nil
}

// Items returns the page content, never nil
func (p *Page[T]) Items() []T {
	if p == nil || p.Content == nil {
		return []T{}
	}
	return p.Content
}
