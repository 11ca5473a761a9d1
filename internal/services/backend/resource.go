// Package backend holds one client per expense API resource. Each is a thin
// method-per-endpoint wrapper; payloads pass through unmodified and errors are
// the adapter's.
package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/models"
)

// Resource implements the CRUD endpoints shared by every entity:
//
//	GET    <path>          list with {page,size,sort}
//	GET    <path>/{id}     get
//	POST   <path>/post     create
//	PUT    <path>/{id}     update
//	DELETE <path>/{id}     delete
type Resource[T any] struct {
	client *apiclient.Client
	path   string
}

// NewResource creates a resource client rooted at path
func NewResource[T any](client *apiclient.Client, path string) *Resource[T] {
	return &Resource[T]{client: client, path: path}
}

// Path returns the resource root
func (r *Resource[T]) Path() string { return r.path }

// List fetches one page. A nil pageable sends no paging parameters.
func (r *Resource[T]) List(ctx context.Context, pageable *models.Pageable) (*models.Page[T], error) {
	return r.listAt(ctx, r.path, pageable)
}

func (r *Resource[T]) listAt(ctx context.Context, path string, pageable *models.Pageable) (*models.Page[T], error) {
	page := &models.Page[T]{}
	if err := r.client.Do(ctx, http.MethodGet, path, pageable.Values(), nil, page); err != nil {
		return nil, err
	}
	return page, nil
}

// Get fetches one record
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	out := new(T)
	if err := r.client.Do(ctx, http.MethodGet, r.itemPath(id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts body to <path>/post and returns the stored record
func (r *Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	out := new(T)
	if err := r.client.Do(ctx, http.MethodPost, r.path+"/post", nil, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces a record
func (r *Resource[T]) Update(ctx context.Context, id int64, body any) (*T, error) {
	out := new(T)
	if err := r.client.Do(ctx, http.MethodPut, r.itemPath(id), nil, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil)
}

func (r *Resource[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", r.path, id)
}
