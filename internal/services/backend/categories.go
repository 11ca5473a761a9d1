package backend

import (
	"context"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/logger"
	"github.com/benvon/expense-console/internal/models"
	"go.uber.org/zap"
)

// CategoryService is the /expense-categories resource
type CategoryService struct {
	*Resource[models.Category]
	logger *zap.Logger
}

// NewCategoryService creates the categories client
func NewCategoryService(client *apiclient.Client, log *zap.Logger) *CategoryService {
	return &CategoryService{
		Resource: NewResource[models.Category](client, "/expense-categories"),
		logger:   log,
	}
}

// ListOrDefault returns the backend categories, or the built-in defaults when
// the backend has none or the call fails. The second result reports whether
// the defaults were used.
func (s *CategoryService) ListOrDefault(ctx context.Context, pageable *models.Pageable) ([]models.Category, bool) {
	page, err := s.List(ctx, pageable)
	if err != nil {
		s.logger.Warn("category_fetch_failed_using_defaults", zap.String("error", logger.SanitizeError(err)))
		return models.DefaultCategories(), true
	}
	if items := page.Items(); len(items) > 0 {
		return items, false
	}
	s.logger.Info("no_categories_from_api_using_defaults")
	return models.DefaultCategories(), true
}
