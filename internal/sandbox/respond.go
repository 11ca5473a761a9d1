package sandbox

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/expense-console/internal/middleware"
	"github.com/benvon/expense-console/internal/models"
	"go.uber.org/zap"
)

const defaultPageSize = 20

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed_to_encode_response", zap.Error(err), zap.Int("status_code", status))
	}
}

// respondError sends the backend's error body
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	middleware.RespondError(w, r, status, message, s.logger)
}

// respondFieldErrors answers 400 with one key per invalid field
func (s *Server) respondFieldErrors(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	body := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	body["status"] = http.StatusBadRequest
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	body["path"] = r.URL.Path
	s.respondJSON(w, http.StatusBadRequest, body)
}

// decodeJSON reads the request body into v, answering 400 on failure
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// paginate applies the page, size and sort query parameters. Sorting is by
// the key function when the sort field is known.
func paginate[T any](r *http.Request, rows []T, keys map[string]func(T) string) models.Page[T] {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = defaultPageSize
	}
	if page < 0 {
		page = 0
	}

	if sortParam := q.Get("sort"); sortParam != "" {
		field, dir, _ := strings.Cut(sortParam, ",")
		if key, ok := keys[field]; ok {
			desc := strings.EqualFold(dir, "desc")
			sort.SliceStable(rows, func(i, j int) bool {
				if desc {
					return key(rows[i]) > key(rows[j])
				}
				return key(rows[i]) < key(rows[j])
			})
		}
	}

	total := len(rows)
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return models.Page[T]{
		Content:       append([]T{}, rows[start:end]...),
		TotalElements: int64(total),
		TotalPages:    (total + size - 1) / size,
		Number:        page,
		Size:          size,
	}
}
