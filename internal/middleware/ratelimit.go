package middleware

import (
	"fmt"
	"net/http"

	"github.com/benvon/expense-console/internal/request"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
)

// DefaultRate is the inbound limit per client IP
const DefaultRate = "20-S"

// RateLimit limits requests per client IP. A nil store keeps counters in
// memory.
func RateLimit(store limiter.Store, formatted string) (func(http.Handler) http.Handler, error) {
	if formatted == "" {
		formatted = DefaultRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}
	if store == nil {
		store = memorystore.NewStore()
	}
	instance := limiter.New(store, rate)
	keyGetter := func(r *http.Request) string {
		return request.ClientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(keyGetter))
	return mw.Handler, nil
}
