package httpx

import (
	"context"
	"net/http"
	"strconv"
)

type ctxKey int

const (
	userKey ctxKey = iota
	employeeKey
)

const (
	HeaderUser     = "X-User-Id"
	HeaderEmployee = "X-Employee-Id"
)

// RequireUser takes the customer id set by the upstream identity proxy.
func RequireUser(next http.Handler) http.Handler { return requireID(HeaderUser, userKey, next) }

func RequireEmployee(next http.Handler) http.Handler {
	return requireID(HeaderEmployee, employeeKey, next)
}

func requireID(header string, key ctxKey, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(header), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + header})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, id)))
	})
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userKey).(int64)
	return id
}

func employeeID(r *http.Request) int64 {
	id, _ := r.Context().Value(employeeKey).(int64)
	return id
}
