package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/service/auth"
)

type contextKey string

const (
	ctxCustomerID contextKey = "customer_id"
	ctxUsername   contextKey = "username"
	ctxIsAdmin    contextKey = "is_admin"
)

// authMiddleware проверяет Bearer-токен и кладёт личность покупателя
// в контекст запроса.
func authMiddleware(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
				return
			}

			claims, err := authSvc.ParseToken(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
				return
			}
			customerID, err := claims.CustomerID()
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token subject"})
				return
			}

			ctx := context.WithValue(r.Context(), ctxCustomerID, customerID)
			ctx = context.WithValue(ctx, ctxUsername, claims.Username)
			ctx = context.WithValue(ctx, ctxIsAdmin, claims.Admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin пропускает только администратора.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdmin(r.Context()) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: domain.ErrPermissionDenied.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func customerID(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxCustomerID).(int64)
	return id
}

func isAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(ctxIsAdmin).(bool)
	return admin
}
