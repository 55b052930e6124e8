package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const clientKey contextKey = "client"

func setClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, clientKey, client)
}

// GetClient returns the identity Authenticate assigned to the request.
func GetClient(r *http.Request) (string, bool) {
	client, ok := r.Context().Value(clientKey).(string)
	return client, ok
}

// ExportedClientKey returns the context key for the client identity (for testing).
func ExportedClientKey() contextKey {
	return clientKey
}
