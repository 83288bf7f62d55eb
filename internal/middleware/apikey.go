package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
)

const APIKeyContextKey contextKey = "apiKey"

func GetAPIKey(ctx context.Context) *model.APIKey {
	if key, ok := ctx.Value(APIKeyContextKey).(*model.APIKey); ok {
		return key
	}
	return nil
}

// KeyAuthenticator resolves a raw API key to its record. Satisfied by
// service.APIKeyService.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*model.APIKey, error)
}

// APIKeyMiddleware guards the public v1 routes. Keys travel in the
// X-API-Key header; the Authorization header is left to session auth.
type APIKeyMiddleware struct {
	keys KeyAuthenticator
}

func NewAPIKeyMiddleware(keys KeyAuthenticator) *APIKeyMiddleware {
	return &APIKeyMiddleware{keys: keys}
}

func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := m.keys.Authenticate(r.Context(), r.Header.Get("X-API-Key"))
		if err != nil {
			if apperrors.GetCode(err) == apperrors.ErrCodeDatabase {
				log.Error().Err(err).Msg("api key middleware: lookup failed")
			} else {
				log.Warn().Msg("api key middleware: rejected key")
			}
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), APIKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
