package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/telenexus/gateway-server-go/internal/errors"
	"github.com/telenexus/gateway-server-go/internal/model"
	"github.com/telenexus/gateway-server-go/internal/repository"
	"github.com/telenexus/gateway-server-go/internal/util"
)

const maxActiveKeysPerUser = 10

// APIKeyService issues and authenticates programmatic credentials. The raw
// secret is returned exactly once, at creation; only its hash is stored.
type APIKeyService struct {
	repo repository.APIKeyRepository
}

func NewAPIKeyService(repo repository.APIKeyRepository) *APIKeyService {
	return &APIKeyService{repo: repo}
}

type CreateAPIKeyInput struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// CreatedAPIKey pairs the stored key with the one-time raw secret.
type CreatedAPIKey struct {
	Key    *model.APIKey
	Secret string
}

func (s *APIKeyService) Create(ctx context.Context, userID string, input CreateAPIKeyInput) (*CreatedAPIKey, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}

	scopes := input.Permissions
	if len(scopes) == 0 {
		scopes = []string{model.ScopeSendMessage}
	}
	for _, scope := range scopes {
		if !util.IsValidEnum(scope, model.KnownScopes) {
			return nil, apperrors.Validation("permissions", "unknown permission "+scope)
		}
	}

	count, err := s.repo.CountActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if count >= maxActiveKeysPerUser {
		return nil, apperrors.Validation("api_keys", "active key limit reached")
	}

	secret, err := util.GenerateAPIKey()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate API key").WithCause(err)
	}

	key, err := s.repo.Create(ctx, model.CreateAPIKeyParams{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   util.HashToken(secret),
		KeyMasked: util.MaskKey(secret),
		Scopes:    scopes,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("keyId", key.ID).Str("userId", userID).Msg("api key created")
	return &CreatedAPIKey{Key: key, Secret: secret}, nil
}

func (s *APIKeyService) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	keys, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	return keys, nil
}

// Revoke deactivates a key. There is no way back: a revoked key never
// authenticates again.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID string) error {
	revoked, err := s.repo.Revoke(ctx, keyID, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !revoked {
		return apperrors.NotFound("API key")
	}
	log.Info().Str("keyId", keyID).Msg("api key revoked")
	return nil
}

// Authenticate resolves a raw key to its record. Unknown keys are
// unauthorized; revoked keys are forbidden, so the caller can tell the two
// apart. Successful lookups bump last_used best-effort.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*model.APIKey, error) {
	if rawKey == "" {
		return nil, apperrors.Unauthorized("API key required")
	}

	key, err := s.repo.FindByKeyHash(ctx, util.HashToken(rawKey))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if key == nil {
		return nil, apperrors.Unauthorized("Invalid API key")
	}
	if !key.IsActive {
		return nil, apperrors.Forbidden("API key has been revoked")
	}

	if err := s.repo.TouchLastUsed(ctx, key.ID); err != nil {
		log.Error().Err(err).Str("keyId", key.ID).Msg("failed to update api key last_used")
	}
	return key, nil
}
