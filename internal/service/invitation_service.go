package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type invitationUserStore interface {
	Promote(ctx context.Context, userID string, role models.UserRole, studioID *string) error
}

type studioSummaryReader interface {
	Summary(ctx context.Context, id string) (*models.StudioSummary, error)
}

// InviteConfig configures invitation token signing.
type InviteConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
	Audience   string
}

// CreateInvitationRequest describes an invitation issue request.
type CreateInvitationRequest struct {
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN INSTRUCTOR"`
	StudioID *string         `json:"studio_id,omitempty"`
}

// InvitationService issues and redeems signed invitation tokens. Tokens
// are stateless capabilities carrying {role, studio, issuer} claims; there
// is no blacklist, so a token cannot be revoked before it expires.
type InvitationService struct {
	users     invitationUserStore
	studios   studioSummaryReader
	validator *validator.Validate
	logger    *zap.Logger
	config    InviteConfig
}

// NewInvitationService constructs InvitationService.
func NewInvitationService(users invitationUserStore, studios studioSummaryReader, validate *validator.Validate, logger *zap.Logger, config InviteConfig) *InvitationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Issuer == "" {
		config.Issuer = "classly-api"
	}
	if config.Audience == "" {
		config.Audience = "classly-users"
	}
	if config.Expiration <= 0 {
		config.Expiration = 72 * time.Hour
	}
	return &InvitationService{users: users, studios: studios, validator: validate, logger: logger, config: config}
}

// Create issues a signed invitation token. Studio scoping applies to
// INSTRUCTOR invites only; admin invites are platform-wide.
func (s *InvitationService) Create(ctx context.Context, creatorID string, req CreateInvitationRequest) (*models.Invitation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invitation payload")
	}

	var studioID *string
	if req.Role == models.RoleInstructor {
		studioID = req.StudioID
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.config.Expiration)
	claims := &models.InvitationClaims{
		Role:      req.Role,
		StudioID:  studioID,
		CreatorID: creatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Audience:  jwt.ClaimStrings{s.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign invitation")
	}

	s.logger.Info("invitation created",
		zap.String("creator_id", creatorID), zap.String("role", string(req.Role)))

	return &models.Invitation{
		Token:     token,
		Role:      req.Role,
		StudioID:  studioID,
		CreatorID: creatorID,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate verifies an invitation token and returns its claims plus a
// studio summary for instructor invites.
func (s *InvitationService) Validate(ctx context.Context, token string) (*models.InvitationValidation, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	validation := &models.InvitationValidation{
		Valid:    true,
		Role:     claims.Role,
		StudioID: claims.StudioID,
	}
	if claims.StudioID != nil && claims.Role == models.RoleInstructor {
		summary, err := s.studios.Summary(ctx, *claims.StudioID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load studio")
		}
		validation.Studio = summary
	}
	return validation, nil
}

// Accept redeems an invitation, promoting the user to the invited role and
// assigning the studio when the invite carries one.
func (s *InvitationService) Accept(ctx context.Context, token, userID string) (*models.InvitationValidation, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	if err := s.users.Promote(ctx, userID, claims.Role, claims.StudioID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote user")
	}

	s.logger.Info("invitation accepted",
		zap.String("user_id", userID), zap.String("role", string(claims.Role)))

	return &models.InvitationValidation{Valid: true, Role: claims.Role, StudioID: claims.StudioID}, nil
}

func (s *InvitationService) parse(token string) (*models.InvitationClaims, error) {
	claims := &models.InvitationClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithAudience(s.config.Audience))
	if err != nil || !parsed.Valid {
		s.logger.Warn("invalid invitation token", zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrInvalidInvitation, "")
	}
	return claims, nil
}
