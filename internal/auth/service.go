package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/work-permit/internal"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/observability/metrics"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/frahmantamala/work-permit/pkg/logger"
)

// RepositoryAPI is the slice of the credential store the auth flows need.
type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	hasher         PasswordHasher
	logger         *slog.Logger
}

func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, hasher PasswordHasher, lg *slog.Logger) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		hasher:         hasher,
		logger:         lg,
	}
}

// Register creates a regular user and signs them in.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	email := user.NormalizeEmail(dto.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return AuthTokens{}, internal.ErrEmailTaken
	} else if !errors.Is(err, userDatamodel.ErrNotFound) {
		s.logger.Error("Register: lookup failed", "error", err)
		return AuthTokens{}, internal.NewInternalError("Server error", err)
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("Server error", err)
	}

	u := user.NewUser(dto.Name, email, hash, role.User)
	if err := s.repo.Create(ctx, user.ToDataModel(u)); err != nil {
		if errors.Is(err, userDatamodel.ErrDuplicateEmail) {
			return AuthTokens{}, internal.ErrEmailTaken
		}
		s.logger.Error("Register: create failed", "error", err)
		return AuthTokens{}, internal.NewInternalError("Server error", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return s.issue(u)
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	dm, err := s.repo.GetByEmail(ctx, user.NormalizeEmail(dto.Email))
	if err != nil {
		if errors.Is(err, userDatamodel.ErrNotFound) {
			metrics.AuthAttemptsTotal.WithLabelValues("rejected").Inc()
			return AuthTokens{}, internal.ErrInvalidCredentials
		}
		s.logger.Error("Authenticate: lookup failed", "error", err)
		return AuthTokens{}, internal.NewInternalError("Server error", err)
	}

	if err := s.hasher.Compare(dm.PasswordHash, dto.Password); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("rejected").Inc()
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	u := user.FromDataModel(dm)
	if !u.Role.Valid() {
		s.logger.Warn("Authenticate: stored role is not recognised", "user_id", u.ID, "role", dm.Role)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return s.issue(u)
}

// RefreshTokens reloads the account so a changed role or deleted user is picked up.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	dm, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, userDatamodel.ErrNotFound) {
			return AuthTokens{}, internal.ErrInvalidToken
		}
		return AuthTokens{}, internal.NewInternalError("Server error", err)
	}

	u := user.FromDataModel(dm)
	if !u.Role.Valid() {
		return AuthTokens{}, internal.ErrInvalidToken
	}
	return s.issue(u)
}

// ValidateAccessToken validates access token and returns the caller identity.
func (s *Service) ValidateAccessToken(tokenString string) (internal.Identity, error) {
	claims, err := s.tokenGenerator.ValidateAccessToken(tokenString)
	if err != nil {
		return internal.Identity{}, err
	}
	r, err := role.Parse(claims.Role)
	if err != nil {
		return internal.Identity{}, internal.ErrInvalidToken.WithCause(err)
	}
	return internal.Identity{ID: claims.UserID, Email: claims.Email, Role: r}, nil
}

func (s *Service) issue(u *user.User) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(u.ID, u.Email, u.Role.String())
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("Server error", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u.ID, u.Email, u.Role.String())
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("Server error", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenGenerator.AccessTTL().Seconds()),
		User:         u,
	}, nil
}
