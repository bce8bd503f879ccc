package location

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/observability/metrics"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/frahmantamala/work-permit/pkg/logger"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	SetLocationSharing(ctx context.Context, id string, enabled bool) error
	UpdateLastLocation(ctx context.Context, id string, loc userDatamodel.Location) error
}

type Service struct {
	repo           RepositoryAPI
	defaultAddress string
	logger         *slog.Logger
	now            func() time.Time
}

func NewService(repo RepositoryAPI, defaultAddress string, lg *slog.Logger) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	if defaultAddress == "" {
		defaultAddress = internal.DefaultAddressPlaceholder
	}
	return &Service{
		repo:           repo,
		defaultAddress: defaultAddress,
		logger:         lg,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ToggleSharing returns the resulting flag.
func (s *Service) ToggleSharing(ctx context.Context, actor internal.Identity, dto ToggleDTO) (bool, error) {
	var enabled bool
	if dto.Enabled != nil {
		enabled = *dto.Enabled
	} else {
		current, err := s.repo.GetByID(ctx, actor.ID)
		if err != nil {
			return false, s.mapError("ToggleSharing", actor.ID, err)
		}
		enabled = !current.IsLocationSharingEnabled
	}

	if err := s.repo.SetLocationSharing(ctx, actor.ID, enabled); err != nil {
		return false, s.mapError("ToggleSharing", actor.ID, err)
	}

	s.logger.Info("location sharing changed", "user_id", actor.ID, "enabled", enabled)
	return enabled, nil
}

func (s *Service) UpdateLocation(ctx context.Context, actor internal.Identity, dto UpdateLocationDTO) (*user.Location, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	address := strings.TrimSpace(dto.Address)
	if address == "" {
		address = s.defaultAddress
	}
	loc := userDatamodel.Location{
		Latitude:  *dto.Latitude,
		Longitude: *dto.Longitude,
		Address:   address,
		UpdatedAt: s.now(),
	}

	if err := s.repo.UpdateLastLocation(ctx, actor.ID, loc); err != nil {
		return nil, s.mapError("UpdateLocation", actor.ID, err)
	}

	metrics.LocationUpdatesTotal.Inc()
	return &user.Location{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Address:   loc.Address,
		UpdatedAt: loc.UpdatedAt,
	}, nil
}

func (s *Service) mapError(op, userID string, err error) error {
	if errors.Is(err, userDatamodel.ErrNotFound) {
		return internal.ErrUserNotFound
	}
	s.logger.Error(op+": repository error", "error", err, "user_id", userID)
	return internal.NewInternalError("Server error", err)
}
