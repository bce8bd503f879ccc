package permit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	permitDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/permit"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/events"
	"github.com/frahmantamala/work-permit/internal/observability/metrics"
	"github.com/frahmantamala/work-permit/internal/transport"
	"github.com/frahmantamala/work-permit/pkg/logger"
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *permitDatamodel.Permit) error
	GetByID(ctx context.Context, id string) (*permitDatamodel.Permit, error)
	ExistsByWPNumber(ctx context.Context, wpNumber string) (bool, error)
	List(ctx context.Context, filter permitDatamodel.Filter, limit, offset int) ([]*permitDatamodel.Permit, error)
	Count(ctx context.Context, filter permitDatamodel.Filter) (int64, error)
	// Update writes p only while the stored status still equals expectedStatus.
	Update(ctx context.Context, p *permitDatamodel.Permit, expectedStatus string) error
	Delete(ctx context.Context, id string) error
}

// UserDirectory is the part of the credential store permits touch.
type UserDirectory interface {
	GetByIDs(ctx context.Context, ids []string) ([]*userDatamodel.User, error)
	UpdateLastLocation(ctx context.Context, id string, loc userDatamodel.Location) error
}

type Service struct {
	repo           RepositoryAPI
	users          UserDirectory
	publisher      events.Publisher
	defaultAddress string
	logger         *slog.Logger
	now            func() time.Time
}

func NewService(repo RepositoryAPI, users UserDirectory, publisher events.Publisher, defaultAddress string, lg *slog.Logger) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	if defaultAddress == "" {
		defaultAddress = internal.DefaultAddressPlaceholder
	}
	return &Service{
		repo:           repo,
		users:          users,
		publisher:      publisher,
		defaultAddress: defaultAddress,
		logger:         lg,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, actor internal.Identity, dto CreatePermitDTO) (*Permit, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p := NewPermit(actor.ID, dto, s.defaultAddress, s.now())

	exists, err := s.repo.ExistsByWPNumber(ctx, p.WPNumber)
	if err != nil {
		s.logger.Error("CreatePermit: wp number lookup failed", "error", err)
		return nil, internal.NewInternalError("Server error", err)
	}
	if exists {
		return nil, internal.ErrDuplicateWPNumber
	}

	// the unique index settles concurrent submissions of the same number
	if err := s.repo.Create(ctx, ToDataModel(p)); err != nil {
		if errors.Is(err, permitDatamodel.ErrDuplicateWPNumber) {
			return nil, internal.ErrDuplicateWPNumber
		}
		s.logger.Error("CreatePermit: repository error", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("Server error", err)
	}

	loc := userDatamodel.Location{
		Latitude:  p.Location.Latitude,
		Longitude: p.Location.Longitude,
		Address:   p.Location.Address,
		UpdatedAt: p.CreatedAt,
	}
	if err := s.users.UpdateLastLocation(ctx, actor.ID, loc); err != nil {
		s.logger.Warn("CreatePermit: last location not refreshed", "error", err, "user_id", actor.ID)
	}

	metrics.PermitsSubmittedTotal.Inc()
	s.publish(ctx, events.NewPermitSubmittedEvent(p.ID, p.UserID, p.WPNumber))
	s.logger.Info("permit submitted", "permit_id", p.ID, "user_id", actor.ID, "wp_number", p.WPNumber)

	if err := s.attachSubmitters(ctx, []*Permit{p}); err != nil {
		s.logger.Warn("CreatePermit: submitter not attached", "error", err, "permit_id", p.ID)
	}
	return p, nil
}

// List returns one page of permits visible to actor and the total match count.
func (s *Service) List(ctx context.Context, actor internal.Identity, q ListQuery) ([]*Permit, int64, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}

	filter := permitDatamodel.Filter{Status: q.Status}
	if !actor.IsAdmin() {
		filter.UserID = actor.ID
	}

	if q.Limit <= 0 {
		q.Limit = transport.DefaultLimit
	}
	rows, err := s.repo.List(ctx, filter, q.Limit, transport.Offset(q.Page, q.Limit))
	if err != nil {
		s.logger.Error("ListPermits: repository error", "error", err)
		return nil, 0, internal.NewInternalError("Server error", err)
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("ListPermits: count error", "error", err)
		return nil, 0, internal.NewInternalError("Server error", err)
	}

	permits := FromDataModelSlice(rows)
	if err := s.attachSubmitters(ctx, permits); err != nil {
		s.logger.Error("ListPermits: submitter lookup failed", "error", err)
		return nil, 0, internal.NewInternalError("Server error", err)
	}
	return permits, total, nil
}

// Get hides other users' permits behind a not-found.
func (s *Service) Get(ctx context.Context, actor internal.Identity, id string) (*Permit, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !p.OwnedBy(actor.ID) {
		return nil, internal.ErrPermitNotFound
	}

	if err := s.attachSubmitters(ctx, []*Permit{p}); err != nil {
		s.logger.Error("GetPermit: submitter lookup failed", "error", err, "permit_id", id)
		return nil, internal.NewInternalError("Server error", err)
	}
	return p, nil
}

func (s *Service) UpdateStatus(ctx context.Context, actor internal.Identity, id string, dto UpdatePermitDTO) (*Permit, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminRequired
	}

	next, verr := dto.Decision()
	if verr != nil {
		return nil, verr
	}

	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := p.Status
	changed, err := p.Apply(Decision{
		Status:        next,
		AdminComments: dto.AdminComments,
		ActorID:       actor.ID,
		At:            s.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, ToDataModel(p), string(previous)); err != nil {
		switch {
		case errors.Is(err, permitDatamodel.ErrNotFound):
			return nil, internal.ErrPermitNotFound
		case errors.Is(err, permitDatamodel.ErrStaleStatus):
			return nil, internal.ErrPermitFinalized
		default:
			s.logger.Error("UpdatePermit: repository error", "error", err, "permit_id", id)
			return nil, internal.NewInternalError("Server error", err)
		}
	}

	if changed {
		metrics.PermitDecisionsTotal.WithLabelValues(string(p.Status)).Inc()
		s.publish(ctx, events.NewPermitStatusChangedEvent(p.ID, p.UserID, actor.ID, string(previous), string(p.Status)))
		s.logger.Info("permit status changed", "permit_id", p.ID, "from", previous, "to", p.Status, "admin_id", actor.ID)
	}

	if err := s.attachSubmitters(ctx, []*Permit{p}); err != nil {
		s.logger.Warn("UpdatePermit: submitter not attached", "error", err, "permit_id", id)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, actor internal.Identity, id string) error {
	if !actor.IsAdmin() {
		return internal.ErrAdminRequired
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, permitDatamodel.ErrNotFound) {
			return internal.ErrPermitNotFound
		}
		s.logger.Error("DeletePermit: repository error", "error", err, "permit_id", id)
		return internal.NewInternalError("Server error", err)
	}

	metrics.PermitsDeletedTotal.Inc()
	s.publish(ctx, events.NewPermitDeletedEvent(id, actor.ID))
	s.logger.Info("permit deleted", "permit_id", id, "admin_id", actor.ID)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*Permit, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, permitDatamodel.ErrNotFound) {
			return nil, internal.ErrPermitNotFound
		}
		s.logger.Error("permit lookup failed", "error", err, "permit_id", id)
		return nil, internal.NewInternalError("Server error", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) attachSubmitters(ctx context.Context, permits []*Permit) error {
	if len(permits) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(permits))
	ids := make([]string, 0, len(permits))
	for _, p := range permits {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	byID := make(map[string]*Submitter, len(users))
	for _, u := range users {
		byID[u.ID] = SubmitterFromDataModel(u)
	}
	for _, p := range permits {
		p.Submitter = byID[p.UserID]
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("event publish failed", "event_type", e.EventType(), "error", err)
	}
}
