package permit_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/frahmantamala/work-permit/internal"
	permitDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/permit"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/events"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/permit"
	"github.com/frahmantamala/work-permit/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockPermitRepo struct {
	rows        map[string]*permitDatamodel.Permit
	createErr   error
	existsErr   error
	updateCalls int
}

func newMockPermitRepo() *mockPermitRepo {
	return &mockPermitRepo{rows: map[string]*permitDatamodel.Permit{}}
}

func (m *mockPermitRepo) Create(_ context.Context, p *permitDatamodel.Permit) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockPermitRepo) GetByID(_ context.Context, id string) (*permitDatamodel.Permit, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, permitDatamodel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPermitRepo) ExistsByWPNumber(_ context.Context, wp string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, p := range m.rows {
		if p.WPNumber == wp {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPermitRepo) matching(filter permitDatamodel.Filter) []*permitDatamodel.Permit {
	out := []*permitDatamodel.Permit{}
	for _, p := range m.rows {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockPermitRepo) List(_ context.Context, filter permitDatamodel.Filter, limit, offset int) ([]*permitDatamodel.Permit, error) {
	all := m.matching(filter)
	if offset >= len(all) {
		return []*permitDatamodel.Permit{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockPermitRepo) Count(_ context.Context, filter permitDatamodel.Filter) (int64, error) {
	return int64(len(m.matching(filter))), nil
}

func (m *mockPermitRepo) Update(_ context.Context, p *permitDatamodel.Permit, expected string) error {
	m.updateCalls++
	current, ok := m.rows[p.ID]
	if !ok {
		return permitDatamodel.ErrNotFound
	}
	if current.Status != expected {
		return permitDatamodel.ErrStaleStatus
	}
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockPermitRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return permitDatamodel.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type mockDirectory struct {
	users     map[string]*userDatamodel.User
	locations map[string]userDatamodel.Location
}

func newMockDirectory(users ...*userDatamodel.User) *mockDirectory {
	d := &mockDirectory{users: map[string]*userDatamodel.User{}, locations: map[string]userDatamodel.Location{}}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *mockDirectory) GetByIDs(_ context.Context, ids []string) ([]*userDatamodel.User, error) {
	out := []*userDatamodel.User{}
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *mockDirectory) UpdateLastLocation(_ context.Context, id string, loc userDatamodel.Location) error {
	d.locations[id] = loc
	if u, ok := d.users[id]; ok {
		u.SetLocation(loc)
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func createDTO(wp string) permit.CreatePermitDTO {
	var dto permit.CreatePermitDTO
	body := `{"woNumber":"WO-1","wpNumber":"` + wp + `","name":"Jane","designation":"Engineer",
		"plant":"North","workNature":"Hot work","estimatedDays":"3",
		"location":{"latitude":-6.2,"longitude":106.8}}`
	Expect(json.Unmarshal([]byte(body), &dto)).To(Succeed())
	return dto
}

var _ = Describe("Permit Service", func() {
	var (
		repo      *mockPermitRepo
		directory *mockDirectory
		publisher *recordingPublisher
		service   *permit.Service
		ctx       context.Context
		alice     internal.Identity
		bob       internal.Identity
		admin     internal.Identity
	)

	BeforeEach(func() {
		ctx = context.Background()
		alice = internal.Identity{ID: "u-alice", Email: "alice@example.com", Role: role.User}
		bob = internal.Identity{ID: "u-bob", Email: "bob@example.com", Role: role.User}
		admin = internal.Identity{ID: "a-root", Email: "root@example.com", Role: role.Admin}

		repo = newMockPermitRepo()
		directory = newMockDirectory(
			&userDatamodel.User{ID: alice.ID, Name: "Alice", Email: alice.Email, Role: "user"},
			&userDatamodel.User{ID: bob.ID, Name: "Bob", Email: bob.Email, Role: "user", IsLocationSharingEnabled: true},
		)
		publisher = &recordingPublisher{}
		service = permit.NewService(repo, directory, publisher, "Unknown location", logger.Discard())
	})

	Describe("Create", func() {
		It("stores a pending permit and refreshes the submitter's last location", func() {
			p, err := service.Create(ctx, alice, createDTO("1234"))

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(permit.StatusPending))
			Expect(p.EstimatedDays).To(Equal(3))
			Expect(p.Location.Address).To(Equal("Unknown location"))
			Expect(p.UserID).To(Equal(alice.ID))
			Expect(p.Submitter).NotTo(BeNil())
			Expect(p.Submitter.LastLocation).NotTo(BeNil())

			Expect(directory.locations).To(HaveKey(alice.ID))
			Expect(directory.locations[alice.ID].Latitude).To(Equal(-6.2))
			Expect(publisher.types()).To(ConsistOf(events.EventTypePermitSubmitted))
		})

		It("rejects a wp number that already exists, whoever submits it", func() {
			_, err := service.Create(ctx, alice, createDTO("1234"))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, bob, createDTO("1234"))
			Expect(errors.Is(err, internal.ErrDuplicateWPNumber)).To(BeTrue())
		})

		It("maps a unique index violation to the same conflict", func() {
			repo.createErr = permitDatamodel.ErrDuplicateWPNumber
			_, err := service.Create(ctx, alice, createDTO("1234"))
			Expect(errors.Is(err, internal.ErrDuplicateWPNumber)).To(BeTrue())
			Expect(publisher.types()).To(BeEmpty())
		})

		It("requires every field", func() {
			dto := createDTO("1234")
			dto.Plant = " "
			dto.Location = nil

			_, err := service.Create(ctx, alice, dto)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))

			details := appErr.Details.(internal.ValidationErrors)
			fields := []string{}
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
			}
			Expect(fields).To(ConsistOf("plant", "location"))
		})

		It("rejects zero estimated days", func() {
			dto := createDTO("1234")
			zero := permit.EstimatedDays(0)
			dto.EstimatedDays = &zero

			_, err := service.Create(ctx, alice, dto)
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.GetDetailedMessage()).To(ContainSubstring("estimatedDays must be at least 1"))
		})

		It("rejects out of range coordinates", func() {
			dto := createDTO("1234")
			lat := 91.0
			dto.Location.Latitude = &lat

			_, err := service.Create(ctx, alice, dto)
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Details.(internal.ValidationErrors).Errors[0].Code).To(Equal(string(internal.ErrCodeInvalidLocation)))
		})

		It("surfaces lookup failures as internal errors", func() {
			repo.existsErr = errors.New("db down")
			_, err := service.Create(ctx, alice, createDTO("1234"))
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for _, wp := range []string{"A-1", "A-2"} {
				_, err := service.Create(ctx, alice, createDTO(wp))
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := service.Create(ctx, bob, createDTO("B-1"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("never shows a user someone else's permits", func() {
			permits, total, err := service.List(ctx, alice, permit.ListQuery{Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
			for _, p := range permits {
				Expect(p.UserID).To(Equal(alice.ID))
			}
		})

		It("shows admins everything with submitters attached", func() {
			permits, total, err := service.List(ctx, admin, permit.ListQuery{Page: 1, Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(3)))
			Expect(permits).To(HaveLen(2))
			for _, p := range permits {
				Expect(p.Submitter).NotTo(BeNil())
				Expect(p.Submitter.ID).To(Equal(p.UserID))
			}
		})

		It("rejects an unknown status filter", func() {
			_, _, err := service.List(ctx, admin, permit.ListQuery{Page: 1, Limit: 10, Status: "archived"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get", func() {
		It("hides another user's permit", func() {
			p, err := service.Create(ctx, alice, createDTO("1234"))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Get(ctx, bob, p.ID)
			Expect(errors.Is(err, internal.ErrPermitNotFound)).To(BeTrue())

			got, err := service.Get(ctx, admin, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Submitter.Name).To(Equal("Alice"))
		})
	})

	Describe("UpdateStatus", func() {
		var created *permit.Permit
		str := func(s string) *string { return &s }

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, alice, createDTO("1234"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("stamps approver and time on approval", func() {
			p, err := service.UpdateStatus(ctx, admin, created.ID, permit.UpdatePermitDTO{Status: str("approved"), AdminComments: str("ok")})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(permit.StatusApproved))
			Expect(p.ApprovedBy).To(HaveValue(Equal(admin.ID)))
			Expect(p.ApprovedAt).NotTo(BeNil())
			Expect(p.AdminComments).To(HaveValue(Equal("ok")))
			Expect(publisher.types()).To(ContainElement(events.EventTypePermitStatusChanged))
		})

		It("never stamps on rejection", func() {
			p, err := service.UpdateStatus(ctx, admin, created.ID, permit.UpdatePermitDTO{Status: str("rejected")})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(permit.StatusRejected))
			Expect(p.ApprovedBy).To(BeNil())
			Expect(p.ApprovedAt).To(BeNil())
		})

		It("does not re-stamp a repeated approval", func() {
			first, err := service.UpdateStatus(ctx, admin, created.ID, permit.UpdatePermitDTO{Status: str("approved")})
			Expect(err).NotTo(HaveOccurred())

			other := internal.Identity{ID: "a-other", Role: role.Admin}
			second, err := service.UpdateStatus(ctx, other, created.ID, permit.UpdatePermitDTO{Status: str("approved"), AdminComments: str("again")})
			Expect(err).NotTo(HaveOccurred())
			Expect(*second.ApprovedBy).To(Equal(admin.ID))
			Expect(second.ApprovedAt.Equal(*first.ApprovedAt)).To(BeTrue())
			Expect(*second.AdminComments).To(Equal("again"))

			changes := 0
			for _, t := range publisher.types() {
				if t == events.EventTypePermitStatusChanged {
					changes++
				}
			}
			Expect(changes).To(Equal(1))
		})

		It("refuses to move a finalized permit", func() {
			_, err := service.UpdateStatus(ctx, admin, created.ID, permit.UpdatePermitDTO{Status: str("rejected")})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.UpdateStatus(ctx, admin, created.ID, permit.UpdatePermitDTO{Status: str("approved")})
			Expect(errors.Is(err, internal.ErrPermitFinalized)).To(BeTrue())
		})

		It("accepts a comment-only update", func() {
			p, err := service.UpdateStatus(ctx, admin, created.ID, permit.UpdatePermitDTO{AdminComments: str("need photos")})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(permit.StatusPending))
			Expect(*p.AdminComments).To(Equal("need photos"))
		})

		It("rejects pending or unknown target statuses", func() {
			_, err := service.UpdateStatus(ctx, admin, created.ID, permit.UpdatePermitDTO{Status: str("pending")})
			Expect(errors.Is(err, internal.ErrInvalidPermitStatus)).To(BeTrue())

			_, err = service.UpdateStatus(ctx, admin, created.ID, permit.UpdatePermitDTO{})
			Expect(err).To(HaveOccurred())
		})

		It("is forbidden for users", func() {
			_, err := service.UpdateStatus(ctx, alice, created.ID, permit.UpdatePermitDTO{Status: str("approved")})
			Expect(errors.Is(err, internal.ErrAdminRequired)).To(BeTrue())
			Expect(repo.updateCalls).To(BeZero())
		})

		It("returns not found for unknown ids", func() {
			_, err := service.UpdateStatus(ctx, admin, "missing", permit.UpdatePermitDTO{Status: str("approved")})
			Expect(errors.Is(err, internal.ErrPermitNotFound)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("removes the permit and publishes", func() {
			p, err := service.Create(ctx, alice, createDTO("1234"))
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, admin, p.ID)).To(Succeed())
			Expect(repo.rows).To(BeEmpty())
			Expect(publisher.types()).To(ContainElement(events.EventTypePermitDeleted))
		})

		It("returns not found for unknown ids", func() {
			err := service.Delete(ctx, admin, "missing")
			Expect(errors.Is(err, internal.ErrPermitNotFound)).To(BeTrue())
		})

		It("is forbidden for users", func() {
			err := service.Delete(ctx, bob, "anything")
			Expect(errors.Is(err, internal.ErrAdminRequired)).To(BeTrue())
		})
	})
})
