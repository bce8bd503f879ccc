package location_test

import (
	"context"
	"errors"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/location"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/frahmantamala/work-permit/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func ptr[T any](v T) *T { return &v }

var _ = Describe("Location Service", func() {
	var (
		repo    user.RepositoryAPI
		service *location.Service
		ctx     context.Context
		caller  internal.Identity
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = openRepo()
		service = location.NewService(repo, "", logger.Discard())
		caller = seedUser(repo, "field")
	})

	Describe("ToggleSharing", func() {
		It("flips the flag when enabled is omitted", func() {
			on, err := service.ToggleSharing(ctx, caller, location.ToggleDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(on).To(BeTrue())

			off, err := service.ToggleSharing(ctx, caller, location.ToggleDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(off).To(BeFalse())
		})

		It("sets the explicit value regardless of the current state", func() {
			for i := 0; i < 2; i++ {
				on, err := service.ToggleSharing(ctx, caller, location.ToggleDTO{Enabled: ptr(true)})
				Expect(err).NotTo(HaveOccurred())
				Expect(on).To(BeTrue())
			}
			stored, err := repo.GetByID(ctx, caller.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.IsLocationSharingEnabled).To(BeTrue())
		})

		It("reports an unknown caller as not found", func() {
			ghost := internal.Identity{ID: "missing", Role: role.User}
			_, err := service.ToggleSharing(ctx, ghost, location.ToggleDTO{})
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())

			_, err = service.ToggleSharing(ctx, ghost, location.ToggleDTO{Enabled: ptr(false)})
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		})
	})

	Describe("UpdateLocation", func() {
		It("defaults the address to the placeholder", func() {
			loc, err := service.UpdateLocation(ctx, caller, location.UpdateLocationDTO{
				Latitude: ptr(-6.2), Longitude: ptr(106.8),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(loc.Address).To(Equal(internal.DefaultAddressPlaceholder))
			Expect(loc.UpdatedAt).NotTo(BeZero())

			stored, err := repo.GetByID(ctx, caller.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Location()).NotTo(BeNil())
			Expect(stored.Location().Latitude).To(Equal(-6.2))
		})

		It("keeps a provided address", func() {
			loc, err := service.UpdateLocation(ctx, caller, location.UpdateLocationDTO{
				Latitude: ptr(1.0), Longitude: ptr(2.0), Address: "  Gate 4  ",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(loc.Address).To(Equal("Gate 4"))
		})

		It("uses a configured placeholder", func() {
			custom := location.NewService(repo, "Somewhere", logger.Discard())
			loc, err := custom.UpdateLocation(ctx, caller, location.UpdateLocationDTO{Latitude: ptr(0.0), Longitude: ptr(0.0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(loc.Address).To(Equal("Somewhere"))
		})

		It("rejects missing or out of range coordinates", func() {
			for _, dto := range []location.UpdateLocationDTO{
				{Latitude: ptr(1.0)},
				{Latitude: ptr(91.0), Longitude: ptr(0.0)},
				{Latitude: ptr(0.0), Longitude: ptr(-181.0)},
			} {
				_, err := service.UpdateLocation(ctx, caller, dto)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(400))
			}
		})
	})
})
