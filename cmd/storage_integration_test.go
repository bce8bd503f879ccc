//go:build integration

package cmd

import (
	"context"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/auth"
	permitDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/permit"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/crypto/bcrypt"
)

var _ = Describe("postgres storage", Ordered, func() {
	var (
		ctx   context.Context
		ctr   *postgres.PostgresContainer
		dsn   string
		store *storage
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		ctr, err = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("work_permit"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			postgres.BasicWaitStrategies(),
		)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		db, err := goose.OpenDBWithDriver("pgx", dsn)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()
		goose.SetTableName("schema_migrations")
		Expect(goose.UpContext(ctx, db, "../db/migrations")).To(Succeed())

		store, err = openStorage(ctx, internal.DatabaseConfig{
			Driver:       internal.DriverPostgres,
			Source:       dsn,
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		}, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = store.Close(ctx) })
	})

	It("answers the readiness check", func() {
		Expect(store.Checks).To(HaveLen(1))
		Expect(store.Checks[0].Ping(ctx)).To(Succeed())
	})

	It("stores users and permits against the migrated schema", func() {
		created, err := seedAdmin(ctx, store.Users, auth.NewBcryptHasher(bcrypt.MinCost), "Root", "root@example.com", "secret123")
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())

		admin, err := store.Users.GetByEmail(ctx, "root@example.com")
		Expect(err).NotTo(HaveOccurred())

		now := time.Now().UTC()
		p := &permitDatamodel.Permit{
			ID: uuid.NewString(), UserID: admin.ID, WONumber: "WO-1", WPNumber: "WP-1",
			Name: "Hot work", Designation: "Welder", Plant: "North", WorkNature: "Welding",
			EstimatedDays: 2, Latitude: 1.5, Longitude: 103.8, Address: "Gate 3",
			Status: "pending", CreatedAt: now, UpdatedAt: now,
		}
		Expect(store.Permits.Create(ctx, p)).To(Succeed())

		dup := *p
		dup.ID = uuid.NewString()
		Expect(store.Permits.Create(ctx, &dup)).To(MatchError(permitDatamodel.ErrDuplicateWPNumber))

		n, err := store.Permits.Count(ctx, permitDatamodel.Filter{UserID: admin.ID})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeEquivalentTo(1))
	})

	It("keeps permits and approvals when an admin account is deleted", func() {
		hasher := auth.NewBcryptHasher(bcrypt.MinCost)
		_, err := seedAdmin(ctx, store.Users, hasher, "Reviewer", "reviewer@example.com", "secret123")
		Expect(err).NotTo(HaveOccurred())
		reviewer, err := store.Users.GetByEmail(ctx, "reviewer@example.com")
		Expect(err).NotTo(HaveOccurred())
		root, err := store.Users.GetByEmail(ctx, "root@example.com")
		Expect(err).NotTo(HaveOccurred())

		now := time.Now().UTC().Truncate(time.Microsecond)
		owned := &permitDatamodel.Permit{
			ID: uuid.NewString(), UserID: reviewer.ID, WONumber: "WO-2", WPNumber: "WP-2",
			Name: "Confined space", Designation: "Fitter", Plant: "South", WorkNature: "Tank entry",
			EstimatedDays: 1, Latitude: 1.2, Longitude: 103.7, Address: "Tank 4",
			Status: "pending", CreatedAt: now, UpdatedAt: now,
		}
		approvedBy := reviewer.ID
		approved := &permitDatamodel.Permit{
			ID: uuid.NewString(), UserID: root.ID, WONumber: "WO-3", WPNumber: "WP-3",
			Name: "Lifting", Designation: "Rigger", Plant: "East", WorkNature: "Crane lift",
			EstimatedDays: 3, Latitude: 1.3, Longitude: 103.9, Address: "Yard",
			Status: "approved", ApprovedBy: &approvedBy, ApprovedAt: &now,
			CreatedAt: now, UpdatedAt: now,
		}
		Expect(store.Permits.Create(ctx, owned)).To(Succeed())
		Expect(store.Permits.Create(ctx, approved)).To(Succeed())

		Expect(store.Users.DeleteByRole(ctx, reviewer.ID, role.Admin.String())).To(Succeed())

		got, err := store.Permits.GetByID(ctx, owned.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.UserID).To(Equal(reviewer.ID))

		got, err = store.Permits.GetByID(ctx, approved.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ApprovedBy).NotTo(BeNil())
		Expect(*got.ApprovedBy).To(Equal(reviewer.ID))
		Expect(got.ApprovedAt).NotTo(BeNil())
		Expect(got.ApprovedAt.Equal(now)).To(BeTrue())
	})

	It("rolls the schema back", func() {
		db, err := goose.OpenDBWithDriver("pgx", dsn)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()
		Expect(goose.DownContext(ctx, db, "../db/migrations")).To(Succeed())
		version, err := goose.GetDBVersionContext(ctx, db)
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeEquivalentTo(20240501000001))
	})
})
