package permit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	permitDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/permit"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/events"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/permit"
	permitPostgres "github.com/frahmantamala/work-permit/internal/permit/postgres"
	userPostgres "github.com/frahmantamala/work-permit/internal/user/postgres"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ = Describe("Permit Handler Integration", func() {
	var (
		router     chi.Router
		identities map[string]internal.Identity
	)

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{}, &permitDatamodel.Permit{})).To(Succeed())

		users := userPostgres.NewUserRepository(db)
		identities = map[string]internal.Identity{}
		for _, seed := range []struct {
			key  string
			role role.Role
		}{{"alice", role.User}, {"bob", role.User}, {"admin", role.Admin}} {
			now := time.Now().UTC()
			id := uuid.NewString()
			Expect(users.Create(context.Background(), &userDatamodel.User{
				ID: id, Name: seed.key, Email: seed.key + "@example.com",
				PasswordHash: "x", Role: seed.role.String(), CreatedAt: now, UpdatedAt: now,
			})).To(Succeed())
			identities[seed.key] = internal.Identity{ID: id, Email: seed.key + "@example.com", Role: seed.role}
		}

		bus := events.NewEventBus(logger.Discard())
		svc := permit.NewService(permitPostgres.NewPermitRepository(db), users, bus, "Unknown location", logger.Discard())
		h := permit.NewHandler(svc, logger.Discard())

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if id, ok := identities[r.Header.Get("X-As")]; ok {
					r = r.WithContext(internal.ContextWithIdentity(r.Context(), id))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Route("/permits", func(r chi.Router) {
			r.Post("/", h.CreatePermit)
			r.Get("/", h.ListPermits)
			r.Get("/{id}", h.GetPermit)
			r.Put("/{id}", h.UpdatePermit)
			r.Delete("/{id}", h.DeletePermit)
		})
	})

	do := func(as, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if as != "" {
			req.Header.Set("X-As", as)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	submit := func(as, wp string) *httptest.ResponseRecorder {
		return do(as, http.MethodPost, "/permits/", `{"woNumber":"WO-9","wpNumber":"`+wp+`","name":"Jane",
			"designation":"Engineer","plant":"North","workNature":"Hot work","estimatedDays":3,
			"location":{"latitude":-6.2,"longitude":106.8,"address":"Gate 4"}}`)
	}

	It("walks the submit, approve and duplicate scenario", func() {
		w := submit("alice", "1234")
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var created permit.PermitResponse
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Permit.Status).To(Equal(permit.StatusPending))
		Expect(created.Permit.Location.Address).To(Equal("Gate 4"))

		w = do("admin", http.MethodPut, "/permits/"+created.Permit.ID, `{"status":"approved"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		var updated permit.PermitResponse
		Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
		Expect(updated.Permit.ApprovedBy).To(HaveValue(Equal(identities["admin"].ID)))
		Expect(updated.Permit.ApprovedAt).NotTo(BeNil())

		w = submit("bob", "1234")
		Expect(w.Code).To(Equal(http.StatusConflict))
		var body map[string]map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["error"]["message"]).To(Equal("WP Number already exists"))
	})

	It("lists with pagination and owner filtering", func() {
		Expect(submit("alice", "A-1").Code).To(Equal(http.StatusCreated))
		Expect(submit("alice", "A-2").Code).To(Equal(http.StatusCreated))
		Expect(submit("bob", "B-1").Code).To(Equal(http.StatusCreated))

		w := do("bob", http.MethodGet, "/permits/", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var own permit.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&own)).To(Succeed())
		Expect(own.Permits).To(HaveLen(1))
		Expect(own.Permits[0].WPNumber).To(Equal("B-1"))

		w = do("admin", http.MethodGet, "/permits/?page=2&limit=2", "")
		var all permit.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&all)).To(Succeed())
		Expect(all.Permits).To(HaveLen(1))
		Expect(all.Pagination.Current).To(Equal(2))
		Expect(all.Pagination.Total).To(Equal(2))
		Expect(all.Pagination.Count).To(Equal(1))
		Expect(all.Pagination.TotalItems).To(Equal(int64(3)))
		Expect(all.Permits[0].Submitter).NotTo(BeNil())
	})

	It("answers 404 when a user reads someone else's permit", func() {
		w := submit("alice", "1234")
		var created permit.PermitResponse
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())

		Expect(do("bob", http.MethodGet, "/permits/"+created.Permit.ID, "").Code).To(Equal(http.StatusNotFound))
		Expect(do("alice", http.MethodGet, "/permits/"+created.Permit.ID, "").Code).To(Equal(http.StatusOK))
	})

	It("rejects malformed ids and bodies", func() {
		Expect(do("admin", http.MethodGet, "/permits/not-a-uuid", "").Code).To(Equal(http.StatusBadRequest))
		Expect(do("alice", http.MethodPost, "/permits/", `{"estimatedDays":"soon"}`).Code).To(Equal(http.StatusBadRequest))
	})

	It("answers 401 without an identity and 403 for user deletes", func() {
		Expect(do("", http.MethodGet, "/permits/", "").Code).To(Equal(http.StatusUnauthorized))
		Expect(do("alice", http.MethodDelete, "/permits/"+uuid.NewString(), "").Code).To(Equal(http.StatusForbidden))
		Expect(do("admin", http.MethodDelete, "/permits/"+uuid.NewString(), "").Code).To(Equal(http.StatusNotFound))
	})
})
