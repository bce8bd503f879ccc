package admin_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/admin"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Admin Handler Integration", func() {
	var (
		router chi.Router
		root   internal.Identity
	)

	BeforeEach(func() {
		repo := openRepo()
		root = seedAccount(repo, "root", role.Admin)
		h := admin.NewHandler(admin.NewService(repo, prefixHasher{}, logger.Discard()), logger.Discard())

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithIdentity(r.Context(), root)))
			})
		})
		router.Route("/admins", func(r chi.Router) {
			r.Post("/", h.CreateAdmin)
			r.Get("/", h.ListAdmins)
			r.Get("/{id}", h.GetAdmin)
			r.Put("/{id}", h.UpdateAdmin)
			r.Delete("/{id}", h.DeleteAdmin)
		})
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("creates then lists admins without leaking hashes", func() {
		w := do(http.MethodPost, "/admins/", `{"name":"Ops","email":"ops@example.com","password":"secret1"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Body.String()).NotTo(ContainSubstring("secret1"))
		Expect(w.Body.String()).NotTo(ContainSubstring("hashed:"))

		w = do(http.MethodGet, "/admins/?limit=1", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var list admin.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Admins).To(HaveLen(1))
		Expect(list.Pagination.Total).To(Equal(2))
		Expect(list.Pagination.TotalItems).To(Equal(int64(2)))
	})

	It("answers 409 for a duplicate email", func() {
		w := do(http.MethodPost, "/admins/", `{"name":"Dup","email":"root@example.com","password":"secret1"}`)
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("answers 400 on self-delete and last-admin delete", func() {
		Expect(do(http.MethodDelete, "/admins/"+root.ID, "").Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodDelete, "/admins/"+uuid.NewString(), "").Code).To(Equal(http.StatusBadRequest))
	})

	It("answers 404 for unknown admins", func() {
		Expect(do(http.MethodGet, "/admins/"+uuid.NewString(), "").Code).To(Equal(http.StatusNotFound))
	})
})
