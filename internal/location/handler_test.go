package location_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/location"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Location Handler", func() {
	var (
		router chi.Router
		caller internal.Identity
	)

	BeforeEach(func() {
		repo := openRepo()
		caller = seedUser(repo, "walker")
		h := location.NewHandler(location.NewService(repo, "", logger.Discard()), logger.Discard())

		router = chi.NewRouter()
		router.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					next.ServeHTTP(w, r.WithContext(internal.ContextWithIdentity(r.Context(), caller)))
				})
			})
			r.Post("/location/toggle", h.Toggle)
			r.Post("/location/update", h.Update)
		})
		router.Post("/anon/toggle", h.Toggle)
	})

	do := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("toggles with an empty body and reports the new state", func() {
		w := do("/location/toggle", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp location.ToggleResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.IsLocationSharingEnabled).To(BeTrue())
		Expect(resp.Message).To(Equal("Location sharing enabled"))

		w = do("/location/toggle", `{"enabled":false}`)
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.IsLocationSharingEnabled).To(BeFalse())
		Expect(resp.Message).To(Equal("Location sharing disabled"))
	})

	It("rejects a non-boolean enabled field", func() {
		w := do("/location/toggle", `{"enabled":"yes"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("Enabled field must be a boolean"))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeInvalidToggle)))
	})

	It("stores a location with the placeholder address", func() {
		w := do("/location/update", `{"latitude":-6.21,"longitude":106.85}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp location.UpdateResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Message).To(Equal("Location updated successfully"))
		Expect(resp.Location.Address).To(Equal("Unknown location"))
		Expect(resp.Location.Latitude).To(Equal(-6.21))
	})

	It("returns 400 for string coordinates", func() {
		w := do("/location/update", `{"latitude":"north","longitude":1}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 401 without an identity", func() {
		w := do("/anon/toggle", "")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})
