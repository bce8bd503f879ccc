package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = ginkgo.Describe("Auth HTTP", func() {
	var (
		router   chi.Router
		tokenGen *JWTTokenGenerator
		seen     internal.Identity
	)

	ginkgo.BeforeEach(func() {
		repo := newMockUserRepository()
		repo.seed("u-1", "user@example.com", "correct_password", "user")
		tokenGen = NewJWTTokenGenerator(testAccessSecret, testRefreshSecret, 15*time.Minute, 24*time.Hour)
		svc := NewService(repo, tokenGen, NewBcryptHasher(bcrypt.MinCost), logger.Discard())
		h := NewHandler(svc, logger.Discard())
		gate := NewRoleGate(logger.Discard())
		seen = internal.Identity{}

		router = chi.NewRouter()
		router.Post("/auth/register", h.Register)
		router.Post("/auth/login", h.Login)
		router.Post("/auth/refresh", h.RefreshToken)
		router.Post("/auth/logout", h.Logout)
		router.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
				seen, _ = internal.IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			r.With(gate.RequireAdmin()).Get("/admin-only", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})
	})

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decodeError := func(rec *httptest.ResponseRecorder) errorBody {
		var body errorBody
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		return body
	}

	ginkgo.It("registers and returns 201 with tokens", func() {
		rec := do(http.MethodPost, "/auth/register", `{"name":"Jane","email":"jane@example.com","password":"secret1"}`, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))

		var tokens AuthTokens
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &tokens)).To(gomega.Succeed())
		gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
		gomega.Expect(tokens.User.Role).To(gomega.Equal(role.User))
	})

	ginkgo.It("returns 409 for a duplicate registration", func() {
		rec := do(http.MethodPost, "/auth/register", `{"name":"Jane","email":"user@example.com","password":"secret1"}`, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusConflict))
		gomega.Expect(decodeError(rec).Error.Message).To(gomega.Equal("User with this email already exists"))
	})

	ginkgo.It("returns 400 for a malformed body", func() {
		rec := do(http.MethodPost, "/auth/login", `{not json`, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(decodeError(rec).Error.Code).To(gomega.Equal(string(internal.ErrCodeInvalidBody)))
	})

	ginkgo.It("returns 401 for bad credentials", func() {
		rec := do(http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"nope"}`, "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.Describe("AuthMiddleware", func() {
		ginkgo.It("rejects requests without a token", func() {
			rec := do(http.MethodGet, "/me", "", "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(rec).Error.Message).To(gomega.Equal("No token, authorization denied"))
		})

		ginkgo.It("rejects garbage tokens", func() {
			rec := do(http.MethodGet, "/me", "", "not-a-jwt")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(rec).Error.Message).To(gomega.Equal("Token is not valid"))
		})

		ginkgo.It("puts the identity on the request context", func() {
			token, _ := tokenGen.GenerateAccessToken("u-1", "user@example.com", "user")
			rec := do(http.MethodGet, "/me", "", token)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(seen.ID).To(gomega.Equal("u-1"))
			gomega.Expect(seen.Role).To(gomega.Equal(role.User))
		})
	})

	ginkgo.Describe("RoleGate", func() {
		ginkgo.It("returns 403 for non-admins", func() {
			token, _ := tokenGen.GenerateAccessToken("u-1", "user@example.com", "user")
			rec := do(http.MethodGet, "/admin-only", "", token)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(decodeError(rec).Error.Message).To(gomega.Equal("Access denied. Admin only."))
		})

		ginkgo.It("lets admins through", func() {
			token, _ := tokenGen.GenerateAccessToken("a-1", "admin@example.com", "admin")
			rec := do(http.MethodGet, "/admin-only", "", token)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.It("logout answers 204 for a valid token", func() {
		token, _ := tokenGen.GenerateAccessToken("u-1", "user@example.com", "user")
		rec := do(http.MethodPost, "/auth/logout", "", token)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
	})
})
