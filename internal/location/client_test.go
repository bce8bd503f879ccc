package location_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/work-permit/internal/location"
	"github.com/frahmantamala/work-permit/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		received map[string]interface{}
		authz    string
	)

	BeforeEach(func() {
		received = nil
		mux := http.NewServeMux()
		mux.HandleFunc("/api/v1/location/update", func(w http.ResponseWriter, r *http.Request) {
			authz = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"Location updated successfully","location":{"latitude":1,"longitude":2,"address":"Gate","updatedAt":"2024-05-01T08:00:00Z"}}`))
		})
		mux.HandleFunc("/api/v1/location/toggle", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"type":"UNAUTHORIZED","code":"INVALID_TOKEN","message":"Token is not valid"}}`))
		})
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)
	})

	It("posts positions with the bearer token", func() {
		c := location.NewClient(location.ClientConfig{BaseURL: server.URL + "/api/v1/", Token: "abc"}, logger.Discard())
		err := c.Report(context.Background(), location.Position{Latitude: 1, Longitude: 2, Address: "Gate"})
		Expect(err).NotTo(HaveOccurred())
		Expect(authz).To(Equal("Bearer abc"))
		Expect(received).To(HaveKeyWithValue("address", "Gate"))
		Expect(received).To(HaveKeyWithValue("latitude", 1.0))
	})

	It("surfaces the error envelope", func() {
		c := location.NewClient(location.ClientConfig{BaseURL: server.URL + "/api/v1"}, logger.Discard())
		_, err := c.SetSharing(context.Background(), true)
		Expect(err).To(MatchError(ContainSubstring("Token is not valid")))
	})
})
