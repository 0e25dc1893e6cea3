package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/SignalMiner/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newIssuer(t *testing.T, ttl time.Duration) *auth.TokenIssuer {
	t.Helper()
	ti, err := auth.NewTokenIssuer(testSecret, ttl)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return ti
}

func TestNewTokenIssuer_shortSecret(t *testing.T) {
	if _, err := auth.NewTokenIssuer("short", time.Hour); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestTokenIssuer_roundTrip(t *testing.T) {
	ti := newIssuer(t, time.Hour)

	token, err := ti.Issue("phone-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("expected 3-part JWT, got %d parts", len(parts))
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.DeviceID != "phone-1" || claims.Subject != "phone-1" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}
}

func TestTokenIssuer_Verify_expired(t *testing.T) {
	ti := newIssuer(t, -time.Minute)
	token, err := ti.Issue("phone-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenIssuer_Verify_wrongSecret(t *testing.T) {
	token, err := newIssuer(t, time.Hour).Issue("phone-1")
	if err != nil {
		t.Fatal(err)
	}
	other, _ := auth.NewTokenIssuer("a-completely-different-secret", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestRequireToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ti := newIssuer(t, time.Hour)
	token, _ := ti.Issue("phone-1")

	r := gin.New()
	r.POST("/guarded", auth.RequireToken(ti), func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.DeviceID)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRequireToken_disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/open", auth.RequireToken(nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/open", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}
