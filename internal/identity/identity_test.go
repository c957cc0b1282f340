package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware_SetsAnonCookie(t *testing.T) {
	var gotVisitor, gotSession string
	handler := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotVisitor = VisitorIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !isValidAnonID(gotVisitor) {
		t.Errorf("Expected generated anon id, got %q", gotVisitor)
	}
	// No session header: the visitor id doubles as session id.
	if gotSession != gotVisitor {
		t.Errorf("Expected session to fall back to visitor id, got %q", gotSession)
	}

	cookies := w.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == AnonCookieName && isValidAnonID(c.Value) {
			found = true
		}
	}
	if !found {
		t.Error("Expected anon cookie to be set")
	}
}

func TestMiddleware_ReusesValidCookie(t *testing.T) {
	var gotVisitor string
	handler := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotVisitor = VisitorIDFromContext(r.Context())
	}))

	const id = "anon_0123456789abcdef0123456789abcdef"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotVisitor != id {
		t.Errorf("Expected existing anon id reused, got %q", gotVisitor)
	}
}

func TestMiddleware_RejectsForgedCookie(t *testing.T) {
	var gotVisitor string
	handler := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotVisitor = VisitorIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "not-a-valid-id"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotVisitor == "not-a-valid-id" {
		t.Error("Expected forged cookie to be replaced")
	}
	if !isValidAnonID(gotVisitor) {
		t.Errorf("Expected fresh anon id, got %q", gotVisitor)
	}
}

func TestMiddleware_SessionHeader(t *testing.T) {
	var gotSession string
	handler := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeaderName, "widget-tab-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotSession != "widget-tab-42" {
		t.Errorf("Expected session id from header, got %q", gotSession)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"widget-tab-42", "widget-tab-42"},
		{"  widget-tab-42  ", "widget-tab-42"},
		{"", ""},
		{"has space", ""},
		{"semi;colon", ""},
	}
	for _, tt := range tests {
		if got := sanitizeSessionID(tt.in); got != tt.want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
