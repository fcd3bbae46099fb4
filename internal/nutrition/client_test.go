package nutrition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		file, header, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("photo part missing: %v", err)
		} else {
			file.Close()
			if header.Filename != "dinner.jpg" {
				t.Errorf("unexpected filename %q", header.Filename)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"description": "chicken rice bowl",
			"totalCalories": 620,
			"dishes": [{"name": "chicken rice bowl", "calories": 620,
				"macros": {"carbs": 70, "fats": 18, "proteins": 42}}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)
	analysis, err := c.Analyze(context.Background(), "dinner.jpg", strings.NewReader("jpegbytes"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if analysis.Description != "chicken rice bowl" || analysis.TotalCalories != 620 {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if len(analysis.Dishes) != 1 || analysis.Dishes[0].Macros.Proteins != 42 {
		t.Fatalf("unexpected dishes: %+v", analysis.Dishes)
	}
}

func TestAnalyzeNilDishes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"description": "mystery soup", "totalCalories": 120}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	analysis, err := c.Analyze(context.Background(), "soup.jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Dishes == nil {
		t.Fatal("dishes must never be nil")
	}
}

func TestAnalyzeServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": "no food detected"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.Analyze(context.Background(), "cat.jpg", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "no food detected") {
		t.Fatalf("expected service error to surface, got %v", err)
	}
}
