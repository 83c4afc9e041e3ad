package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerate(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "  You're doing great!  "})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model")
	result := c.Generate(context.Background(), "say something nice", 50, 0.7)

	if !result.Success {
		t.Fatalf("Generate failed: %v", result.Err)
	}
	if result.Text != "You're doing great!" {
		t.Errorf("Text = %q, want trimmed response", result.Text)
	}
	if gotReq["model"] != "test-model" {
		t.Errorf("model = %v", gotReq["model"])
	}
	if gotReq["stream"] != false {
		t.Error("streaming must be disabled")
	}
	opts := gotReq["options"].(map[string]any)
	if opts["num_predict"] != float64(50) {
		t.Errorf("num_predict = %v", opts["num_predict"])
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusInternalServerError)
		}},
		{"empty response", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"response": "   "})
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "m")
			result := c.Generate(context.Background(), "p", 10, 0)
			if result.Success {
				t.Error("expected failure")
			}
			if result.Err == nil {
				t.Error("failure carries no error")
			}
		})
	}
}

func TestCheckConnectionAdoptsAvailableModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "llama3:8b"},
				{"name": "mistral:7b"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "missing-model")
	models, err := c.CheckConnection(context.Background())
	if err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models", len(models))
	}
	if c.model != "llama3:8b" {
		t.Errorf("client did not adopt the first available model, got %q", c.model)
	}
}

func TestCheckConnectionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "m")
	if _, err := c.CheckConnection(context.Background()); err == nil {
		t.Error("expected error for closed server")
	}
}
