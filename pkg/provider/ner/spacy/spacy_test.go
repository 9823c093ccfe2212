package spacy_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/meetplot/meetplot/pkg/provider/ner"
	"github.com/meetplot/meetplot/pkg/provider/ner/spacy"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entities" {
			t.Errorf("path = %q, want /entities", r.URL.Path)
		}

		var req struct {
			Text   string   `json:"text"`
			Labels []string `json:"labels"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !reflect.DeepEqual(req.Labels, []string{"PERSON", "ORG"}) {
			t.Errorf("labels = %v, want [PERSON ORG]", req.Labels)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"entities": map[string][]string{
				"PERSON": {"Alice", "Bob"},
				"ORG":    {"Acme"},
			},
		})
	}))
	defer srv.Close()

	p, err := spacy.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Extract(context.Background(), "Alice from Acme met Bob.", []string{"PERSON", "ORG"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(got["PERSON"], []string{"Alice", "Bob"}) {
		t.Errorf("PERSON = %v, want [Alice Bob]", got["PERSON"])
	}
	if !reflect.DeepEqual(got["ORG"], []string{"Acme"}) {
		t.Errorf("ORG = %v, want [Acme]", got["ORG"])
	}
}

func TestExtract_DefaultLabels(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Labels []string `json:"labels"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !reflect.DeepEqual(req.Labels, ner.DefaultLabels) {
			t.Errorf("labels = %v, want the default set %v", req.Labels, ner.DefaultLabels)
		}
		json.NewEncoder(w).Encode(map[string]any{"entities": map[string][]string{}})
	}))
	defer srv.Close()

	p, err := spacy.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Extract(context.Background(), "some text", nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
}

func TestExtract_SidecarError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pipeline busy", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := spacy.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Extract(context.Background(), "text", nil); err == nil {
		t.Fatal("expected error for a 429 response, got nil")
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := spacy.New(""); err == nil {
		t.Fatal("expected error for empty base URL, got nil")
	}
}
