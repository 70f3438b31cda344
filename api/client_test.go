package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	return NewClient(base, srv.Client())
}

func TestClientEncode(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/encode" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var req EncodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}

		if err := json.NewEncoder(w).Encode(EncodeResponse{
			Model:     req.Model,
			Embedding: TensorData{Shape: []int{1, 2}, Data: []float32{0.5, -0.5}},
		}); err != nil {
			t.Error(err)
		}
	})

	resp, err := c.Encode(t.Context(), &EncodeRequest{
		Model:  "encoder-ae-celeba",
		Images: []ImageData{[]byte("not really a png")},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Model != "encoder-ae-celeba" {
		t.Errorf("model = %q, want %q", resp.Model, "encoder-ae-celeba")
	}

	if diff := cmp.Diff(TensorData{Shape: []int{1, 2}, Data: []float32{0.5, -0.5}}, resp.Embedding); diff != "" {
		t.Errorf("embedding mismatch (-want +got):\n%s", diff)
	}
}

func TestClientStatusError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		if err := json.NewEncoder(w).Encode(map[string]string{"error": `model "absent" not found`}); err != nil {
			t.Error(err)
		}
	})

	_, err := c.Show(t.Context(), &ShowRequest{Model: "absent"})

	var se StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected a StatusError, got %T: %v", err, err)
	}

	if se.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", se.StatusCode, http.StatusNotFound)
	}

	if se.ErrorMessage != `model "absent" not found` {
		t.Errorf("error message = %q", se.ErrorMessage)
	}
}

func TestClientPlainBodyError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "proxy fell over", http.StatusBadGateway)
	})

	err := c.Heartbeat(t.Context())

	var se StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected a StatusError, got %T: %v", err, err)
	}

	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("status code = %d, want %d", se.StatusCode, http.StatusBadGateway)
	}
}
