package huggingface

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models/acme/celeba-ae" {
			http.NotFound(w, r)
			return
		}

		fmt.Fprint(w, `{
			"id": "acme/celeba-ae",
			"sha": "abc123",
			"gated": false,
			"siblings": [
				{"rfilename": "README.md", "size": 10},
				{"rfilename": "encoder.gguf", "lfs": {"size": 1000, "sha256": "aa"}},
				{"rfilename": "decoder.gguf", "size": 2000}
			]
		}`)
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL))
	info, err := c.ModelInfo(t.Context(), "acme/celeba-ae")
	require.NoError(t, err)

	assert.Equal(t, "acme/celeba-ae", info.ID)
	assert.Equal(t, "abc123", info.SHA)
	assert.False(t, info.IsGated())

	cs := info.Checkpoints()
	require.Len(t, cs, 2)
	assert.Equal(t, "encoder.gguf", cs[0].Filename)
	assert.Equal(t, int64(1000), cs[0].FileSize())
	assert.Equal(t, int64(2000), cs[1].FileSize())
}

func TestModelInfoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL))
	_, err := c.ModelInfo(t.Context(), "acme/missing")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestModelInfoAuthHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"id": "acme/private"}`)
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL), WithToken("hf_secret"))
	_, err := c.ModelInfo(t.Context(), "acme/private")
	require.NoError(t, err)
	assert.Equal(t, "Bearer hf_secret", auth)
}

func TestIsGated(t *testing.T) {
	cases := []struct {
		gated any
		want  bool
	}{
		{false, false},
		{true, true},
		{"auto", true},
		{"manual", true},
		{"", false},
		{nil, false},
	}

	for _, tt := range cases {
		m := ModelInfo{Gated: tt.gated}
		assert.Equal(t, tt.want, m.IsGated(), "gated=%v", tt.gated)
	}
}

func TestValidateModelID(t *testing.T) {
	for _, id := range []string{"acme/model", "a/b"} {
		assert.NoError(t, validateModelID(id), id)
	}

	for _, id := range []string{"", "model", "/model", "acme/", "a/b/c"} {
		assert.ErrorIs(t, validateModelID(id), ErrInvalidModelID, id)
	}
}
