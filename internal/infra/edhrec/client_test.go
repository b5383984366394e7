package edhrec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"commander_go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Atraxa, Praetors' Voice", "atraxa-praetors-voice"},
		{"Edgar Markov", "edgar-markov"},
		{"Kenrith, the Returned King", "kenrith-the-returned-king"},
		{"Jhoira of the Ghitu", "jhoira-of-the-ghitu"},
		{"Lim-Dûl the Necromancer", "lim-dûl-the-necromancer"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestRecommendations(t *testing.T) {
	body := `{"container":{"json_dict":{"cardlists":[
  {"cardviews":[{"name":"Sol Ring"},{"name":"Arcane Signet"}]},
  null,
  {"cardviews":[{"name":"Sol Ring"},null,{"name":"Command Tower"},{}]}
]}}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/atraxa-praetors-voice.json", r.URL.Path)
		w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewClient(server.URL, http.DefaultClient)
	names, err := client.Recommendations(context.Background(), "Atraxa, Praetors' Voice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arcane Signet", "Command Tower", "Sol Ring"}, names)
}

func TestRecommendations_Errors(t *testing.T) {
	t.Run("Unknown commander", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := NewClient(server.URL, nil).Recommendations(context.Background(), "Nobody")
		assert.True(t, domain.IsConfirmedNegative(err))
	})

	t.Run("Server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, nil).Recommendations(context.Background(), "Edgar Markov")
		assert.True(t, domain.IsRetriable(err))
	})
}
