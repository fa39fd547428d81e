package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
)

func TestHTTPExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("WellFormedResponse", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/extract", r.URL.Path)
			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "notify slack", req["prompt"])
			assert.Equal(t, "text", req["input_type"])

			json.NewEncoder(w).Encode(Intent{
				Steps:      []Step{{Action: SendNotificationAction, ToolCandidate: "Slack"}},
				Trigger:    "manual",
				Confidence: 0.8,
			})
		}))
		defer srv.Close()

		e := NewHTTPExtractor(srv.URL, time.Second)
		in, err := e.Extract(ctx, "notify slack", models.TextInputType)
		assert.NoError(t, err)
		assert.Equal(t, "Slack", in.Steps[0].ToolCandidate)
		assert.InDelta(t, 0.8, in.Confidence, 0.001)
	})

	t.Run("ServerErrorIsUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		e := NewHTTPExtractor(srv.URL, time.Second)
		_, err := e.Extract(ctx, "notify slack", models.TextInputType)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("MalformedResponseIsUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		e := NewHTTPExtractor(srv.URL, time.Second)
		_, err := e.Extract(ctx, "notify slack", models.TextInputType)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("EmptyStepsIsUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Intent{Trigger: "manual"})
		}))
		defer srv.Close()

		e := NewHTTPExtractor(srv.URL, time.Second)
		_, err := e.Extract(ctx, "notify slack", models.TextInputType)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("ConnectionRefusedIsUnavailable", func(t *testing.T) {
		e := NewHTTPExtractor("http://127.0.0.1:1", 200*time.Millisecond)
		_, err := e.Extract(ctx, "notify slack", models.TextInputType)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
