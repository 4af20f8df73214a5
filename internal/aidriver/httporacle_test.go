package aidriver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPOracle_Decide_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got PublicView
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "game-1", got.GameID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Decision{Action: "RAISE", Amount: 40})
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL)
	decision, err := o.Decide(context.Background(), PublicView{GameID: "game-1"})
	require.NoError(t, err)
	assert.Equal(t, Decision{Action: "RAISE", Amount: 40}, decision)
}

func TestHTTPOracle_Decide_ErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL)
	_, err := o.Decide(context.Background(), PublicView{})
	assert.Error(t, err)
}

func TestNopOracle_AlwaysErrors(t *testing.T) {
	_, err := NopOracle{}.Decide(context.Background(), PublicView{})
	assert.Error(t, err)
}
