package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSurfacesServerMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "space is read-only"})
	}))
	t.Cleanup(ts.Close)

	client := New(ts.URL, "k")
	err := client.do(context.Background(), http.MethodGet, "/spaces", nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "space is read-only", "server message must surface verbatim")
}

func TestUpsertEntityCreateAndUpdateShareOneEndpoint(t *testing.T) {
	var bodies []map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/spaces/s-1/entities", r.URL.Path)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)

		id, _ := body["id"].(string)
		if id == "" {
			id = "e-new"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"entity": map[string]interface{}{"id": id, "name": body["name"], "key": body["key"], "url": body["url"]},
		})
	}))
	t.Cleanup(ts.Close)

	client := New(ts.URL, "k")

	created, err := client.UpsertEntity(context.Background(), "s-1", "", "res-1", "plugin.js")
	require.NoError(t, err)
	assert.Equal(t, "e-new", created.ID)
	assert.NotContains(t, bodies[0], "id", "create role must omit the entity id")

	updated, err := client.UpsertEntity(context.Background(), "s-1", "e-7", "res-2", "plugin.js")
	require.NoError(t, err)
	assert.Equal(t, "e-7", updated.ID)
	assert.Equal(t, "e-7", bodies[1]["id"], "update role reuses the same create-style call")

	// URL derivation from the resource key stays in one place.
	assert.Equal(t, client.DisplayURL("res-1"), bodies[0]["url"])
	assert.Equal(t, client.DisplayURL("res-2"), bodies[1]["url"])
}

func TestListEntities(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/spaces/s-2/entities", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"entities": []map[string]string{
				{"id": "e-1", "name": "sign", "key": "k1"},
				{"id": "e-2", "name": "portal", "key": "k2"},
			},
		})
	}))
	t.Cleanup(ts.Close)

	entities, err := New(ts.URL, "k").ListEntities(context.Background(), "s-2")
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "portal", entities[1].Name)
}

func TestServerMessageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message_field", `{"message":"nope"}`, "nope"},
		{"error_field", `{"error":"bad key"}`, "bad key"},
		{"plain_text", "internal blowup", "internal blowup"},
		{"empty", "", "(no response body)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(tt.body))
			}))
			t.Cleanup(ts.Close)

			err := New(ts.URL, "k").do(context.Background(), http.MethodGet, "/spaces", nil, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
