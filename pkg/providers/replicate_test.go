package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReplicate(t *testing.T, handler http.Handler) *ReplicateClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewReplicateClient("r8_test")
	client.http.SetBaseURL(server.URL)
	return client
}

func TestCreatePredictionWithVersion(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	client := newTestReplicate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predictions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"p1","status":"starting"}`)
	}))

	pred, err := client.CreatePrediction(context.Background(), "", "v123", map[string]interface{}{"prompt": "a cat"})
	require.NoError(t, err)
	assert.Equal(t, "p1", pred.ID)
	assert.Equal(t, "starting", pred.Status)
	assert.Equal(t, "Token r8_test", gotAuth)
	assert.Equal(t, "v123", gotBody["version"])
}

func TestCreatePredictionOfficialModel(t *testing.T) {
	client := newTestReplicate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/stability-ai/sdxl/predictions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"p2","status":"starting"}`)
	}))

	pred, err := client.CreatePrediction(context.Background(), "stability-ai/sdxl", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "p2", pred.ID)

	_, err = client.CreatePrediction(context.Background(), "not-a-path", "", nil)
	assert.Error(t, err)
}

func TestCreatePredictionSurfacesAPIError(t *testing.T) {
	client := newTestReplicate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail":"input is invalid"}`)
	}))

	_, err := client.CreatePrediction(context.Background(), "", "v123", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input is invalid")
}

func TestGetAndCancelPrediction(t *testing.T) {
	client := newTestReplicate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/predictions/p1":
			fmt.Fprint(w, `{"id":"p1","status":"succeeded","output":["https://example.com/out.png"]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/predictions/p1/cancel":
			fmt.Fprint(w, `{"id":"p1","status":"canceled"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	pred, err := client.GetPrediction(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", pred.Status)

	assert.NoError(t, client.CancelPrediction(context.Background(), "p1"))
}

func TestListCollectionModelsFollowsPagination(t *testing.T) {
	var server *httptest.Server
	pages := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		if pages < 3 {
			fmt.Fprintf(w, `{"models":[{"owner":"o","name":"m%d"}],"next":%q}`, pages, server.URL+"/collections/text-to-image?page="+fmt.Sprint(pages+1))
			return
		}
		fmt.Fprintf(w, `{"models":[{"owner":"o","name":"m%d"}],"next":""}`, pages)
	})
	server = httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewReplicateClient("r8_test")
	client.http.SetBaseURL(server.URL)

	models, err := client.ListCollectionModels(context.Background(), "text-to-image")
	require.NoError(t, err)
	assert.Len(t, models, 3)
	assert.Equal(t, "m1", models[0].Name)
}

func TestListCollectionModelsStopsAtPageCap(t *testing.T) {
	var server *httptest.Server
	pages := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		// Always claim another page exists.
		fmt.Fprintf(w, `{"models":[{"owner":"o","name":"m"}],"next":%q}`, server.URL+"/collections/endless")
	})
	server = httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewReplicateClient("r8_test")
	client.http.SetBaseURL(server.URL)

	models, err := client.ListCollectionModels(context.Background(), "endless")
	require.NoError(t, err)
	assert.Len(t, models, replicateMaxPages)
	assert.Equal(t, replicateMaxPages, pages)
}

func TestUploadAndDeleteFile(t *testing.T) {
	client := newTestReplicate(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, header, err := r.FormFile("content")
			require.NoError(t, err)
			fmt.Fprintf(w, `{"id":"f1","name":%q}`, header.Filename)
		case r.Method == http.MethodDelete && r.URL.Path == "/files/f1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	file, err := client.UploadFile(context.Background(), "input.png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "f1", file.ID)
	assert.Equal(t, "input.png", file.Name)

	assert.NoError(t, client.DeleteFile(context.Background(), "f1"))
}
