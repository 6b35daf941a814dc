package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipelineServer mocks the presign/PUT/complete/poll sequence and records
// how far the pipeline got.
type pipelineServer struct {
	t *testing.T

	completeStatus string // "" for immediate key, "processing" for deferred
	pollResponses  []jobStatus
	pollForever    jobStatus // served when pollResponses runs out

	putCount     atomic.Int32
	pollCount    atomic.Int32
	putBody      []byte
	putHeader    http.Header
	completeBody map[string]interface{}
}

func (p *pipelineServer) start() (*httptest.Server, *Client) {
	ts := httptest.NewServer(http.HandlerFunc(p.handle))
	p.t.Cleanup(ts.Close)

	client := New(ts.URL, "test-key")
	client.PollInterval = 10 * time.Millisecond
	client.PollTimeout = 500 * time.Millisecond
	return ts, client
}

func (p *pipelineServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/files/upload":
		require.Equal(p.t, "Bearer test-key", r.Header.Get("Authorization"))
		host := "http://" + r.Host
		json.NewEncoder(w).Encode(map[string]interface{}{
			"key": "res-key-1",
			"upload": map[string]interface{}{
				"url":     host + "/storage/res-key-1",
				"method":  "PUT",
				"headers": map[string]string{"X-Storage-Token": "tok"},
			},
		})

	case r.URL.Path == "/storage/res-key-1":
		p.putCount.Add(1)
		p.putBody, _ = io.ReadAll(r.Body)
		p.putHeader = r.Header.Clone()
		w.WriteHeader(http.StatusOK)

	case r.URL.Path == "/api/v1/files/upload-complete":
		json.NewDecoder(r.Body).Decode(&p.completeBody)
		resp := map[string]interface{}{}
		if p.completeStatus == "processing" {
			resp["status"] = "processing"
			resp["pollUrl"] = "/files/jobs/j-1"
		} else {
			resp["key"] = "res-key-1"
		}
		json.NewEncoder(w).Encode(resp)

	case r.URL.Path == "/api/v1/files/jobs/j-1":
		n := int(p.pollCount.Add(1)) - 1
		job := p.pollForever
		if n < len(p.pollResponses) {
			job = p.pollResponses[n]
		}
		json.NewEncoder(w).Encode(job)

	default:
		http.NotFound(w, r)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadImmediateCompletion(t *testing.T) {
	p := &pipelineServer{t: t}
	_, client := p.start()
	path := writeTempFile(t, "plugin.js", "class A {}")

	key, err := client.UploadFile(context.Background(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, "res-key-1", key)
	assert.Equal(t, int32(1), p.putCount.Load(), "exactly one byte PUT")
	assert.Equal(t, "class A {}", string(p.putBody))
	assert.Equal(t, "tok", p.putHeader.Get("X-Storage-Token"), "presigned headers must be applied")
	assert.Equal(t, int32(0), p.pollCount.Load(), "immediate completion must not poll")
	assert.Equal(t, "plugin.js", p.completeBody["fileName"])
}

func TestUploadDeferredCompletionPollsUntilDone(t *testing.T) {
	p := &pipelineServer{
		t:              t,
		completeStatus: "processing",
		pollResponses: []jobStatus{
			{Status: "pending"},
			{Status: "processing"},
			{Status: "completed", Key: "res-key-final"},
		},
	}
	_, client := p.start()
	path := writeTempFile(t, "model.glb", "binarybytes")

	var progress []string
	key, err := client.UploadFile(context.Background(), path, func(msg string) {
		progress = append(progress, msg)
	})
	require.NoError(t, err)

	assert.Equal(t, "res-key-final", key, "the polled key is the pipeline result")
	assert.GreaterOrEqual(t, p.pollCount.Load(), int32(3))
	assert.NotEmpty(t, progress, "long-running steps must report progress")
}

func TestUploadJobFailure(t *testing.T) {
	p := &pipelineServer{
		t:              t,
		completeStatus: "processing",
		pollResponses:  []jobStatus{{Status: "failed", Error: "unsupported codec"}},
	}
	_, client := p.start()
	path := writeTempFile(t, "model.glb", "x")

	_, err := client.UploadFile(context.Background(), path, nil)
	require.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "unsupported codec", "server error text must surface")
}

func TestUploadJobTimeout(t *testing.T) {
	p := &pipelineServer{
		t:              t,
		completeStatus: "processing",
		pollForever:    jobStatus{Status: "processing"},
	}
	_, client := p.start()
	path := writeTempFile(t, "model.glb", "x")

	_, err := client.UploadFile(context.Background(), path, nil)
	require.ErrorIs(t, err, ErrJobTimeout)
}

func TestUploadPollNotFoundIsHardFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/files/upload", func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		json.NewEncoder(w).Encode(map[string]interface{}{
			"key":    "k",
			"upload": map[string]interface{}{"url": host + "/put", "method": "PUT"},
		})
	})
	mux.HandleFunc("/put", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v1/files/upload-complete", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "processing", "pollUrl": "/files/jobs/gone"})
	})
	// No handler for the job path: every poll is a 404.
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	client := New(ts.URL, "k")
	client.PollInterval = 10 * time.Millisecond
	client.PollTimeout = 500 * time.Millisecond
	path := writeTempFile(t, "f.bin", "x")

	start := time.Now()
	_, err := client.UploadFile(context.Background(), path, nil)
	require.ErrorIs(t, err, ErrJobFailed)
	assert.Less(t, time.Since(start), 400*time.Millisecond,
		"a not-found job must fail hard, not spin until the deadline")
}

func TestUploadAbortsOnStorageFailure(t *testing.T) {
	completeCalled := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/files/upload", func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		json.NewEncoder(w).Encode(map[string]interface{}{
			"key":    "k",
			"upload": map[string]interface{}{"url": host + "/put", "method": "PUT"},
		})
	})
	mux.HandleFunc("/put", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	})
	mux.HandleFunc("/api/v1/files/upload-complete", func(w http.ResponseWriter, r *http.Request) {
		completeCalled = true
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	client := New(ts.URL, "k")
	path := writeTempFile(t, "f.bin", "x")

	_, err := client.UploadFile(context.Background(), path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.False(t, completeCalled, "a failed PUT must abort before upload-complete")
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"a.png", "image/png"},
		{"b.html", "text/html; charset=utf-8"},
		{"noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, contentTypeFor(tt.file), tt.file)
	}
}
