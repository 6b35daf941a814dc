package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Async upload job errors, distinguishable from plain HTTP failures.
var (
	ErrJobTimeout = errors.New("upload processing timed out")
	ErrJobFailed  = errors.New("upload processing failed")
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 120 * time.Second
)

// ProgressFunc receives coarse progress lines during a long-running upload so
// a hang is distinguishable from a crash. May be nil.
type ProgressFunc func(msg string)

// presignResponse is the POST /files/upload response: where and how to PUT
// the raw bytes.
type presignResponse struct {
	Upload struct {
		URL     string            `json:"url"`
		Method  string            `json:"method"`
		Headers map[string]string `json:"headers"`
	} `json:"upload"`
	Key string `json:"key"`
}

// completeResponse is the POST /files/upload-complete response. Either Key is
// set (immediate) or Status is "processing" and PollURL points at the job.
type completeResponse struct {
	Key     string `json:"key"`
	Status  string `json:"status"`
	PollURL string `json:"pollUrl"`
}

// jobStatus is one GET <pollUrl> response.
type jobStatus struct {
	Status string `json:"status"` // pending | processing | completed | failed
	Key    string `json:"key"`
	Error  string `json:"error"`
}

// UploadFile moves a local file into platform storage: presign, raw PUT,
// confirm, and — when the server post-processes asynchronously — poll until
// the job completes. Returns the resource key.
func (c *Client) UploadFile(ctx context.Context, path string, progress ProgressFunc) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	fileName := filepath.Base(path)
	contentType := contentTypeFor(fileName)

	report(progress, fmt.Sprintf("requesting upload for %s (%d bytes)", fileName, info.Size()))

	var presign presignResponse
	err = c.do(ctx, http.MethodPost, "/files/upload", map[string]interface{}{
		"fileName":    fileName,
		"fileSize":    info.Size(),
		"contentType": contentType,
	}, &presign)
	if err != nil {
		return "", err
	}
	if presign.Upload.URL == "" {
		return "", fmt.Errorf("presign response missing upload url")
	}

	report(progress, "uploading file bytes")
	if err := c.putFile(ctx, presign, path, info.Size(), contentType); err != nil {
		return "", err
	}

	report(progress, "confirming upload")
	var complete completeResponse
	err = c.do(ctx, http.MethodPost, "/files/upload-complete", map[string]interface{}{
		"key":      presign.Key,
		"fileName": fileName,
	}, &complete)
	if err != nil {
		return "", err
	}

	if complete.Key != "" && complete.Status != "processing" {
		return complete.Key, nil
	}
	if complete.PollURL == "" {
		return "", fmt.Errorf("upload-complete response has neither key nor pollUrl")
	}

	return c.pollJob(ctx, complete.PollURL, progress)
}

// putFile performs the raw byte transfer directly against the presigned
// target, not through the API layer. Any non-2xx aborts: partial uploads are
// not resumed.
func (c *Client) putFile(ctx context.Context, presign presignResponse, path string, size int64, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	method := presign.Upload.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, presign.Upload.URL, f)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	for k, v := range presign.Upload.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("upload bytes: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload bytes: storage returned %d", resp.StatusCode)
	}
	return nil
}

// pollJob queries the job endpoint on a fixed interval until it reaches a
// terminal state or the overall deadline passes. A "not found" from the job
// endpoint is a hard failure: the job was acknowledged before polling began,
// so its disappearance means the server lost it.
func (c *Client) pollJob(ctx context.Context, pollURL string, progress ProgressFunc) (string, error) {
	interval := c.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}
	timeout := c.PollTimeout
	if timeout == 0 {
		timeout = defaultPollTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	report(progress, "processing on server")

	for {
		select {
		case <-deadline.C:
			return "", ErrJobTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		var job jobStatus
		if err := c.do(ctx, http.MethodGet, pollURL, nil, &job); err != nil {
			if isNotFound(err) {
				return "", fmt.Errorf("%w: job disappeared: %v", ErrJobFailed, err)
			}
			// Transient server hiccup: keep polling until the deadline.
			report(progress, "poll failed, retrying")
			continue
		}

		switch job.Status {
		case "completed":
			if job.Key == "" {
				return "", fmt.Errorf("%w: completed without a resource key", ErrJobFailed)
			}
			return job.Key, nil
		case "failed":
			return "", fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
		default:
			report(progress, "still "+orPending(job.Status))
		}
	}
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), ": 404:") || strings.Contains(strings.ToLower(err.Error()), "not found")
}

func orPending(status string) string {
	if status == "" {
		return "pending"
	}
	return status
}

func contentTypeFor(fileName string) string {
	if ct := mime.TypeByExtension(filepath.Ext(fileName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func report(progress ProgressFunc, msg string) {
	if progress != nil {
		progress(msg)
	}
}
