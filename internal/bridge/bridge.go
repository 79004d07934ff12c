// Package bridge is the HTTP client for the platform backend proxy.
//
// Ownership boundary:
// - request/response envelope shared by every proxy endpoint
// - remote stdout/stderr echo into the task streams
// - index payload chunking
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/seqforge/taskkit/internal/config"
)

// TokenHeader carries the task token issued by the platform.
const TokenHeader = "X-Task-Token"

var (
	// ErrRemote reports a failure signaled by the backend itself.
	ErrRemote = errors.New("platform backend reported an error")
	// ErrBadStatus reports an unexpected HTTP status from the proxy.
	ErrBadStatus = errors.New("unexpected proxy status")
)

// Bridge talks to the backend proxy. Every call is a POST of one JSON
// object; the proxy answers 201 with an envelope that may carry text for the
// task's own streams.
type Bridge struct {
	baseURL string
	token   string
	client  *http.Client
	stdout  io.Writer
	stderr  io.Writer
}

// New builds a bridge for the configured proxy, echoing remote output to the
// process streams.
func New(cfg config.Config) *Bridge {
	return NewWithStreams(cfg.ProxyURL, cfg.Token, nil, os.Stdout, os.Stderr)
}

// NewWithStreams builds a bridge with explicit wiring. A nil client uses
// http.DefaultClient.
func NewWithStreams(baseURL, token string, client *http.Client, stdout, stderr io.Writer) *Bridge {
	if client == nil {
		client = http.DefaultClient
	}
	return &Bridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// ObjectRef names the platform object a call operates on.
type ObjectRef struct {
	ID   int64  `json:"object_id"`
	Kind string `json:"kind"`
}

type envelope struct {
	Stdout string          `json:"stdout"`
	Stderr string          `json:"stderr"`
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (b *Bridge) send(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/"+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set(TokenHeader, b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		if resp.StatusCode == http.StatusInternalServerError {
			return nil, fmt.Errorf("proxy %s: internal server error: %w", path, ErrBadStatus)
		}
		return nil, fmt.Errorf("proxy %s: got status %d, expect 201: %w", path, resp.StatusCode, ErrBadStatus)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}

	if env.Stdout != "" && b.stdout != nil {
		fmt.Fprint(b.stdout, env.Stdout)
	}
	if env.Stderr != "" && b.stderr != nil {
		fmt.Fprint(b.stderr, env.Stderr)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, env.Error)
	}
	return env.Result, nil
}

// Invoke calls a backend method on the referenced object and returns the raw
// result.
func (b *Bridge) Invoke(ctx context.Context, ref ObjectRef, method string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	return b.send(ctx, "invoke", struct {
		ObjectRef
		Method string `json:"method"`
		Args   []any  `json:"args"`
	}{ref, method, args})
}

// StorageUnit is the wire shape of one stored file group.
type StorageUnit struct {
	Files  []string          `json:"files"`
	Format map[string]string `json:"format,omitempty"`
}

// Get stages the data stored under key into workingDir and returns the
// staged unit descriptions. formatPattern, when non-nil, asks the backend to
// convert to a matching format during staging.
func (b *Bridge) Get(ctx context.Context, ref ObjectRef, key, workingDir string, formatPattern []map[string][]string) ([]StorageUnit, error) {
	result, err := b.send(ctx, "get", struct {
		ObjectRef
		Key           string                `json:"key"`
		WorkingDir    string                `json:"working_dir"`
		FormatPattern []map[string][]string `json:"format_pattern,omitempty"`
	}{ref, key, workingDir, formatPattern})
	if err != nil {
		return nil, err
	}
	var units []StorageUnit
	if err := json.Unmarshal(result, &units); err != nil {
		return nil, fmt.Errorf("decode staged units: %w", err)
	}
	return units, nil
}

// Put stores the given units under key.
func (b *Bridge) Put(ctx context.Context, ref ObjectRef, key string, units []StorageUnit) error {
	_, err := b.send(ctx, "put", struct {
		ObjectRef
		Key      string        `json:"key"`
		Storages []StorageUnit `json:"storages"`
	}{ref, key, units})
	return err
}

// SetFormat records a format for already-stored units.
func (b *Bridge) SetFormat(ctx context.Context, ref ObjectRef, key string, units []StorageUnit) error {
	_, err := b.send(ctx, "set_format", struct {
		ObjectRef
		Key      string        `json:"key"`
		Storages []StorageUnit `json:"storages"`
	}{ref, key, units})
	return err
}

// DownloadRequest asks the backend to fetch the file's external links into
// the working directory.
type DownloadRequest struct {
	StorageKey   string `json:"storage_key"`
	LinksKey     string `json:"links_key"`
	Fold         bool   `json:"fold"`
	PutToStorage bool   `json:"put_to_storage"`
	WorkingDir   string `json:"working_dir"`
}

// Download runs the download collaborator and returns the local paths of the
// fetched files.
func (b *Bridge) Download(ctx context.Context, ref ObjectRef, req DownloadRequest) ([]string, error) {
	result, err := b.send(ctx, "download", struct {
		ObjectRef
		DownloadRequest
	}{ref, req})
	if err != nil {
		return nil, err
	}
	var out struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("decode downloaded paths: %w", err)
	}
	return out.Files, nil
}

// SendIndex submits index records, splitting oversized batches.
func (b *Bridge) SendIndex(ctx context.Context, ref ObjectRef, records []map[string]any) error {
	chunks, err := chunkRecords(records)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		_, err := b.send(ctx, "dataindex", struct {
			ObjectRef
			Values []map[string]any `json:"values"`
		}{ref, chunk})
		if err != nil {
			return err
		}
	}
	return nil
}
