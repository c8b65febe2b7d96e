// Package ipfs stores collection images and metadata by content hash.
package ipfs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown content hashes.
var ErrNotFound = errors.New("content not found")

// Storage is the content-addressed store the collection flow writes to.
type Storage interface {
	UploadFile(ctx context.Context, name string, content []byte) (string, error)
	CreateCollectionMetadata(ctx context.Context, meta any) (string, error)
}

// Client talks to an IPFS node over its HTTP RPC API (POST /api/v0/add).
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient talks to the Kubo HTTP API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type addResp struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// UploadFile adds content to the node, pinned, and returns its CID.
func (c *Client) UploadFile(ctx context.Context, name string, content []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v0/add?pin=true", &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ipfs non-2xx: %s, body: %s", resp.Status, string(data))
	}

	var out addResp
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode ipfs resp: %w", err)
	}
	if out.Hash == "" {
		return "", errors.New("ipfs resp without hash")
	}
	return out.Hash, nil
}

// CreateCollectionMetadata stores meta as a JSON document.
func (c *Client) CreateCollectionMetadata(ctx context.Context, meta any) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return c.UploadFile(ctx, "metadata.json", data)
}

// Memory addresses content by its sha256 digest and keeps it in process.
type Memory struct {
	mu      sync.RWMutex
	content map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{content: make(map[string][]byte)}
}

func (m *Memory) UploadFile(ctx context.Context, name string, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	hash := "sha256-" + hex.EncodeToString(sum[:])

	m.mu.Lock()
	m.content[hash] = bytes.Clone(content)
	m.mu.Unlock()
	return hash, nil
}

func (m *Memory) CreateCollectionMetadata(ctx context.Context, meta any) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return m.UploadFile(ctx, "metadata.json", data)
}

// Cat returns previously stored content.
func (m *Memory) Cat(hash string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.content[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(data), nil
}
