package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultTag          = "latest"
	MediaTypeCheckpoint = "application/vnd.quill.checkpoint"
)

var ErrNotFound = errors.New("registry: checkpoint not found")

type Manifest struct {
	SchemaVersion int     `json:"schemaVersion"`
	Layers        []Layer `json:"layers"`
}

type Layer struct {
	MediaType string `json:"mediaType"`
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
}

// ParseRef splits "name[:tag]".
func ParseRef(ref string) (name, tag string) {
	name, tag, ok := strings.Cut(ref, ":")
	if !ok || tag == "" {
		tag = DefaultTag
	}
	return name, tag
}

func manifestPath(dir, name, tag string) string {
	return filepath.Join(dir, "manifests", name, tag)
}

func blobPath(dir, digest string) string {
	// "sha256:<hash>" is stored as "sha256-<hash>"
	return filepath.Join(dir, "blobs", strings.Replace(digest, ":", "-", 1))
}

// Resolve returns the checkpoint file for ref. An existing file path is
// returned as is; otherwise ref is looked up as name[:tag] in dir.
func Resolve(dir, ref string) (string, error) {
	if st, err := os.Stat(ref); err == nil && !st.IsDir() {
		return ref, nil
	}
	if dir == "" {
		return "", fmt.Errorf("%w: %s (no registry directory)", ErrNotFound, ref)
	}

	name, tag := ParseRef(ref)
	mp := manifestPath(dir, name, tag)
	data, err := os.ReadFile(mp)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s (no file and no manifest at %s)", ErrNotFound, ref, mp)
		}
		return "", err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("registry: manifest %s: %w", mp, err)
	}

	var digest string
	for _, l := range m.Layers {
		if l.MediaType == MediaTypeCheckpoint {
			digest = l.Digest
			break
		}
	}
	if digest == "" {
		return "", fmt.Errorf("registry: no checkpoint layer in %s", mp)
	}

	bp := blobPath(dir, digest)
	if _, err := os.Stat(bp); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: blob %s", ErrNotFound, bp)
	}
	return bp, nil
}

// Publish copies the checkpoint at src into dir as a content-addressed blob
// and points name:tag at it. It returns the blob digest.
func Publish(dir, ref, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Join(dir, "blobs"), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Join(dir, "blobs"), "partial-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), in)
	if err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	digest := "sha256:" + hex.EncodeToString(h.Sum(nil))
	if err := os.Rename(tmp.Name(), blobPath(dir, digest)); err != nil {
		return "", err
	}

	name, tag := ParseRef(ref)
	m := Manifest{
		SchemaVersion: 2,
		Layers:        []Layer{{MediaType: MediaTypeCheckpoint, Digest: digest, Size: size}},
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	mp := manifestPath(dir, name, tag)
	if err := os.MkdirAll(filepath.Dir(mp), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(mp, data, 0o644); err != nil {
		return "", err
	}
	return digest, nil
}
