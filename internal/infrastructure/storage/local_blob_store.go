// Package storage holds the receipt blob stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
)

// LocalBlobStore implements port.BlobStore on the local filesystem.
// References are keys relative to baseDir.
type LocalBlobStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalBlobStore creates a new LocalBlobStore
func NewLocalBlobStore(baseDir string, logger *zap.Logger) port.BlobStore {
	return &LocalBlobStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Put writes content under key and returns key as the reference
func (s *LocalBlobStore) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write blob",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	s.logger.Debug("Blob stored",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("size", len(content)))

	return key, nil
}

// Get reads the blob behind ref
func (s *LocalBlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Error("Failed to read blob",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return content, nil
}

// Delete removes the blob behind ref. Missing blobs are not an error.
func (s *LocalBlobStore) Delete(ctx context.Context, ref string) error {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("Failed to delete blob",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// resolve maps a key to a path inside baseDir and refuses anything that escapes it
func (s *LocalBlobStore) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("blob key is empty")
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absBase, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", key)
	}
	return absPath, nil
}
