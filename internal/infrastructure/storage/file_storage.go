// Package storage holds the document blob stores.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
)

// LocalDocumentStore implements port.DocumentStore on the local filesystem
type LocalDocumentStore struct {
	baseDir string
	now     func() time.Time
	logger  *zap.Logger
}

// NewLocalDocumentStore creates the base directory and returns a store rooted at it
func NewLocalDocumentStore(baseDir string, logger *zap.Logger) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &LocalDocumentStore{
		baseDir: baseDir,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}, nil
}

// Store writes content under a fresh key
func (s *LocalDocumentStore) Store(ctx context.Context, claimID string, content []byte, meta entity.DocumentMeta) (entity.DocumentRef, error) {
	if err := ctx.Err(); err != nil {
		return entity.DocumentRef{}, err
	}

	id := newDocumentID()
	key := documentKey(claimID, id, meta.FileName)
	fullPath := s.fullPath(key)
	if err := s.validatePath(fullPath); err != nil {
		return entity.DocumentRef{}, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return entity.DocumentRef{}, fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write document",
			zap.String("path", fullPath),
			zap.Error(err))
		return entity.DocumentRef{}, fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Debug("Document stored",
		zap.String("claim_id", claimID),
		zap.String("key", key),
		zap.Int("size", len(content)))

	return entity.DocumentRef{
		ID:          id,
		Category:    meta.Category,
		FileName:    meta.FileName,
		ContentType: meta.ContentType,
		Size:        int64(len(content)),
		StorageKey:  key,
		UploadedBy:  meta.UploadedBy,
		UploadedAt:  s.now(),
	}, nil
}

// Delete removes the blob of ref. A missing file is not an error.
func (s *LocalDocumentStore) Delete(ctx context.Context, ref entity.DocumentRef) error {
	fullPath := s.fullPath(ref.StorageKey)
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete document",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.logger.Debug("Document deleted", zap.String("key", ref.StorageKey))
	return nil
}

// Ping checks the base directory is still there
func (s *LocalDocumentStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.baseDir)
	if err != nil {
		return fmt.Errorf("document directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("document path %s is not a directory", s.baseDir)
	}
	return nil
}

func (s *LocalDocumentStore) fullPath(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

// validatePath checks that the path stays within baseDir
func (s *LocalDocumentStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

var (
	_ port.DocumentStore = (*LocalDocumentStore)(nil)
	_ port.HealthChecker = (*LocalDocumentStore)(nil)
)
