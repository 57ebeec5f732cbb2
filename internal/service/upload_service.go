package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"controltower/internal/apperr"

	"github.com/google/uuid"
)

// UploadService 静态资源上传（白标 logo 等），落本地公共目录
type UploadService struct {
	dir      string
	maxBytes int64
}

func NewUploadService(dir string, maxSizeMB int) *UploadService {
	return &UploadService{
		dir:      dir,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

// UploadResult 上传结果
type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Save 保存上传文件
//
// key 带随机前缀：同名文件互不覆盖，也猜不到别人的文件名
func (s *UploadService) Save(_ context.Context, filename string, r io.Reader, size int64) (*UploadResult, error) {
	if size > s.maxBytes {
		return nil, apperr.Validationf("file exceeds the %d MB limit", s.maxBytes/(1024*1024))
	}
	name, err := sanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}

	key := uuid.NewString()[:8] + "_" + name
	dst, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if written > s.maxBytes {
		_ = os.Remove(filepath.Join(s.dir, key))
		return nil, apperr.Validationf("file exceeds the %d MB limit", s.maxBytes/(1024*1024))
	}

	return &UploadResult{
		Key:  key,
		URL:  "/public/" + key,
		Size: written,
	}, nil
}

// Delete 删除已上传文件
func (s *UploadService) Delete(_ context.Context, key string) error {
	name, err := sanitizeFilename(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return apperr.NotFoundf("file %s not found", key)
	}
	return err
}

// sanitizeFilename 拒绝路径穿越，只留基础文件名
func sanitizeFilename(name string) (string, error) {
	if name == "" {
		return "", apperr.Validationf("filename is required")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", apperr.Validationf("invalid filename")
	}
	base := filepath.Base(name)
	if base == "." || base == "" {
		return "", apperr.Validationf("invalid filename")
	}
	return base, nil
}
