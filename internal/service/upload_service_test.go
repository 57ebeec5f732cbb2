package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"controltower/internal/apperr"
	"controltower/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 上传服务直接吃配置字段装配，这里对齐两边的类型
func TestUploadServiceFromConfig(t *testing.T) {
	cfg := config.UploadConfig{Dir: t.TempDir(), MaxSizeMB: 2}
	svc := NewUploadService(cfg.Dir, cfg.MaxSizeMB)

	content := strings.Repeat("x", 16)
	_, err := svc.Save(context.Background(), "a.png", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
}

func TestUploadSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(dir, 5)
	ctx := context.Background()

	content := "logo bytes"
	result, err := svc.Save(ctx, "logo.png", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(result.Key, "_logo.png"))
	assert.Equal(t, "/public/"+result.Key, result.URL)
	assert.Equal(t, int64(len(content)), result.Size)

	data, err := os.ReadFile(filepath.Join(dir, result.Key))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	require.NoError(t, svc.Delete(ctx, result.Key))
	_, err = os.Stat(filepath.Join(dir, result.Key))
	assert.True(t, os.IsNotExist(err))
}

func TestUploadKeysDoNotCollide(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 5)
	ctx := context.Background()

	a, err := svc.Save(ctx, "logo.png", strings.NewReader("a"), 1)
	require.NoError(t, err)
	b, err := svc.Save(ctx, "logo.png", strings.NewReader("b"), 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key)
}

func TestUploadRejectsTraversal(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 5)
	ctx := context.Background()

	for _, name := range []string{"../etc/passwd", "a/../../b", `..\boot.ini`, "dir/file.png", ""} {
		_, err := svc.Save(ctx, name, strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, apperr.ErrValidation, "name=%q", name)

		err = svc.Delete(ctx, name)
		assert.ErrorIs(t, err, apperr.ErrValidation, "name=%q", name)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 1)

	_, err := svc.Save(context.Background(), "big.bin", strings.NewReader("x"), 2*1024*1024)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteMissingFile(t *testing.T) {
	svc := NewUploadService(t.TempDir(), 5)

	err := svc.Delete(context.Background(), "nope.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
