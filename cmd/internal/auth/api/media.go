package authapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// MediaUploader turns a staged local file into a durable URL. The staged
// file belongs to the caller; implementations must not delete it.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (url string, err error)
}

// MediaRemover is implemented by uploaders that can delete a previously
// uploaded file again. Registration uses it to clean up when the account
// write fails after the files already landed.
type MediaRemover interface {
	Remove(ctx context.Context, url string) error
}

// LocalUploader is the default uploader: it copies staged files into Dir
// and serves them under BaseURL. Cloud-backed uploaders replace it in
// production wiring.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

// Upload copies the staged file into the uploader's directory under a
// random name, preserving the extension.
func (u LocalUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(u.Dir) == "" {
		return "", errors.New("media: upload dir not configured")
	}
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", fmt.Errorf("media: %w", err)
	}

	name, err := randomFileName(filepath.Ext(localPath))
	if err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("media: %w", err)
	}
	defer func() { _ = src.Close() }()

	dstPath := filepath.Join(u.Dir, name)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("media: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("media: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("media: %w", err)
	}

	base := strings.TrimRight(u.BaseURL, "/")
	if base == "" {
		base = "/media"
	}
	return base + "/" + name, nil
}

// Remove deletes a file previously returned by Upload. Only the last URL
// segment is honored; anything that does not look like one of our
// generated names is rejected.
func (u LocalUploader) Remove(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(u.Dir) == "" {
		return errors.New("media: upload dir not configured")
	}
	name := url[strings.LastIndex(url, "/")+1:]
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("media: refusing to remove %q", url)
	}
	return os.Remove(filepath.Join(u.Dir, name))
}

// stageUpload writes a multipart file to a temp file in dir and returns
// its path. The caller removes the file when done.
func stageUpload(fh *multipart.FileHeader, dir string, maxBytes int64) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	ext := sanitizeExt(filepath.Ext(fh.Filename))
	tmp, err := os.CreateTemp(dir, "streamhub-upload-*"+ext)
	if err != nil {
		return "", err
	}

	n, err := io.Copy(tmp, io.LimitReader(src, maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxBytes {
		err = errors.New("upload too large")
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// sanitizeExt keeps only short, plain extensions; anything else is
// dropped, including a bare dot.
func sanitizeExt(ext string) string {
	if len(ext) < 2 || len(ext) > 8 || ext[0] != '.' {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return strings.ToLower(ext)
}

func randomFileName(ext string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + sanitizeExt(ext), nil
}
