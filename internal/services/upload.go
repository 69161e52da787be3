package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/repos"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// MaxUploadBytes caps one uploaded file at 16MB.
const MaxUploadBytes = 16 << 20

var allowedUploadExtensions = map[string]struct{}{
	".txt":  {},
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".doc":  {},
	".docx": {},
	".ppt":  {},
	".pptx": {},
	".xls":  {},
	".xlsx": {},
}

// ErrUploadTypeNotAllowed is returned for filenames outside the extension
// allow-list; handlers translate it to a 400.
var ErrUploadTypeNotAllowed = fmt.Errorf("file type not allowed")

// ErrUploadTooLarge is returned when a file exceeds MaxUploadBytes.
var ErrUploadTooLarge = fmt.Errorf("file exceeds %d bytes", MaxUploadBytes)

// UploadService stores reference documents on local disk and catalogs them
// in the database. Stored names are sanitized and made unique so concurrent
// uploads of the same filename never collide.
type UploadService interface {
	Save(ctx context.Context, originalName, contentType string, r io.Reader) (*types.UploadedFile, error)
	List(ctx context.Context) ([]*types.UploadedFile, error)
	Delete(ctx context.Context, storedName string) (bool, error)
	Dir() string
}

type uploadService struct {
	log   *logger.Logger
	files repos.UploadedFileRepo
	dir   string
}

func NewUploadService(dir string, files repos.UploadedFileRepo, baseLog *logger.Logger) (UploadService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &uploadService{
		log:   baseLog.With("service", "UploadService"),
		files: files,
		dir:   dir,
	}, nil
}

func (us *uploadService) Dir() string {
	return us.dir
}

func (us *uploadService) Save(ctx context.Context, originalName, contentType string, r io.Reader) (*types.UploadedFile, error) {
	if !AllowedUploadName(originalName) {
		return nil, ErrUploadTypeNotAllowed
	}

	storedName := uniqueStoredName(originalName)
	path := filepath.Join(us.dir, storedName)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(r, MaxUploadBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > MaxUploadBytes {
		err = ErrUploadTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	file := &types.UploadedFile{
		StoredName:   storedName,
		OriginalName: originalName,
		Size:         written,
		ContentType:  contentType,
	}
	if _, err := us.files.Create(ctx, nil, file); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("catalog upload: %w", err)
	}

	us.log.Info("Stored upload", "filename", storedName, "original_name", originalName, "size", written)
	return file, nil
}

func (us *uploadService) List(ctx context.Context) ([]*types.UploadedFile, error) {
	return us.files.List(ctx, nil)
}

// Delete removes the file and its catalog row. Returns false when neither
// existed.
func (us *uploadService) Delete(ctx context.Context, storedName string) (bool, error) {
	name := filepath.Base(storedName)

	rowDeleted, err := us.files.DeleteByStoredName(ctx, nil, name)
	if err != nil {
		return false, err
	}

	fileRemoved := false
	if err := os.Remove(filepath.Join(us.dir, name)); err == nil {
		fileRemoved = true
	} else if !os.IsNotExist(err) {
		return rowDeleted, err
	}

	return rowDeleted || fileRemoved, nil
}

// AllowedUploadName reports whether the filename carries an accepted
// extension.
func AllowedUploadName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := allowedUploadExtensions[ext]
	return ok
}

// uniqueStoredName sanitizes the original name and appends a random suffix
// before the extension.
func uniqueStoredName(originalName string) string {
	base := sanitizeFilename(originalName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "upload"
	}
	return fmt.Sprintf("%s_%s%s", stem, uuid.NewString(), strings.ToLower(ext))
}

// sanitizeFilename strips path components and reduces the name to a safe
// character set.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
