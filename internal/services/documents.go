package services

import (
	"os"
	"path/filepath"

	"github.com/yungbote/studypilot-backend/internal/logger"
)

// DocumentService resolves uploaded filenames to extracted plain text for
// prompt context. It never fails a turn: any read or extraction problem is
// logged and yields an empty string for that document.
type DocumentService interface {
	ExtractText(filename string) string
	ContextFor(filenames []string) []DocumentContext
}

type documentService struct {
	log        *logger.Logger
	uploadsDir string
}

func NewDocumentService(uploadsDir string, baseLog *logger.Logger) DocumentService {
	return &documentService{
		log:        baseLog.With("service", "DocumentService"),
		uploadsDir: uploadsDir,
	}
}

func (ds *documentService) ExtractText(filename string) string {
	// Base() strips any path the caller smuggled in; uploads are flat.
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}

	data, err := os.ReadFile(filepath.Join(ds.uploadsDir, name))
	if err != nil {
		ds.log.Warn("Document read failed", "filename", name, "error", err)
		return ""
	}

	text, err := extractText(name, data)
	if err != nil {
		ds.log.Warn("Document text extraction failed", "filename", name, "error", err)
		return ""
	}
	return text
}

// ContextFor extracts every named document in caller-given order. Documents
// that yield no text are kept with empty text so the prompt builder can skip
// them without reordering.
func (ds *documentService) ContextFor(filenames []string) []DocumentContext {
	if len(filenames) == 0 {
		return nil
	}
	docs := make([]DocumentContext, 0, len(filenames))
	for _, filename := range filenames {
		docs = append(docs, DocumentContext{
			Name: filepath.Base(filename),
			Text: ds.ExtractText(filename),
		})
	}
	return docs
}
