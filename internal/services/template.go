package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	pdfContentType    = "application/pdf"
	contentPreviewLen = 500
)

var sectionPattern = regexp.MustCompile(`^(?:\d+[.)]\s*|#{1,3}\s+|[A-Z][A-Z\s]{2,}:?\s*$)`)

// ParseSections returns the lines of text that look like section headers:
// numbered items, markdown headings and all-caps labels.
func ParseSections(text string) []string {
	sections := []string{}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && sectionPattern.MatchString(trimmed) {
			sections = append(sections, trimmed)
		}
	}
	return sections
}

type UploadRequest struct {
	Name        string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// TemplatePreview is returned once, at upload time.
type TemplatePreview struct {
	ID             uint     `json:"id"`
	Name           string   `json:"name"`
	Filename       string   `json:"filename"`
	Pages          int      `json:"pages"`
	Sections       []string `json:"sections"`
	ContentPreview string   `json:"contentPreview"`
}

type TemplateService struct {
	db        *gorm.DB
	uploadDir string
	maxBytes  int64
	extract   func([]byte) (*PDFText, error)
}

func NewTemplateService(db *gorm.DB, uploadDir string, maxBytes int64) *TemplateService {
	return &TemplateService{
		db:        db,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		extract:   ExtractPDFText,
	}
}

func (s *TemplateService) Create(name, filename, content string) (*models.Template, error) {
	t := &models.Template{Name: name, Filename: filename, Content: content}
	if err := s.db.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) List() ([]models.TemplateSummary, error) {
	out := []models.TemplateSummary{}
	err := s.db.Model(&models.Template{}).
		Select("id", "name", "filename", "created_at").
		Order("created_at DESC").
		Order("id DESC").
		Scan(&out).Error
	return out, err
}

func (s *TemplateService) GetByID(id uint) (*models.Template, error) {
	var t models.Template
	if err := s.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("Template not found")
		}
		return nil, err
	}
	return &t, nil
}

// DeleteByID reports false when no row matched.
func (s *TemplateService) DeleteByID(id uint) (bool, error) {
	result := s.db.Delete(&models.Template{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Upload stores the PDF in the upload directory just long enough to extract
// its text. The file is removed whether or not extraction succeeds.
func (s *TemplateService) Upload(ctx context.Context, req UploadRequest) (*TemplatePreview, error) {
	if req.ContentType != pdfContentType {
		return nil, newValidationError("Only PDF files are allowed")
	}
	if s.maxBytes > 0 && req.Size > s.maxBytes {
		return nil, newValidationError("File too large. Maximum size is %d MB", s.maxBytes>>20)
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, uuid.New().String()+".pdf")
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warnf("[Template] Failed to remove upload %s: %v", path, err)
		}
	}()

	if err := s.writeUpload(path, req.Body); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	extracted, err := s.extract(content)
	if err != nil {
		logger.Warnf("[Template] PDF extraction failed for %s: %v", req.Filename, err)
		return nil, newValidationError("Could not read PDF file")
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return nil, newValidationError("Could not extract text from PDF. The file may be scanned/image-based.")
	}

	name := req.Name
	if name == "" {
		name = strings.Replace(req.Filename, ".pdf", "", 1)
	}

	t, err := s.Create(name, req.Filename, extracted.Text)
	if err != nil {
		return nil, err
	}
	logger.Infof("[Template] Stored template %d (%s), %d pages", t.ID, t.Name, extracted.Pages)

	return &TemplatePreview{
		ID:             t.ID,
		Name:           t.Name,
		Filename:       t.Filename,
		Pages:          extracted.Pages,
		Sections:       ParseSections(extracted.Text),
		ContentPreview: truncateRunes(extracted.Text, contentPreviewLen),
	}, nil
}

func (s *TemplateService) writeUpload(path string, body io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	src := body
	if s.maxBytes > 0 {
		src = io.LimitReader(body, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return fmt.Errorf("write upload file: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return newValidationError("File too large. Maximum size is %d MB", s.maxBytes>>20)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
