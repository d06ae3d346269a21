package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services/storage"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// materialTypes is the upload allow-list for course materials
var materialTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
	"application/pdf": true,
	mimeDOCX:          true,
	mimePPTX:          true,
	"image/jpeg":      true,
	"image/png":       true,
}

var thumbnailTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var mimeAliases = map[string]string{
	"image/jpg": "image/jpeg",
	"video/mov": "video/quicktime",
}

// MaterialService validates, stores and catalogues course materials
type MaterialService struct {
	db       *gorm.DB
	courses  *CourseService
	files    storage.FileStore
	maxBytes int64
	log      *logger.Logger
}

// NewMaterialService creates a new material service
func NewMaterialService(db *gorm.DB, courses *CourseService, files storage.FileStore, maxBytes int64, log *logger.Logger) *MaterialService {
	return &MaterialService{
		db:       db,
		courses:  courses,
		files:    files,
		maxBytes: maxBytes,
		log:      log,
	}
}

// UploadMaterialInput describes one uploaded material file
type UploadMaterialInput struct {
	CourseID   uint
	Field      string
	Title      string
	Type       model.MaterialType
	OrderIndex int
	File       *multipart.FileHeader
}

// UpdateMaterialInput is a partial material update
type UpdateMaterialInput struct {
	Title      *string
	Type       *model.MaterialType
	OrderIndex *int
}

// CanonicalMIME normalises a declared content type: parameters are dropped,
// known aliases resolved and the name mapped onto mimetype's canonical form
func CanonicalMIME(declared string) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = declared
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if alias, ok := mimeAliases[mediaType]; ok {
		return alias
	}
	if m := mimetype.Lookup(mediaType); m != nil {
		if canonical, _, err := mime.ParseMediaType(m.String()); err == nil {
			return canonical
		}
	}
	return mediaType
}

// AllowedMaterialMIME reports whether a canonical type may be uploaded as material
func AllowedMaterialMIME(contentType string) bool {
	return materialTypes[contentType]
}

// DefaultMaterialType derives the display type from a content type
func DefaultMaterialType(contentType string) model.MaterialType {
	if strings.HasPrefix(contentType, "video/") {
		return model.MaterialTypeVideo
	}
	return model.MaterialTypePDF
}

// extensionFor keeps the original extension or derives one from the type
func extensionFor(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	if m := mimetype.Lookup(contentType); m != nil {
		return m.Extension()
	}
	return ""
}

// resolveMIME canonicalises the declared type. A missing or generic type is
// sniffed from the file content.
func resolveMIME(header *multipart.FileHeader) (string, error) {
	declared := CanonicalMIME(header.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}

	f, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}
	return CanonicalMIME(detected.String()), nil
}

// store validates an upload against allowed and writes it to the file store
func (s *MaterialService) store(ctx context.Context, field string, header *multipart.FileHeader, allowed map[string]bool) (key, url, contentType string, err error) {
	if header == nil {
		return "", "", "", ErrInvalidFileType
	}
	if header.Size > s.maxBytes {
		return "", "", "", ErrFileTooLarge
	}

	contentType, err = resolveMIME(header)
	if err != nil {
		return "", "", "", err
	}
	if !allowed[contentType] {
		return "", "", "", ErrInvalidFileType
	}

	f, err := header.Open()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	key = storage.GenerateKey(field, extensionFor(header.Filename, contentType), time.Now())
	url, err = s.files.Put(ctx, key, io.LimitReader(f, s.maxBytes), header.Size, contentType)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to store file: %w", err)
	}
	return key, url, contentType, nil
}

// List returns a course's materials in display order
func (s *MaterialService) List(ctx context.Context, actor Actor, courseID uint) ([]model.CourseMaterial, error) {
	if _, err := s.courses.Authorize(ctx, courseID, actor); err != nil {
		return nil, err
	}

	var materials []model.CourseMaterial
	if err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("order_index ASC, id ASC").
		Find(&materials).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch materials: %w", err)
	}
	return materials, nil
}

// Upload validates and stores a file, then records it as a course material.
// Nothing is written when validation fails.
func (s *MaterialService) Upload(ctx context.Context, actor Actor, input UploadMaterialInput) (*model.CourseMaterial, error) {
	if _, err := s.courses.Authorize(ctx, input.CourseID, actor); err != nil {
		return nil, err
	}
	if input.Type != "" && !input.Type.Valid() {
		return nil, ErrInvalidFileType
	}

	field := input.Field
	if field == "" {
		field = "file"
	}
	key, url, contentType, err := s.store(ctx, field, input.File, materialTypes)
	if err != nil {
		return nil, err
	}

	material := &model.CourseMaterial{
		CourseID:   input.CourseID,
		Title:      strings.TrimSpace(input.Title),
		Type:       input.Type,
		FileURL:    url,
		FileSize:   input.File.Size,
		MimeType:   contentType,
		OrderIndex: input.OrderIndex,
		StorageKey: key,
	}
	if material.Title == "" {
		material.Title = input.File.Filename
	}
	if material.Type == "" {
		material.Type = DefaultMaterialType(contentType)
	}

	if err := s.db.WithContext(ctx).Create(material).Error; err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			s.log.Warn("failed to remove orphaned upload", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create material: %w", err)
	}
	return material, nil
}

// UploadThumbnail stores a course cover image and returns its URL
func (s *MaterialService) UploadThumbnail(ctx context.Context, header *multipart.FileHeader) (string, error) {
	_, url, _, err := s.store(ctx, "thumbnail", header, thumbnailTypes)
	return url, err
}

func (s *MaterialService) authorizeMaterial(ctx context.Context, actor Actor, id uint) (*model.CourseMaterial, error) {
	var material model.CourseMaterial
	if err := s.db.WithContext(ctx).First(&material, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("failed to fetch material: %w", err)
	}
	if _, err := s.courses.Authorize(ctx, material.CourseID, actor); err != nil {
		return nil, err
	}
	return &material, nil
}

// Update edits a material's title, type or position
func (s *MaterialService) Update(ctx context.Context, actor Actor, id uint, input UpdateMaterialInput) (*model.CourseMaterial, error) {
	material, err := s.authorizeMaterial(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrMaterialTitleRequired
		}
		updates["title"] = title
	}
	if input.Type != nil {
		updates["type"] = *input.Type
	}
	if input.OrderIndex != nil {
		updates["order_index"] = *input.OrderIndex
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(material).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update material: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).First(material, id).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch material: %w", err)
	}
	return material, nil
}

// Delete removes a material row and the activity that references it, then
// its stored file. A failed file
// removal is logged and left for the orphan sweep.
func (s *MaterialService) Delete(ctx context.Context, actor Actor, id uint) error {
	material, err := s.authorizeMaterial(ctx, actor, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("material_id = ?", id).Delete(&model.StudentActivity{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.CourseMaterial{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}

	if material.StorageKey != "" {
		if err := s.files.Delete(ctx, material.StorageKey); err != nil {
			s.log.Warn("failed to remove material file", "key", material.StorageKey, "materialId", id, "error", err)
		}
	}
	return nil
}
