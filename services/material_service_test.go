package services

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/eduhub/marketplace-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func TestCanonicalMIME(t *testing.T) {
	tests := []struct {
		declared string
		want     string
	}{
		{"application/pdf", "application/pdf"},
		{"Application/PDF; charset=binary", "application/pdf"},
		{"image/jpg", "image/jpeg"},
		{"video/mov", "video/quicktime"},
		{"image/png", "image/png"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalMIME(tt.declared), tt.declared)
	}
}

func TestDefaultMaterialType(t *testing.T) {
	assert.Equal(t, model.MaterialTypeVideo, DefaultMaterialType("video/mp4"))
	assert.Equal(t, model.MaterialTypeVideo, DefaultMaterialType("video/quicktime"))
	assert.Equal(t, model.MaterialTypePDF, DefaultMaterialType("application/pdf"))
	assert.Equal(t, model.MaterialTypePDF, DefaultMaterialType("image/png"))
}

func TestAllowedMaterialMIME(t *testing.T) {
	assert.True(t, AllowedMaterialMIME("application/pdf"))
	assert.True(t, AllowedMaterialMIME(mimeDOCX))
	assert.False(t, AllowedMaterialMIME("text/plain"))
	assert.False(t, AllowedMaterialMIME("application/zip"))
}

func uploadDirEntries(t *testing.T, env *testEnv) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(env.files.Dir())
	require.NoError(t, err)
	return entries
}

func TestUploadMaterial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	course := env.course(t, teacher, "Go", 0, model.CourseStatusDraft)

	material, err := env.materials.Upload(ctx, teacher, UploadMaterialInput{
		CourseID:   course.ID,
		OrderIndex: 2,
		File:       fileHeader(t, "intro.pdf", "application/pdf", samplePDF),
	})
	require.NoError(t, err)

	assert.Equal(t, "intro.pdf", material.Title)
	assert.Equal(t, model.MaterialTypePDF, material.Type)
	assert.Equal(t, "application/pdf", material.MimeType)
	assert.Equal(t, int64(len(samplePDF)), material.FileSize)
	assert.Equal(t, 2, material.OrderIndex)
	assert.Equal(t, "/uploads/"+material.StorageKey, material.FileURL)
	assert.Regexp(t, `^file-\d+-\d+\.pdf$`, material.StorageKey)

	stored, err := os.ReadFile(env.files.Dir() + "/" + material.StorageKey)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(samplePDF, stored))

	materials, err := env.materials.List(ctx, teacher, course.ID)
	require.NoError(t, err)
	assert.Len(t, materials, 1)
}

func TestUploadMaterialSniffsGenericType(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	course := env.course(t, teacher, "Go", 0, model.CourseStatusDraft)

	material, err := env.materials.Upload(context.Background(), teacher, UploadMaterialInput{
		CourseID: course.ID,
		Title:    "Slides",
		File:     fileHeader(t, "slides", "application/octet-stream", samplePDF),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", material.MimeType)
	assert.Equal(t, "Slides", material.Title)
	assert.Regexp(t, `\.pdf$`, material.StorageKey)
}

func TestUploadMaterialRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	other := env.user(t, "t2@example.com", model.RoleTeacher)
	course := env.course(t, teacher, "Go", 0, model.CourseStatusDraft)

	_, err := env.materials.Upload(ctx, teacher, UploadMaterialInput{
		CourseID: course.ID,
		File:     fileHeader(t, "notes.txt", "text/plain", []byte("plain notes")),
	})
	assert.ErrorIs(t, err, ErrInvalidFileType)

	big := bytes.Repeat([]byte("a"), testMaxUpload+1)
	_, err = env.materials.Upload(ctx, teacher, UploadMaterialInput{
		CourseID: course.ID,
		File:     fileHeader(t, "big.pdf", "application/pdf", big),
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = env.materials.Upload(ctx, other, UploadMaterialInput{
		CourseID: course.ID,
		File:     fileHeader(t, "intro.pdf", "application/pdf", samplePDF),
	})
	assert.ErrorIs(t, err, ErrNotCourseOwner)

	_, err = env.materials.Upload(ctx, teacher, UploadMaterialInput{
		CourseID: 999,
		File:     fileHeader(t, "intro.pdf", "application/pdf", samplePDF),
	})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	var count int64
	require.NoError(t, env.db.Model(&model.CourseMaterial{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, uploadDirEntries(t, env))
}

func TestMaterialUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.user(t, "t@example.com", model.RoleTeacher)
	other := env.user(t, "t2@example.com", model.RoleTeacher)
	course := env.course(t, teacher, "Go", 0, model.CourseStatusDraft)

	material, err := env.materials.Upload(ctx, teacher, UploadMaterialInput{
		CourseID: course.ID,
		File:     fileHeader(t, "intro.pdf", "application/pdf", samplePDF),
	})
	require.NoError(t, err)

	title := "Week 1"
	kind := model.MaterialTypeAssignment
	order := 5
	updated, err := env.materials.Update(ctx, teacher, material.ID, UpdateMaterialInput{Title: &title, Type: &kind, OrderIndex: &order})
	require.NoError(t, err)
	assert.Equal(t, "Week 1", updated.Title)
	assert.Equal(t, model.MaterialTypeAssignment, updated.Type)
	assert.Equal(t, 5, updated.OrderIndex)

	blank := "   "
	_, err = env.materials.Update(ctx, teacher, material.ID, UpdateMaterialInput{Title: &blank})
	assert.ErrorIs(t, err, ErrMaterialTitleRequired)
	var stored model.CourseMaterial
	require.NoError(t, env.db.First(&stored, material.ID).Error)
	assert.Equal(t, "Week 1", stored.Title)

	assert.ErrorIs(t, env.materials.Delete(ctx, other, material.ID), ErrNotCourseOwner)
	require.NoError(t, env.materials.Delete(ctx, teacher, material.ID))
	assert.ErrorIs(t, env.materials.Delete(ctx, teacher, material.ID), ErrMaterialNotFound)
	assert.Empty(t, uploadDirEntries(t, env))
}

func TestUploadThumbnail(t *testing.T) {
	env := newTestEnv(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	url, err := env.materials.UploadThumbnail(context.Background(), fileHeader(t, "cover.png", "image/png", png))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/thumbnail-\d+-\d+\.png$`, url)

	_, err = env.materials.UploadThumbnail(context.Background(), fileHeader(t, "cover.pdf", "application/pdf", samplePDF))
	assert.ErrorIs(t, err, ErrInvalidFileType)
}
