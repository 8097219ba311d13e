package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/models"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func newTemplateFixture() (*designTemplateService, *mockDesignTemplateRepository, *mockStore) {
	repo := newMockTemplateRepo()
	store := newMockStore()
	svc := NewDesignTemplateService(repo, store, zap.NewNop()).(*designTemplateService)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, repo, store
}

func TestDesignTemplateService_Create(t *testing.T) {
	svc, repo, store := newTemplateFixture()

	tmpl, err := svc.Create(context.Background(), testUser, TemplateInput{
		Name:   " Board ",
		Layout: models.DesignLayout{HeaderText: "Q1", ShowBorders: true},
	}, &LogoUpload{FileName: "logo.png", Data: testPNG(t)})
	require.NoError(t, err)

	assert.Equal(t, "Board", tmpl.Name)
	assert.Equal(t, models.DefaultTableTheme, tmpl.Layout.TableTheme)
	assert.Equal(t, "user-1/1700000000000-logo.png", tmpl.LogoPath)
	assert.Equal(t, "http://storage.test/user-1/1700000000000-logo.png", tmpl.LogoURL)
	assert.Equal(t, "image/png", store.objects[tmpl.LogoPath].contentType)
	assert.Equal(t, 1, repo.creates)
}

func TestDesignTemplateService_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		in   TemplateInput
		logo *LogoUpload
	}{
		{name: "blank name", in: TemplateInput{Name: "  "}},
		{name: "markup in header", in: TemplateInput{Name: "ok", Layout: models.DesignLayout{HeaderText: "<script>x()</script>"}}},
		{name: "markup in name", in: TemplateInput{Name: "<script>x()</script>"}},
		{name: "unknown theme", in: TemplateInput{Name: "ok", Layout: models.DesignLayout{TableTheme: "Neon"}}},
		{name: "bad logo", in: TemplateInput{Name: "ok"}, logo: &LogoUpload{FileName: "x.png", Data: []byte("nope")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, store := newTemplateFixture()
			_, err := svc.Create(context.Background(), testUser, tt.in, tt.logo)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Zero(t, repo.creates)
			assert.Empty(t, store.objects)
		})
	}
}

func TestDesignTemplateService_CreateUploadFailureAborts(t *testing.T) {
	svc, repo, store := newTemplateFixture()
	store.putErr = errors.New("storage unavailable")

	_, err := svc.Create(context.Background(), testUser, TemplateInput{Name: "ok"}, &LogoUpload{FileName: "l.png", Data: testPNG(t)})
	require.Error(t, err)
	assert.Zero(t, repo.creates)
}

func TestDesignTemplateService_Update(t *testing.T) {
	svc, repo, store := newTemplateFixture()
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, testUser, TemplateInput{Name: "One"}, &LogoUpload{FileName: "a.png", Data: testPNG(t)})
	require.NoError(t, err)
	oldURL := tmpl.LogoURL

	name := "Two"
	updated, err := svc.Update(ctx, testUser, tmpl.ID, models.DesignTemplatePatch{Name: &name}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Two", updated.Name)
	assert.Equal(t, oldURL, updated.LogoURL)

	store.putErr = errors.New("down")
	_, err = svc.Update(ctx, testUser, tmpl.ID, models.DesignTemplatePatch{}, &LogoUpload{FileName: "b.png", Data: testPNG(t)})
	require.Error(t, err)
	assert.Equal(t, oldURL, repo.templates[tmpl.ID].LogoURL, "failed upload keeps the previous logo")

	blank := " "
	_, err = svc.Update(ctx, testUser, tmpl.ID, models.DesignTemplatePatch{Name: &blank}, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "Two", repo.templates[tmpl.ID].Name)

	_, err = svc.Update(ctx, testUser, uuid.New(), models.DesignTemplatePatch{Name: &name}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDesignTemplateService_ApplyAndLogo(t *testing.T) {
	svc, repo, _ := newTemplateFixture()
	ctx := context.Background()

	logo := testPNG(t)
	tmpl, err := svc.Create(ctx, testUser, TemplateInput{
		Name:   "Brand",
		Layout: models.DesignLayout{FooterText: "Confidential", AutoFitColumns: true},
	}, &LogoUpload{FileName: "brand.png", Data: logo})
	require.NoError(t, err)

	// A stored layout missing its theme gets the default when applied.
	repo.templates[tmpl.ID].Layout.TableTheme = ""
	applied, err := svc.Apply(ctx, testUser, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTableTheme, applied.Layout.TableTheme)
	assert.Equal(t, "Confidential", applied.Layout.FooterText)
	assert.True(t, applied.Layout.AutoFitColumns)
	assert.False(t, applied.Layout.ShowBorders)
	assert.True(t, strings.HasSuffix(applied.LogoURL, "brand.png"))

	data, err := svc.Logo(ctx, tmpl)
	require.NoError(t, err)
	assert.Equal(t, logo, data)

	none, err := svc.Logo(ctx, &models.DesignTemplate{})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDesignTemplateService_Delete(t *testing.T) {
	svc, _, _ := newTemplateFixture()
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, testUser, TemplateInput{Name: "gone"}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, testUser, tmpl.ID))
	_, err = svc.Get(ctx, testUser, tmpl.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
