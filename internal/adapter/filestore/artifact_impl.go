package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
)

const screenshotDir = "screenshots"

// ArtifactRepoImpl stores screenshots and derived files inside run snapshot directories.
type ArtifactRepoImpl struct {
	root string
}

// NewArtifactRepo creates a new instance of ArtifactRepoImpl.
func NewArtifactRepo(root string) *ArtifactRepoImpl {
	return &ArtifactRepoImpl{root: root}
}

// ScreenshotPath names images after domain, page type and viewport, e.g.
// screenshots/galaxus.de_product_detail_desktop.webp.
func (r *ArtifactRepoImpl) ScreenshotPath(domain, pageType, viewport string, kind repository.ArtifactKind) string {
	base := fmt.Sprintf("%s_%s_%s", domain, strings.ReplaceAll(pageType, " ", "_"), strings.ToLower(viewport))
	if kind == repository.ArtifactThumbnail {
		return screenshotDir + "/" + base + "_thumb.jpeg"
	}
	return screenshotDir + "/" + base + ".webp"
}

// SaveScreenshot writes an image and returns its snapshot-relative path.
func (r *ArtifactRepoImpl) SaveScreenshot(ctx context.Context, date entity.RunDate, domain, pageType, viewport string, kind repository.ArtifactKind, data []byte) (string, error) {
	rel := r.ScreenshotPath(domain, pageType, viewport, kind)
	if err := writeFileAtomic(filepath.Join(r.root, date.String(), filepath.FromSlash(rel)), data); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return rel, nil
}

// Exists reports whether a snapshot-relative file exists.
func (r *ArtifactRepoImpl) Exists(ctx context.Context, date entity.RunDate, relPath string) bool {
	_, err := os.Stat(filepath.Join(r.root, date.String(), filepath.FromSlash(relPath)))
	return err == nil
}

// WriteFile writes a derived file. An empty date targets the root directory.
func (r *ArtifactRepoImpl) WriteFile(ctx context.Context, date entity.RunDate, name string, data []byte) error {
	return writeFileAtomic(filepath.Join(r.root, date.String(), filepath.FromSlash(name)), data)
}
