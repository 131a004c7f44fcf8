package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/navigation/internal/importer"
	"github.com/sakif/navigation/internal/model"
	"github.com/sakif/navigation/internal/repository"
)

// ImportResult counts what an import did.
type ImportResult struct {
	Categories int // sections processed
	Created    int
	Skipped    int // already filed under the same category
	Invalid    int // failed validation, not written
}

// ImportService bulk-loads websites parsed from a navigation page. It runs
// as a trusted operator tool, so there is no caller: every website is
// written as a public, ownerless entry of its section's category.
type ImportService struct {
	categories repository.CategoryRepository
	websites   repository.WebsiteRepository
	tx         repository.TxManager
	logger     *slog.Logger
}

func NewImportService(
	categories repository.CategoryRepository,
	websites repository.WebsiteRepository,
	tx repository.TxManager,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{categories: categories, websites: websites, tx: tx, logger: logger}
}

// Import writes sections one transaction each. Missing categories are
// created; a (category, url) pair that already exists is skipped, so
// running the same import twice adds nothing. A storage error stops the
// import; sections committed before it stay.
func (s *ImportService) Import(ctx context.Context, sections []importer.Section) (ImportResult, error) {
	var result ImportResult

	for _, section := range sections {
		name, err := requireText("name", "category name", section.Category, MaxCategoryNameLength)
		if err != nil {
			s.logger.Warn("skipping section",
				slog.String("category", section.Category),
				slog.String("error", err.Error()),
			)
			result.Invalid += len(section.Sites)
			continue
		}

		var sr ImportResult
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			sr = ImportResult{}
			category, err := s.categories.GetOrCreate(ctx, model.Category{Name: name})
			if err != nil {
				return fmt.Errorf("ensuring category %q: %w", name, err)
			}
			for _, site := range section.Sites {
				if err := s.importSite(ctx, category.ID, site, &sr); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("importing section %q: %w", name, err)
		}

		result.Categories++
		result.Created += sr.Created
		result.Skipped += sr.Skipped
		result.Invalid += sr.Invalid

		s.logger.Info("section imported",
			slog.String("category", name),
			slog.Int("created", sr.Created),
			slog.Int("skipped", sr.Skipped),
			slog.Int("invalid", sr.Invalid),
		)
	}

	return result, nil
}

func (s *ImportService) importSite(ctx context.Context, categoryID int64, site importer.Site, r *ImportResult) error {
	website := &model.Website{}
	if err := applyWebsiteFields(website, &site.Title, &site.URL, &site.Description, &site.Icon); err != nil {
		s.logger.Warn("skipping website",
			slog.String("title", site.Title),
			slog.String("error", err.Error()),
		)
		r.Invalid++
		return nil
	}

	exists, err := s.websites.ExistsInCategory(ctx, categoryID, website.URL)
	if err != nil {
		return fmt.Errorf("checking %q: %w", website.URL, err)
	}
	if exists {
		r.Skipped++
		return nil
	}

	website.CategoryID = &categoryID
	website.IsPublic = true
	if err := s.websites.Create(ctx, website); err != nil {
		return fmt.Errorf("creating %q: %w", website.URL, err)
	}
	r.Created++
	return nil
}
