package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MKPie/Fatality/internal/domain"
	"github.com/MKPie/Fatality/internal/vendorflow"
)

// resultExtensions are the file types the backend pipelines produce.
var resultExtensions = map[string]struct{}{
	".csv":  {},
	".xlsx": {},
	".xls":  {},
}

// ListLocalResults returns result files already saved in the downloads
// folder, newest first.
func (a *App) ListLocalResults() ([]domain.ResultFile, error) {
	dir, err := downloadsDir()
	if err != nil {
		return nil, err
	}
	return listResultFiles(dir)
}

// GetScrapeResults fetches the rows collected by the most recent
// scrape job for in-app preview.
func (a *App) GetScrapeResults() (vendorflow.ScrapeResults, error) {
	return a.backendClient().LastScrapeResults(context.Background())
}

// listResultFiles scans one directory for produced spreadsheets,
// skipping in-flight ".download" temp files.
func listResultFiles(dir string) ([]domain.ResultFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	files := make([]domain.ResultFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := resultExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, domain.ResultFile{
			Name:       name,
			Path:       filepath.Join(dir, name),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModifiedAt.After(files[j].ModifiedAt)
	})
	return files, nil
}
