package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoDatasetFiles is returned when a directory holds no spreadsheet.
var ErrNoDatasetFiles = errors.New("no dataset files found")

// datasetExtensions are the file types a dataset can be loaded from.
var datasetExtensions = map[string]bool{
	".xlsx": true,
	".csv":  true,
}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Discovery finds dataset files relative to a base directory.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindDatasets lists the .xlsx and .csv files in dir, oldest first. Office
// lock files (~$name.xlsx) are skipped.
func (d *Discovery) FindDatasets(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") || !datasetExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}

// ResolveDataset turns a configured dataset path into a file. A file is
// returned as is; a directory resolves to its most recently modified
// spreadsheet.
func (d *Discovery) ResolveDataset(path string) (string, error) {
	fullPath := d.resolve(path)
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", fmt.Errorf("dataset path %s: %w", fullPath, err)
	}
	if !info.IsDir() {
		return fullPath, nil
	}

	files, err := d.FindDatasets(fullPath)
	if err != nil {
		return "", err
	}
	latest, ok := GetLatestFile(files)
	if !ok {
		return "", fmt.Errorf("%w in %s", ErrNoDatasetFiles, fullPath)
	}
	return latest.Path, nil
}
