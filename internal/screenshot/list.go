package screenshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo is one screenshot entry returned by List.
type FileInfo struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Valid bool   `json:"valid"`
}

// Folder is one sub-directory returned by ListFolders.
type Folder struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// List returns the screenshots in dir sorted by name. Valid reports whether
// the file is within MaxFileSize. Nothing is dispatched.
func List(dir string) ([]FileInfo, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", dir, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !IsCandidate(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, FileInfo{
			Path:  filepath.Join(absDir, entry.Name()),
			Name:  entry.Name(),
			Size:  info.Size(),
			Valid: info.Size() <= MaxFileSize,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ListFolders returns the visible sub-directories of dir sorted by name.
func ListFolders(dir string) ([]Folder, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", dir, err)
	}

	folders := make([]Folder, 0)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		folders = append(folders, Folder{
			Path: filepath.Join(absDir, entry.Name()),
			Name: entry.Name(),
		})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}
