package agent

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// artifactPattern matches relative artifact references the handlers embed
// in their final answers. The rule is a fixed collaborator contract; do not
// widen it.
var artifactPattern = regexp.MustCompile(`exports[\\/][\w\-]+\.(?:png|csv)`)

// ArtifactStore resolves a relative artifact reference to a real file.
type ArtifactStore interface {
	Resolve(rel string) (string, bool)
}

// DirArtifactStore resolves references against a base directory that
// contains the exports/ folder.
type DirArtifactStore struct {
	baseDir string
}

// NewDirArtifactStore creates an artifact store rooted at baseDir.
func NewDirArtifactStore(baseDir string) *DirArtifactStore {
	return &DirArtifactStore{baseDir: baseDir}
}

// Resolve returns the absolute path for rel if the file exists.
func (s *DirArtifactStore) Resolve(rel string) (string, bool) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// scanArtifacts extracts artifact references from the final answer text and
// keeps the ones that exist in the store, preserving first-seen order.
func scanArtifacts(text string, store ArtifactStore) []string {
	if store == nil {
		return nil
	}

	var paths []string
	seen := map[string]bool{}

	for _, match := range artifactPattern.FindAllString(text, -1) {
		rel := strings.ReplaceAll(match, `\`, "/")
		if seen[rel] {
			continue
		}
		seen[rel] = true
		if path, ok := store.Resolve(rel); ok {
			paths = append(paths, path)
		}
	}
	return paths
}
