// Package resolve maps loosely-typed cross-document references to concrete
// documents and builds relationship views over a full vault scan. Dangling
// references surface as warnings on relationship queries; only the single-
// reference Resolve entry point fails hard.
package resolve

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/vault"
)

// Resolve returns the vault-relative path a reference points to, joined
// against baseDir per the reference's shape. The stored shape is never
// normalised; only the resulting path is. Resolution succeeds only when the
// file exists.
func Resolve(ref models.Reference, baseDir string, store vault.Provider) (string, error) {
	var p string
	switch ref.Shape() {
	case models.RefLink:
		p = path.Join(baseDir, ref.Target()+".md")
	case models.RefPath, models.RefFile:
		p = path.Join(baseDir, ref.Target())
	}
	if !store.Exists(p) {
		return "", fmt.Errorf("%w: %s", apperr.ErrUnresolvedReference, ref.String())
	}
	return p, nil
}

// refMatches reports whether ref names the container at containerPath. This
// is deliberately looser than path resolution: several link spellings are
// acceptable for the same target, so links match the file stem or the
// container's title, and filename/path references match the filename or a
// path suffix.
func refMatches(ref models.Reference, containerPath, containerTitle string) bool {
	switch ref.Shape() {
	case models.RefLink:
		return ref.Target() == models.Stem(containerPath) || ref.Target() == containerTitle
	case models.RefFile:
		return ref.Target() == path.Base(containerPath)
	case models.RefPath:
		p := path.Clean(ref.Target())
		for strings.HasPrefix(p, "../") {
			p = p[len("../"):]
		}
		return containerPath == p || strings.HasSuffix(containerPath, "/"+p)
	}
	return false
}
