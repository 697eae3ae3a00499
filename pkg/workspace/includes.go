package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/walteh/saltls/pkg/sls"
)

// FindTop walks up from path looking for the directory holding "top.sls",
// the root of the state tree.
func FindTop(fsys afero.Fs, path string) (string, bool) {
	dir := path
	if isDir, _ := afero.IsDir(fsys, dir); !isDir {
		dir = filepath.Dir(dir)
	}
	for {
		if ok, _ := afero.Exists(fsys, filepath.Join(dir, "top.sls")); ok {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// FindRoot returns the state tree root for path, falling back to the
// containing directory when no top file exists.
func FindRoot(fsys afero.Fs, path string) string {
	if top, ok := FindTop(fsys, path); ok {
		return top
	}
	if isDir, _ := afero.IsDir(fsys, path); isDir {
		return path
	}
	return filepath.Dir(path)
}

// SlsIncludes enumerates the dotted names of every state file under the root
// of path, the candidate values for an include list. "a/b.sls" becomes "a.b"
// and "a/init.sls" collapses to "a".
func (w *Workspace) SlsIncludes(path string) []string {
	root := FindRoot(w.fs, path)

	var names []string
	_ = afero.Walk(w.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(p, ".sls") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = strings.TrimSuffix(rel, ".sls")
		if filepath.Base(rel) == "init" {
			rel = filepath.Dir(rel)
			if rel == "." {
				return nil
			}
		}
		names = append(names, strings.ReplaceAll(rel, string(filepath.Separator), "."))
		return nil
	})
	return names
}

// IncludeFile resolves a dotted include value against the state tree root:
// "a.b" maps to "a/b/init.sls" when that exists and "a/b.sls" otherwise.
func IncludeFile(fsys afero.Fs, topPath, value string) (string, bool) {
	dest := filepath.Join(strings.Split(value, ".")...)
	initPath := filepath.Join(topPath, dest, "init.sls")
	if ok, _ := afero.Exists(fsys, initPath); ok {
		return initPath, true
	}
	entryPath := filepath.Join(topPath, dest+".sls")
	if ok, _ := afero.Exists(fsys, entryPath); ok {
		return entryPath, true
	}
	return "", false
}

// FindID searches for a state identifier in the document at uri and then in
// its includes, returning the first match and the URI it was found in.
func (w *Workspace) FindID(id, uri string) (*sls.StateNode, string, bool) {
	doc, ok := w.Document(uri)
	if !ok {
		return nil, "", false
	}

	uris := []string{normalizeURI(uri)}
	if doc.Tree.Includes != nil {
		top := FindRoot(w.fs, normalizeURI(uri))
		for _, inc := range doc.Tree.Includes.Includes {
			if p, ok := IncludeFile(w.fs, top, inc.Value); ok {
				uris = append(uris, p)
			}
		}
	}

	for _, candidate := range uris {
		target, ok := w.Document(candidate)
		if !ok {
			continue
		}
		for _, state := range target.Tree.States {
			if state.Identifier == id {
				return state, candidate, true
			}
		}
	}
	return nil, "", false
}
