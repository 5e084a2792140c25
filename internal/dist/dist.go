// Package dist stages build output into a distributable tree and packs
// it into a tar.xz bundle with a metadata file describing the build.
package dist

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	"github.com/joeyballentine/pasteboard/internal/logging"
	"github.com/joeyballentine/pasteboard/internal/manifest"
	"github.com/joeyballentine/pasteboard/internal/workqueue"
)

var log = logging.L("dist")

// MetadataFile is the name of the build description inside a bundle.
const MetadataFile = "metadata.yaml"

// nativeExts are the artifact suffixes cmake builds produce per platform.
var nativeExts = map[string]bool{
	".so":    true,
	".pyd":   true,
	".dylib": true,
	".dll":   true,
}

// Metadata describes a staged build. It is serialized as metadata.yaml
// at the root of every bundle.
type Metadata struct {
	Name      string    `yaml:"name"`
	Version   string    `yaml:"version"`
	OS        string    `yaml:"os"`
	Arch      string    `yaml:"arch"`
	Python    string    `yaml:"python,omitempty"`
	MinPython string    `yaml:"min_python,omitempty"`
	Requires  []string  `yaml:"requires,omitempty"`
	CMake     string    `yaml:"cmake,omitempty"`
	Builder   string    `yaml:"builder,omitempty"`
	BuiltAt   time.Time `yaml:"built_at"`
	Artifacts []string  `yaml:"artifacts"`
}

// Staged is the result of collecting a build into the staging tree.
type Staged struct {
	Root  string
	Files []string // relative to Root, sorted
}

// Stage copies the Python package tree and the native libraries cmake
// produced into distDir/stage. Native artifacts land inside the package
// directory, next to its __init__.py, which is where the interpreter
// expects them at import time. Copies run on the work queue.
func Stage(ctx context.Context, m *manifest.Manifest, outputDir, distDir string, workers int) (*Staged, error) {
	pkgName := filepath.Base(m.PackageDir)
	root := filepath.Join(distDir, "stage")
	if err := os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("clearing stage dir: %w", err)
	}

	type copyOp struct {
		src, rel string
	}
	var ops []copyOp

	err := filepath.WalkDir(m.PackageDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "__pycache__" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".pyc") {
			return nil
		}
		rel, err := filepath.Rel(m.PackageDir, path)
		if err != nil {
			return err
		}
		ops = append(ops, copyOp{src: path, rel: filepath.Join(pkgName, rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking package dir %s: %w", m.PackageDir, err)
	}

	natives, err := collectNative(outputDir)
	if err != nil {
		return nil, err
	}
	for _, src := range natives {
		ops = append(ops, copyOp{src: src, rel: filepath.Join(pkgName, artifactRel(outputDir, src))})
	}
	if len(natives) == 0 {
		log.Warn("no native libraries found in build output", "dir", outputDir)
	}

	jobs := make([]workqueue.Job, len(ops))
	for i, op := range ops {
		jobs[i] = workqueue.Job{
			Name: op.rel,
			Run: func(ctx context.Context) error {
				return copyFile(op.src, filepath.Join(root, op.rel))
			},
		}
	}
	if err := workqueue.Run(ctx, workers, jobs); err != nil {
		return nil, fmt.Errorf("staging files: %w", err)
	}

	files := make([]string, len(ops))
	for i, op := range ops {
		files[i] = op.rel
	}
	sort.Strings(files)

	log.Info("staged build", "root", root, "files", len(files), "native", len(natives))
	return &Staged{Root: root, Files: files}, nil
}

// configDirs are the subdirectories multi-config generators insert
// between the output directory and the libraries.
var configDirs = map[string]bool{
	"Debug":          true,
	"Release":        true,
	"RelWithDebInfo": true,
	"MinSizeRel":     true,
}

// artifactRel maps a built library under outputDir to its staged
// location: configuration subdirectories disappear, deliberate output
// subdirectories survive.
func artifactRel(outputDir, path string) string {
	rel, err := filepath.Rel(outputDir, path)
	if err != nil {
		return filepath.Base(path)
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	kept := parts[:0]
	for _, p := range parts {
		if configDirs[p] {
			continue
		}
		kept = append(kept, p)
	}
	return filepath.Join(kept...)
}

// collectNative finds built libraries under dir, recursing for the sake
// of multi-config generators that add a configuration subdirectory.
func collectNative(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if nativeExts[filepath.Ext(d.Name())] {
			found = append(found, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning build output %s: %w", dir, err)
	}
	sort.Strings(found)
	return found, nil
}

// BundleName returns the archive file name for a build of the manifest
// on the current platform.
func BundleName(m *manifest.Manifest) string {
	return fmt.Sprintf("%s-%s-%s-%s.tar.xz", m.Name, m.Version, runtime.GOOS, runtime.GOARCH)
}

// Bundle packs the staged tree into distDir as a tar.xz archive with
// metadata.yaml as its first entry. Entries are written in sorted order
// with fixed ownership, so identical inputs and BuiltAt produce
// identical bytes.
func Bundle(staged *Staged, meta Metadata, distDir, name string) (string, error) {
	meta.Artifacts = staged.Files

	out := filepath.Join(distDir, name)
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("creating bundle: %w", err)
	}
	defer f.Close()

	xzw, err := xz.NewWriter(f)
	if err != nil {
		return "", fmt.Errorf("creating xz writer: %w", err)
	}
	tw := tar.NewWriter(xzw)

	stamp := meta.BuiltAt.UTC().Truncate(time.Second)

	metaBytes, err := yaml.Marshal(&meta)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    MetadataFile,
		Mode:    0644,
		Size:    int64(len(metaBytes)),
		ModTime: stamp,
	}); err != nil {
		return "", fmt.Errorf("writing metadata header: %w", err)
	}
	if _, err := tw.Write(metaBytes); err != nil {
		return "", fmt.Errorf("writing metadata: %w", err)
	}

	for _, rel := range staged.Files {
		if err := addFile(tw, staged.Root, rel, stamp); err != nil {
			return "", err
		}
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("closing tar: %w", err)
	}
	if err := xzw.Close(); err != nil {
		return "", fmt.Errorf("closing xz stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing bundle: %w", err)
	}

	log.Info("bundle written", "path", out, "files", len(staged.Files))
	return out, nil
}

func addFile(tw *tar.Writer, root, rel string, stamp time.Time) error {
	path := filepath.Join(root, rel)
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	hdr := &tar.Header{
		Name:    filepath.ToSlash(rel),
		Mode:    int64(st.Mode().Perm()),
		Size:    st.Size(),
		ModTime: stamp,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", rel, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", rel, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("archiving %s: %w", rel, err)
	}
	return nil
}

// Clean removes the build and dist directories. Missing directories are
// fine.
func Clean(buildDir, distDir string) error {
	for _, dir := range []string{buildDir, distDir} {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
		log.Info("removed", "dir", dir)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
