// Package manifest loads and validates the YAML description of a package and
// its native extensions: the metadata, the Python requirements, and the
// per-extension cmake settings.
package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joeyballentine/pasteboard/internal/logging"
	"github.com/joeyballentine/pasteboard/internal/pyconfig"
)

var log = logging.L("manifest")

// DefaultFile is the manifest filename looked for in the project root.
const DefaultFile = "pasteboard.yaml"

// Manifest describes one Python package with native extensions.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	Author      string   `yaml:"author,omitempty"`
	License     string   `yaml:"license,omitempty"`
	Homepage    string   `yaml:"homepage,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`

	Python   PythonSpec `yaml:"python"`
	Requires []string   `yaml:"requires,omitempty"`

	PackageDir string      `yaml:"package_dir,omitempty"`
	Extensions []Extension `yaml:"extensions,omitempty"`
}

// PythonSpec constrains the interpreter the package builds against.
type PythonSpec struct {
	MinVersion string `yaml:"min_version,omitempty"`
}

// Extension is one CMake-built native extension.
type Extension struct {
	Name      string            `yaml:"name,omitempty"`
	SourceDir string            `yaml:"source_dir,omitempty"`
	BuildType string            `yaml:"build_type,omitempty"`
	Generator string            `yaml:"generator,omitempty"`
	Defines   map[string]string `yaml:"defines,omitempty"`
	// OutputSubdir places this extension's libraries in a subdirectory
	// of the shared build output, for packages that import from one.
	OutputSubdir string  `yaml:"output_subdir,omitempty"`
	OSX          OSXSpec `yaml:"osx,omitempty"`
}

// OSXSpec carries the macOS cross-build settings. The defaults produce a
// universal binary for current deployment floors.
type OSXSpec struct {
	Architectures    []string `yaml:"architectures,omitempty"`
	DeploymentTarget string   `yaml:"deployment_target,omitempty"`
}

// Load reads the manifest at path and fills in defaults.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	m.applyDefaults()
	return &m, nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (m *Manifest) applyDefaults() {
	if m.Python.MinVersion == "" {
		m.Python.MinVersion = "3.5"
	}
	if m.PackageDir == "" && m.Name != "" {
		m.PackageDir = "src/" + m.Name
	}
	if len(m.Extensions) == 0 {
		m.Extensions = []Extension{{}}
	}
	for i := range m.Extensions {
		ext := &m.Extensions[i]
		if ext.Name == "" {
			ext.Name = m.Name
		}
		if ext.SourceDir == "" {
			ext.SourceDir = "."
		}
		if ext.BuildType == "" {
			ext.BuildType = "Release"
		}
		if len(ext.OSX.Architectures) == 0 {
			ext.OSX.Architectures = []string{"x86_64", "arm64"}
		}
		if ext.OSX.DeploymentTarget == "" {
			ext.OSX.DeploymentTarget = "11.0"
		}
	}
}

var (
	nameRegex    = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	versionRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*([a-zA-Z0-9.+-]*)$`)
)

// Validate checks the manifest for invalid values and returns all errors
// found. Values with a safe substitute are fixed up and reported; the rest
// must be corrected by the author before a build can proceed.
func (m *Manifest) Validate() []error {
	var errs []error

	if m.Name == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	} else if !nameRegex.MatchString(m.Name) {
		errs = append(errs, fmt.Errorf("name %q contains invalid characters", m.Name))
	}

	if m.Version == "" {
		errs = append(errs, fmt.Errorf("version is required"))
	} else if !versionRegex.MatchString(m.Version) {
		errs = append(errs, fmt.Errorf("version %q is not a valid version string", m.Version))
	}

	if m.Python.MinVersion != "" {
		if _, _, err := pyconfig.ParseVersion(m.Python.MinVersion); err != nil {
			errs = append(errs, fmt.Errorf("python.min_version: %w", err))
		}
	}

	for _, req := range m.Requires {
		if strings.TrimSpace(req) == "" {
			errs = append(errs, fmt.Errorf("requires contains an empty entry"))
		}
	}

	seen := make(map[string]bool)
	for i := range m.Extensions {
		ext := &m.Extensions[i]
		if ext.Name == "" {
			errs = append(errs, fmt.Errorf("extension %d has no name and the manifest has no package name to inherit", i))
			continue
		}
		if seen[ext.Name] {
			errs = append(errs, fmt.Errorf("duplicate extension name %q", ext.Name))
		}
		seen[ext.Name] = true

		switch strings.ToLower(ext.BuildType) {
		case "debug", "release":
		default:
			errs = append(errs, fmt.Errorf("extension %q build_type %q is not valid (use Debug or Release), using Release", ext.Name, ext.BuildType))
			ext.BuildType = "Release"
		}
	}

	// Log validation errors as warnings
	for _, err := range errs {
		log.Warn("manifest validation", "error", err)
	}

	return errs
}
