package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Files maps output paths, relative to an output directory, to contents.
type Files map[string][]byte

// CompileDomain parses a domain source and generates its Go package and
// manifest. The files are named after the package: <pkg>/<pkg>.go and
// <pkg>/<pkg>.yaml.
func CompileDomain(file string, src []byte, emit EmitOptions, opts ...Option) (*DomainDef, Files, error) {
	def, err := ParseDomain(file, src, opts...)
	if err != nil {
		return nil, nil, err
	}
	if emit.Package == "" {
		emit.Package = PackageName(def.Name)
	}
	if emit.Source == "" {
		emit.Source = file
	}
	code, err := EmitDomain(def, emit)
	if err != nil {
		return nil, nil, fmt.Errorf("domain %s: %w", def.Name, err)
	}
	manifest, err := def.Manifest().Marshal()
	if err != nil {
		return nil, nil, fmt.Errorf("domain %s: encode manifest: %w", def.Name, err)
	}
	return def, Files{
		filepath.Join(emit.Package, emit.Package+".go"):   code,
		filepath.Join(emit.Package, emit.Package+".yaml"): manifest,
	}, nil
}

// NativeStub returns natives.go for def's package, keyed like the
// CompileDomain files, or an empty set when def calls no user native
// functions. Write it with WriteNewFiles so edits survive recompiles.
func NativeStub(def *DomainDef, emit EmitOptions) (Files, error) {
	if emit.Package == "" {
		emit.Package = PackageName(def.Name)
	}
	code, err := EmitNatives(def, emit)
	if err != nil {
		return nil, fmt.Errorf("domain %s: %w", def.Name, err)
	}
	if code == nil {
		return Files{}, nil
	}
	return Files{filepath.Join(emit.Package, "natives.go"): code}, nil
}

// CompileProblems parses a problem source against m and generates one
// driver per problem at <problem>/main.go.
func CompileProblems(file string, src []byte, m *Manifest, emit EmitOptions, opts ...Option) (*ProblemFile, Files, error) {
	pf, err := ParseProblems(file, src, m, opts...)
	if err != nil {
		return nil, nil, err
	}
	if emit.Source == "" {
		emit.Source = file
	}
	files := make(Files, len(pf.Problems))
	for _, p := range pf.Problems {
		code, err := EmitProblem(p, m, emit)
		if err != nil {
			return nil, nil, fmt.Errorf("problem %s: %w", p.Name, err)
		}
		files[filepath.Join(p.Name, "main.go")] = code
	}
	return pf, files, nil
}

// Names returns the file paths in sorted order.
func (f Files) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteFiles writes every file under dir, creating directories as needed.
func WriteFiles(dir string, files Files) error {
	for _, name := range files.Names() {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// WriteNewFiles writes the files that do not exist under dir yet and
// returns the names it wrote.
func WriteNewFiles(dir string, files Files) ([]string, error) {
	missing := make(Files, len(files))
	for _, name := range files.Names() {
		_, err := os.Stat(filepath.Join(dir, name))
		switch {
		case err == nil:
			continue
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		missing[name] = files[name]
	}
	if err := WriteFiles(dir, missing); err != nil {
		return nil, err
	}
	return missing.Names(), nil
}
