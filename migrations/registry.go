// Package migrations exposes the gateway schema as registrable, per-dialect
// filesystems so the host application can feed them to its migrator.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	wildcat "github.com/wildcatlabs/wildcat"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const embeddedRoot = "data/sql/migrations"

// Source is one dialect's migration filesystem. Postgres files sit at the
// root of the embedded tree, sqlite variants under sqlite/.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Registration records what Register handed to the host migrator.
type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []Source
}

// RegisterFunc receives one dialect's filesystem. The host decides what to
// do with it (persistence-bun callers pass it to RegisterSQLMigrations).
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithSourceLabel overrides the label reported to the migrator.
func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets restricts registration to the named dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if normalized := normalizeDialects(targets); len(normalized) > 0 {
			r.ValidationTargets = normalized
		}
	}
}

// WithSources replaces the embedded filesystems, for hosts that ship their
// own schema variants.
func WithSources(sources ...Source) Option {
	return func(r *Registration) {
		kept := make([]Source, 0, len(sources))
		for _, source := range sources {
			dialect := strings.ToLower(strings.TrimSpace(source.Dialect))
			if dialect == "" || source.FS == nil {
				continue
			}
			source.Dialect = dialect
			kept = append(kept, source)
		}
		if len(kept) > 0 {
			r.Filesystems = kept
		}
	}
}

// Filesystems resolves the per-dialect migration filesystems from the
// embedded tree, or from an explicit override when one is given. Every
// returned source is guaranteed to hold at least one *.up.sql file.
func Filesystems(overrides ...fs.FS) ([]Source, error) {
	root := wildcat.GetMigrationsFS()
	if len(overrides) > 0 && overrides[0] != nil {
		root = overrides[0]
	}

	base, basePath, err := locateSchemaRoot(root)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, 2)
	for _, layout := range []struct {
		dialect string
		subdir  string
	}{
		{dialect: DialectPostgres},
		{dialect: DialectSQLite, subdir: "sqlite"},
	} {
		fsys := base
		sourcePath := basePath
		if layout.subdir != "" {
			sub, subErr := fs.Sub(base, layout.subdir)
			if subErr != nil {
				return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", layout.dialect, subErr)
			}
			fsys = sub
			sourcePath = path.Join(basePath, layout.subdir)
		}
		if err := requireUpMigrations(layout.dialect, sourcePath, fsys); err != nil {
			return nil, err
		}
		sources = append(sources, Source{Dialect: layout.dialect, Path: sourcePath, FS: fsys})
	}

	return sources, nil
}

// Register resolves the embedded sources, applies the options, and calls
// registerFn once per dialect named in the validation targets.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       "wildcat",
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	sources, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = sources

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	if err := reg.validate(); err != nil {
		return reg, err
	}

	wanted := make(map[string]struct{}, len(reg.ValidationTargets))
	for _, target := range reg.ValidationTargets {
		wanted[target] = struct{}{}
	}
	for _, source := range reg.Filesystems {
		if _, ok := wanted[source.Dialect]; !ok {
			continue
		}
		if err := registerFn(ctx, source.Dialect, reg.SourceLabel, source.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Path, err)
		}
	}
	return reg, nil
}

func (r Registration) validate() error {
	if strings.TrimSpace(r.SourceLabel) == "" {
		return fmt.Errorf("migrations: source label is required")
	}
	if len(r.ValidationTargets) == 0 {
		return fmt.Errorf("migrations: validation targets are required")
	}
	if len(r.Filesystems) == 0 {
		return fmt.Errorf("migrations: filesystems are required")
	}
	for _, source := range r.Filesystems {
		if source.FS == nil {
			return fmt.Errorf("migrations: filesystem for %s is nil", source.Dialect)
		}
	}
	return nil
}

// locateSchemaRoot accepts either the module root embed (data/sql/migrations
// nested inside) or a filesystem already rooted at the SQL files.
func locateSchemaRoot(root fs.FS) (fs.FS, string, error) {
	if sub, err := fs.Sub(root, embeddedRoot); err == nil {
		if _, statErr := fs.Stat(sub, "."); statErr == nil {
			if matches, _ := fs.Glob(sub, "*.sql"); len(matches) > 0 {
				return sub, embeddedRoot, nil
			}
		}
	}
	if matches, _ := fs.Glob(root, "*.sql"); len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: no SQL files under %s or the filesystem root", embeddedRoot)
}

func requireUpMigrations(dialect string, sourcePath string, fsys fs.FS) error {
	matches, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s %s: %w", dialect, sourcePath, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", dialect, sourcePath)
	}
	return nil
}

func normalizeDialects(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		dialect := strings.ToLower(strings.TrimSpace(value))
		if dialect == "" {
			continue
		}
		if _, dup := seen[dialect]; dup {
			continue
		}
		seen[dialect] = struct{}{}
		out = append(out, dialect)
	}
	return out
}
