package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/cipherboy/candlepin/internal/shared/logger"
)

var migrationNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Generator writes empty goose migrations, one per supported dialect.
type Generator struct {
	scriptsPath string
	logger      logger.Interface
}

// NewGenerator creates a new migration generator
func NewGenerator(scriptsPath string, log logger.Interface) *Generator {
	return &Generator{
		scriptsPath: scriptsPath,
		logger:      log.Component("migration.generator"),
	}
}

// CreateMigration creates <timestamp>_<name>.sql under every dialect
// directory and returns the written paths.
func (g *Generator) CreateMigration(name string, now time.Time) ([]string, error) {
	if !migrationNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid migration name %q: use lowercase letters, digits and underscores", name)
	}

	fileName := fmt.Sprintf("%s_%s.sql", now.UTC().Format("20060102150405"), name)

	var written []string
	for _, dialect := range []string{"mysql", "sqlite3"} {
		dir := filepath.Join(g.scriptsPath, dialect)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, fmt.Errorf("failed to create scripts directory: %w", err)
		}

		path := filepath.Join(dir, fileName)
		if err := os.WriteFile(path, []byte(migrationTemplate(name, now)), 0o644); err != nil {
			return written, fmt.Errorf("failed to create migration file: %w", err)
		}
		written = append(written, path)
	}

	g.logger.Infow("migration files created successfully", "files", written)
	return written, nil
}

func migrationTemplate(name string, now time.Time) string {
	return fmt.Sprintf(`-- Migration: %s
-- Created: %s

-- +goose Up

-- +goose Down
`, name, now.UTC().Format("2006-01-02 15:04:05"))
}
