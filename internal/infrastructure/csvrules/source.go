package csvrules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
)

// prefijo opcional de prioridad en el nombre del archivo: "01_mva.csv"
var priorityPrefix = regexp.MustCompile(`^\d+[_-]`)

// Source fuente de matrices: un directorio con un CSV por matriz. El orden de
// búsqueda es el orden alfabético de los archivos.
type Source struct {
	dir    string
	parser *Parser
}

// NewSource construye la fuente sobre dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir, parser: NewParser()}
}

// LoadMatrices lee todos los *.csv del directorio.
func (s *Source) LoadMatrices(ctx context.Context) (entity.Matrices, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return entity.Matrices{}, fmt.Errorf("csvrules: listar %s: %w", s.dir, err)
	}
	if len(paths) == 0 {
		if _, statErr := os.Stat(s.dir); statErr != nil {
			return entity.Matrices{}, fmt.Errorf("csvrules: %w", statErr)
		}
	}
	sort.Strings(paths)

	m := entity.Matrices{LoadedAt: time.Now()}
	var newest time.Time
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return entity.Matrices{}, err
		}
		table, modTime, err := s.readFile(path)
		if err != nil {
			return entity.Matrices{}, err
		}
		if modTime.After(newest) {
			newest = modTime
		}
		m.Tables = append(m.Tables, table)
	}
	if !newest.IsZero() {
		m.Version = "csv-" + newest.UTC().Format("20060102T150405Z")
	}
	return m, nil
}

func (s *Source) readFile(path string) (entity.RuleTable, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.RuleTable{}, time.Time{}, fmt.Errorf("csvrules: abrir %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return entity.RuleTable{}, time.Time{}, fmt.Errorf("csvrules: %s: %w", path, err)
	}
	table, err := s.parser.ParseTable(TableName(path), f)
	if err != nil {
		return entity.RuleTable{}, time.Time{}, err
	}
	return table, info.ModTime(), nil
}

// TableName nombre de la matriz a partir del archivo: "matrizes/01_MVA.csv" -> "mva".
func TableName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = priorityPrefix.ReplaceAllString(base, "")
	return strings.ToLower(strings.TrimSpace(base))
}
