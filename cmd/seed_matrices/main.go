// seed_matrices genera un script SQL para poblar st_rule_tables y st_rule_rows
// a partir de la carpeta de planillas CSV de matrices de ST.
//
// Uso: go run ./cmd/seed_matrices [carpeta]
// Por defecto lee ./matrizes.
// Escribe: internal/infrastructure/postgres/migrations/002_seed_matrices.sql
//
// El script solo inserta filas en matrices que todavía no tienen ninguna, así
// que las importaciones hechas por la API no se pisan al reaplicar migraciones.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/infrastructure/csvrules"
)

var hundred = decimal.NewFromInt(100)

func main() {
	dir := "matrizes"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	m, err := csvrules.NewSource(dir).LoadMatrices(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer matrices: %v\n", err)
		os.Exit(1)
	}
	if len(m.Tables) == 0 {
		fmt.Fprintf(os.Stderr, "Ninguna planilla CSV en %s\n", dir)
		os.Exit(1)
	}

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "002_seed_matrices.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Matrices de ST iniciales\n")
	fmt.Fprintf(out, "-- Generado desde %s (versión %s)\n\n", filepath.ToSlash(dir), m.Version)

	rows := 0
	for pos, t := range m.Tables {
		name := escapeSQL(t.Name)
		fmt.Fprintf(out, "-- %d. %s\n", pos+1, t.Name)
		fmt.Fprintf(out, "INSERT INTO st_rule_tables (name, position) VALUES ('%s', %d)\n", name, pos)
		out.WriteString("ON CONFLICT (name) DO NOTHING;\n")
		if len(t.Rows) == 0 {
			out.WriteString("\n")
			continue
		}
		out.WriteString("INSERT INTO st_rule_rows (table_name, position, ncm, cest, uf, applies_st,\n")
		out.WriteString("    mva_percent, internal_rate_percent, multiplier_percent, credit_percent, credit_type,\n")
		out.WriteString("    active, cfop_from, cfop_to, cst_include, cst_exclude, segment)\n")
		out.WriteString("SELECT v.* FROM (VALUES\n")
		for i, r := range t.Rows {
			sep := ","
			if i == len(t.Rows)-1 {
				sep = ""
			}
			fmt.Fprintf(out, "  ('%s', %d, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)%s\n",
				name, i, sqlText(r.Code), sqlText(r.CEST), sqlText(r.UF), sqlApplies(r.Applies),
				sqlPercent(r.MVA), sqlPercent(r.InternalRate), sqlPercent(r.Multiplier), sqlPercent(r.CreditRate),
				sqlText(string(r.CreditType)), sqlBool(!r.Inactive), sqlText(r.CFOPFrom), sqlText(r.CFOPTo),
				sqlArray(r.CSTInclude), sqlArray(r.CSTExclude), sqlText(r.Segment), sep)
		}
		out.WriteString(") AS v(table_name, position, ncm, cest, uf, applies_st, mva_percent, internal_rate_percent,\n")
		out.WriteString("       multiplier_percent, credit_percent, credit_type, active, cfop_from, cfop_to, cst_include, cst_exclude, segment)\n")
		fmt.Fprintf(out, "WHERE NOT EXISTS (SELECT 1 FROM st_rule_rows WHERE table_name = '%s');\n\n", name)
		rows += len(t.Rows)
	}

	fmt.Printf("Generado %s: %d matrices, %d filas\n", outPath, len(m.Tables), rows)
}

func sqlText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NULL::text"
	}
	return "'" + escapeSQL(s) + "'"
}

func sqlBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func sqlApplies(a entity.Applicability) string {
	switch a {
	case entity.ApplicabilityYes:
		return "TRUE"
	case entity.ApplicabilityNo:
		return "FALSE"
	}
	return "NULL::boolean"
}

// sqlPercent la base guarda porcentajes (18 = 18%).
func sqlPercent(r *entity.Rate) string {
	if r == nil {
		return "NULL::numeric"
	}
	return r.Fraction().Mul(hundred).String() + "::numeric"
}

func sqlArray(values []string) string {
	if len(values) == 0 {
		return "NULL::text[]"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + escapeSQL(v) + "'"
	}
	return "ARRAY[" + strings.Join(quoted, ", ") + "]::text[]"
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
