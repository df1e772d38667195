package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var sqlPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with|create\s+table|create\s+index)\b`)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

type linter struct {
	seen       map[string]string
	violations []violation
}

func newLinter() *linter {
	return &linter{seen: make(map[string]string)}
}

func (l *linter) lintFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return l.lintSource(path, src)
}

func (l *linter) lintSource(path string, src []byte) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for _, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil || !sqlPattern.MatchString(raw) {
				continue
			}
			pos := fset.Position(bl.Pos())
			report := func(msg string) {
				l.violations = append(l.violations, violation{file: path, line: pos.Line, name: joinNames(vs.Names), message: msg})
			}
			marker, ok := parseMarker(firstLine(raw))
			if !ok {
				report("missing or invalid --sql <uuid> marker")
				continue
			}
			where := path + ":" + strconv.Itoa(pos.Line)
			if prev, dup := l.seen[marker]; dup {
				report("marker " + marker + " already used at " + prev)
				continue
			}
			l.seen[marker] = where
		}
		return true
	})
	return nil
}

// parseMarker accepts "--sql <uuid>" with a canonical lower-case UUID.
func parseMarker(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "--sql ")
	if !ok {
		return "", false
	}
	id, err := uuid.Parse(rest)
	if err != nil || id.String() != rest {
		return "", false
	}
	return rest, true
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func joinNames(idents []*ast.Ident) string {
	parts := make([]string, 0, len(idents))
	for _, ident := range idents {
		if ident != nil {
			parts = append(parts, ident.Name)
		}
	}
	return strings.Join(parts, ",")
}
