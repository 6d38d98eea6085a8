package processing

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/platinummonkey/compiletest/pkg/extensions"
	"github.com/platinummonkey/compiletest/pkg/sources"
)

// FileIndex is what the declaration scanner learns about one source file.
// The scanner recognizes declarations lexically; it does not parse or
// type-check.
type FileIndex struct {
	Path            string
	Language        sources.Kind
	Package         string
	Imports         map[string]string // simple name to qualified name
	WildcardImports []string
	Declarations    []extensions.Declaration // top level only
	TypeNames       []string                 // every declared type, nested included
	References      []string                 // capitalized simple names used in code
}

var (
	packagePattern = regexp.MustCompile(`(?m)^[ \t]*package[ \t]+([\w.]+)`)
	importPattern  = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+(?:static[ \t]+)?((?:\w+\.)*\w+(?:\.\*)?)(?:[ \t]+as[ \t]+(\w+))?`)
	headerLine     = regexp.MustCompile(`(?m)^[ \t]*(?:package|import)[ \t].*$`)
	declPattern    = regexp.MustCompile(
		`((?:@[\w.]+(?:\s*\([^()]*\))?\s*)*)` +
			`((?:(?:public|private|protected|internal|abstract|open|final|sealed|non-sealed|data|inner|static|strictfp|value|inline|expect|actual|fun)\s+)*)` +
			`(class|interface|object|enum\s+class|enum|annotation\s+class|@interface|record)\s+([A-Za-z_]\w*)`)
	annotationName = regexp.MustCompile(`@([\w.]+)`)
	typeReference  = regexp.MustCompile(`[A-Z]\w*`)
)

// ScanFile reads and scans a source file
func ScanFile(path string) (*FileIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", path, err)
	}
	return Scan(path, string(data)), nil
}

// Scan indexes source text. The language is taken from the path extension.
func Scan(path, content string) *FileIndex {
	kind, _ := sources.KindOf(path)
	code := stripCommentsAndStrings(content)

	idx := &FileIndex{
		Path:     path,
		Language: kind,
		Imports:  make(map[string]string),
	}
	if m := packagePattern.FindStringSubmatch(code); m != nil {
		idx.Package = m[1]
	}
	for _, m := range importPattern.FindAllStringSubmatch(code, -1) {
		if pkg, ok := strings.CutSuffix(m[1], ".*"); ok {
			idx.WildcardImports = append(idx.WildcardImports, pkg)
			continue
		}
		simple := m[1][strings.LastIndex(m[1], ".")+1:]
		if m[2] != "" {
			simple = m[2]
		}
		idx.Imports[simple] = m[1]
	}

	depth := braceDepths(code)
	for _, loc := range declPattern.FindAllStringSubmatchIndex(code, -1) {
		keywordStart := loc[6]
		if keywordStart > 0 {
			if prev := code[keywordStart-1]; isWordByte(prev) || prev == ':' || prev == '.' {
				continue
			}
		}
		name := code[loc[8]:loc[9]]
		idx.TypeNames = append(idx.TypeNames, name)
		if depth[keywordStart] != 0 {
			continue
		}

		var annotations []string
		for _, a := range annotationName.FindAllStringSubmatch(code[loc[2]:loc[3]], -1) {
			annotations = append(annotations, idx.qualify(a[1]))
		}
		idx.Declarations = append(idx.Declarations, extensions.Declaration{
			Package:     idx.Package,
			Name:        name,
			Kind:        declarationKind(code[loc[6]:loc[7]]),
			Annotations: annotations,
			Language:    kind,
			File:        path,
		})
	}

	idx.References = references(headerLine.ReplaceAllString(code, ""))
	return idx
}

func (idx *FileIndex) qualify(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	if fq, ok := idx.Imports[name]; ok {
		return fq
	}
	return name
}

// Resolves reports whether a simple name is declared in or imported by the file
func (idx *FileIndex) Resolves(name string) bool {
	if _, ok := idx.Imports[name]; ok {
		return true
	}
	for _, n := range idx.TypeNames {
		if n == name {
			return true
		}
	}
	return false
}

// ResolveAnnotations qualifies simple annotation names that refer to a type
// declared in the same package or a wildcard-imported package
func ResolveAnnotations(indexes []*FileIndex) {
	byPackage := make(map[string]map[string]bool)
	for _, idx := range indexes {
		for _, d := range idx.Declarations {
			if byPackage[d.Package] == nil {
				byPackage[d.Package] = make(map[string]bool)
			}
			byPackage[d.Package][d.Name] = true
		}
	}

	for _, idx := range indexes {
		for i := range idx.Declarations {
			d := &idx.Declarations[i]
			for j, a := range d.Annotations {
				if strings.Contains(a, ".") {
					continue
				}
				if byPackage[idx.Package][a] && idx.Package != "" {
					d.Annotations[j] = idx.Package + "." + a
					continue
				}
				for _, pkg := range idx.WildcardImports {
					if byPackage[pkg][a] {
						d.Annotations[j] = pkg + "." + a
						break
					}
				}
			}
		}
	}
}

func declarationKind(keyword string) extensions.DeclarationKind {
	fields := strings.Fields(keyword)
	switch fields[0] {
	case "interface":
		return extensions.DeclInterface
	case "object":
		return extensions.DeclObject
	case "enum":
		return extensions.DeclEnum
	case "annotation", "@interface":
		return extensions.DeclAnnotation
	case "record":
		return extensions.DeclRecord
	default:
		return extensions.DeclClass
	}
}

// braceDepths returns the brace nesting depth before every byte offset
func braceDepths(code string) []int {
	depths := make([]int, len(code)+1)
	depth := 0
	for i := 0; i < len(code); i++ {
		depths[i] = depth
		switch code[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	depths[len(code)] = depth
	return depths
}

func references(code string) []string {
	seen := make(map[string]bool)
	for _, loc := range typeReference.FindAllStringIndex(code, -1) {
		if loc[0] > 0 {
			prev := code[loc[0]-1]
			if isWordByte(prev) || prev == '.' {
				continue
			}
		}
		seen[code[loc[0]:loc[1]]] = true
	}
	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// stripCommentsAndStrings blanks comments and the contents of string and
// character literals, keeping byte offsets and line breaks intact
func stripCommentsAndStrings(src string) string {
	out := []byte(src)
	blank := func(from, to int) {
		for i := from; i < to && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}

	for i := 0; i < len(src); {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			blank(i, i+end)
			i += end
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				end = len(src) - i - 2
			} else {
				end += 2
			}
			blank(i, i+2+end)
			i += 2 + end
		case strings.HasPrefix(src[i:], `"""`):
			end := strings.Index(src[i+3:], `"""`)
			if end < 0 {
				end = len(src) - i - 3
			}
			blank(i+3, i+3+end)
			i += 3 + end + 3
		case src[i] == '"' || src[i] == '\'':
			quote := src[i]
			j := i + 1
			for j < len(src) && src[j] != quote && src[j] != '\n' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			blank(i+1, j)
			i = j + 1
		default:
			i++
		}
	}
	return string(out)
}
