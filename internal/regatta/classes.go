package regatta

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed classes.toml
var classesTOML string

// BoatClass is one catalog entry.
type BoatClass struct {
	Name    string   `toml:"name"`
	Aliases []string `toml:"aliases"`
	Crew    int      `toml:"crew"`
}

// Catalog resolves class-name variants with one alternation regex.
type Catalog struct {
	classes []BoatClass
	byAlias map[string]*BoatClass
	re      *regexp.Regexp
}

// DefaultCatalog is built from the embedded classes.toml.
var DefaultCatalog = mustCatalog(classesTOML)

func mustCatalog(src string) *Catalog {
	c, err := ParseCatalog(src)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCatalog reads a TOML catalog with [[class]] tables.
func ParseCatalog(src string) (*Catalog, error) {
	var doc struct {
		Class []BoatClass `toml:"class"`
	}
	if _, err := toml.Decode(src, &doc); err != nil {
		return nil, fmt.Errorf("parse class catalog: %w", err)
	}
	if len(doc.Class) == 0 {
		return nil, fmt.Errorf("class catalog is empty")
	}

	c := &Catalog{classes: doc.Class, byAlias: map[string]*BoatClass{}}
	var alts []string
	for i := range c.classes {
		cl := &c.classes[i]
		if cl.Crew <= 0 {
			cl.Crew = 1
		}
		for _, a := range append([]string{cl.Name}, cl.Aliases...) {
			key := foldAlias(a)
			if _, dup := c.byAlias[key]; !dup {
				c.byAlias[key] = cl
			}
			alts = append(alts, a)
		}
	}
	// longest first so "49erFX" wins over "49er"
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	for i, a := range alts {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(a), " ", `[\s-]?`)
	}
	c.re = regexp.MustCompile(`(?i)(?:^|[^\p{L}\d])(` + strings.Join(alts, "|") + `)(?:$|[^\p{L}\d])`)
	return c, nil
}

func foldAlias(s string) string {
	return strings.ToLower(strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-'
	}), ""))
}

// Find returns the first class mentioned in s.
func (c *Catalog) Find(s string) (BoatClass, bool) {
	m := c.re.FindStringSubmatch(s)
	if m == nil {
		return BoatClass{}, false
	}
	if cl, ok := c.byAlias[foldAlias(m[1])]; ok {
		return *cl, true
	}
	return BoatClass{}, false
}

// CrewSize is the crew of the named class (canonical or alias), 0 if unknown.
func (c *Catalog) CrewSize(class string) int {
	if cl, ok := c.byAlias[foldAlias(class)]; ok {
		return cl.Crew
	}
	if cl, ok := c.Find(class); ok {
		return cl.Crew
	}
	return 0
}
