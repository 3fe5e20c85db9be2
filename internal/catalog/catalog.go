// Package catalog holds the canonical service-category table and the
// free-text normalization used to resolve sloppy user input (decorations,
// casing, articles, diacritics) to exact canonical labels. The lookup tables
// are built once at init and are read-only afterwards, so they are safe to
// share across concurrent sessions.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Group is a top-level menu category. A group with no services is itself a
// selectable service (a leaf category).
type Group struct {
	Name     string
	Services []string
}

// EducationGroup is the group whose services carry a teaching division.
const EducationGroup = "Education Services"

var groups = []Group{
	{Name: "Home Maintenance", Services: []string{
		"Plumbing", "House Painting", "Furniture Assembly", "Flooring",
	}},
	{Name: "Home Cleaning", Services: []string{
		"Cleaning Crews", "Carpet & Upholstery Cleaning",
	}},
	{Name: "Electrical & Technical", Services: []string{
		"Camera Installation", "Internet Technician", "House Electrician",
	}},
	{Name: "Transport & Field Services", Services: []string{
		"Men's Delivery", "Women's Delivery", "Ambulance Cars",
		"Moving Trucks", "Drinking Water Trucks",
	}},
	// Education is a leaf category; the teaching division is a separate
	// attribute collected by its own dialogue step.
	{Name: EducationGroup},
	{Name: "Home Barber"}, // leaf: selectable directly
	{Name: "Photography & Gardens", Services: []string{
		"Event Photography", "Garden Landscaping",
	}},
}

var educationDivisions = []string{"Primary", "Preparatory", "Secondary", "Academic"}

var (
	// normalized label -> canonical service name
	serviceIndex = map[string]string{}
	// normalized label -> group
	groupIndex = map[string]*Group{}
	// canonical service -> owning group name
	serviceGroup = map[string]string{}
	// normalized division -> canonical division
	divisionIndex = map[string]string{}
)

func init() {
	for i := range groups {
		g := &groups[i]
		indexLabel(groupIndex, g.Name, g)
		if len(g.Services) == 0 {
			// leaf group doubles as a service
			indexService(g.Name, g.Name)
			continue
		}
		for _, s := range g.Services {
			indexService(s, g.Name)
		}
	}
	for _, d := range educationDivisions {
		divisionIndex[Normalize(d)] = d
		if stripped := StripArticle(Normalize(d)); stripped != "" {
			divisionIndex[stripped] = d
		}
	}
}

func indexService(name, group string) {
	k := Normalize(name)
	if _, ok := serviceIndex[k]; !ok {
		serviceIndex[k] = name
	}
	if k2 := StripArticle(k); k2 != "" && k2 != k {
		if _, ok := serviceIndex[k2]; !ok {
			serviceIndex[k2] = name
		}
	}
	serviceGroup[name] = group
}

func indexLabel(idx map[string]*Group, name string, g *Group) {
	k := Normalize(name)
	if _, ok := idx[k]; !ok {
		idx[k] = g
	}
	if k2 := StripArticle(k); k2 != "" && k2 != k {
		if _, ok := idx[k2]; !ok {
			idx[k2] = g
		}
	}
}

// Normalize folds user input for matching: case-fold, strip diacritics and
// decorative symbols (emoji, punctuation), collapse whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	space := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark: diacritic, drop
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			space = true
		default:
			// decorative symbol, emoji, punctuation: acts as a separator
			space = true
		}
	}
	return b.String()
}

// StripArticle removes the definite article from each word of an already
// normalized label, so "the plumbing" still resolves to "Plumbing".
func StripArticle(s string) string {
	if s == "" {
		return s
	}
	words := strings.Fields(s)
	out := words[:0]
	for _, w := range words {
		if w == "the" {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// Groups returns the menu tree in canonical display order.
func Groups() []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	return out
}

// ResolveService maps free text to a canonical service name.
func ResolveService(input string) (string, bool) {
	n := Normalize(input)
	if c, ok := serviceIndex[n]; ok {
		return c, true
	}
	c, ok := serviceIndex[StripArticle(n)]
	return c, ok
}

// ResolveGroup maps free text to a canonical group. Groups with no services
// resolve through ResolveService instead.
func ResolveGroup(input string) (Group, bool) {
	n := Normalize(input)
	if g, ok := groupIndex[n]; ok {
		return *g, true
	}
	if g, ok := groupIndex[StripArticle(n)]; ok {
		return *g, true
	}
	return Group{}, false
}

// GroupOf returns the owning group of a canonical service name.
func GroupOf(service string) (string, bool) {
	g, ok := serviceGroup[service]
	return g, ok
}

// IsEducation reports whether a canonical service is the education category
// and therefore carries a teaching division.
func IsEducation(service string) bool {
	return service == EducationGroup
}

// EducationDivisions lists the canonical teaching divisions.
func EducationDivisions() []string {
	out := make([]string, len(educationDivisions))
	copy(out, educationDivisions)
	return out
}

// ResolveDivision maps free text to a canonical teaching division.
func ResolveDivision(input string) (string, bool) {
	d, ok := divisionIndex[Normalize(input)]
	return d, ok
}
