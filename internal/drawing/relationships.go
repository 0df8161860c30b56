package drawing

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

// RelKind classifies a relationship by its declared Type.
type RelKind int

const (
	RelOther RelKind = iota
	RelImage
	RelDrawing
	RelWorksheet
	RelOfficeDocument
)

func (k RelKind) String() string {
	switch k {
	case RelImage:
		return "image"
	case RelDrawing:
		return "drawing"
	case RelWorksheet:
		return "worksheet"
	case RelOfficeDocument:
		return "officeDocument"
	default:
		return "other"
	}
}

// Relationship is one <Relationship> element with its target resolved to a package path.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	Kind     RelKind
	External bool
}

type relationshipsXML struct {
	XMLName xml.Name          `xml:"Relationships"`
	Items   []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// Relationships keeps relationships in document order, indexed by id.
type Relationships struct {
	items []Relationship
	byID  map[string]int
}

// ParseRelationships decodes a .rels part. baseDir is the directory of the source part,
// which relative targets are resolved against.
func ParseRelationships(data []byte, baseDir string) (Relationships, error) {
	var doc relationshipsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Relationships{}, fmt.Errorf("parse relationships: %w", err)
	}
	rels := Relationships{byID: make(map[string]int, len(doc.Items))}
	for _, it := range doc.Items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			continue
		}
		if _, dup := rels.byID[id]; dup {
			continue
		}
		rel := Relationship{
			ID:       id,
			Type:     it.Type,
			Kind:     kindOf(it.Type),
			External: strings.EqualFold(it.TargetMode, "External"),
		}
		if rel.External {
			rel.Target = it.Target
		} else {
			rel.Target = ResolveTarget(baseDir, it.Target)
		}
		rels.byID[id] = len(rels.items)
		rels.items = append(rels.items, rel)
	}
	return rels, nil
}

func kindOf(relType string) RelKind {
	t := strings.ToLower(relType)
	switch {
	case strings.HasSuffix(t, "/image"):
		return RelImage
	case strings.HasSuffix(t, "/drawing"):
		return RelDrawing
	case strings.HasSuffix(t, "/worksheet"):
		return RelWorksheet
	case strings.HasSuffix(t, "/officedocument"):
		return RelOfficeDocument
	default:
		return RelOther
	}
}

// ResolveTarget turns a relationship target into a package path without a leading slash.
func ResolveTarget(baseDir, target string) string {
	target = strings.ReplaceAll(strings.TrimSpace(target), "\\", "/")
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	return strings.TrimPrefix(path.Clean(path.Join(baseDir, target)), "/")
}

// RelsPathFor returns the conventional location of the .rels part describing part.
func RelsPathFor(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// Len reports the number of relationships.
func (r Relationships) Len() int { return len(r.items) }

// All returns the relationships in document order.
func (r Relationships) All() []Relationship {
	out := make([]Relationship, len(r.items))
	copy(out, r.items)
	return out
}

// Get looks up a relationship by id.
func (r Relationships) Get(id string) (Relationship, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Relationship{}, false
	}
	return r.items[i], true
}

// Images keeps only the image relationships.
func (r Relationships) Images() Relationships {
	return r.filter(func(rel Relationship) bool { return rel.Kind == RelImage && !rel.External })
}

// First returns the first relationship of the given kind.
func (r Relationships) First(kind RelKind) (Relationship, bool) {
	for _, rel := range r.items {
		if rel.Kind == kind {
			return rel, true
		}
	}
	return Relationship{}, false
}

// Map returns referenceId -> target path.
func (r Relationships) Map() map[string]string {
	m := make(map[string]string, len(r.items))
	for _, rel := range r.items {
		m[rel.ID] = rel.Target
	}
	return m
}

// MatchFilename returns the first relationship, in document order, whose target ends with
// the given file name.
func (r Relationships) MatchFilename(name string) (Relationship, bool) {
	if name == "" {
		return Relationship{}, false
	}
	for _, rel := range r.items {
		if rel.Target == name || strings.HasSuffix(rel.Target, "/"+name) {
			return rel, true
		}
	}
	return Relationship{}, false
}

func (r Relationships) filter(keep func(Relationship) bool) Relationships {
	out := Relationships{byID: make(map[string]int)}
	for _, rel := range r.items {
		if !keep(rel) {
			continue
		}
		out.byID[rel.ID] = len(out.items)
		out.items = append(out.items, rel)
	}
	return out
}
