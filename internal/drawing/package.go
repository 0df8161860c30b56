package drawing

import (
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/joseph-ayodele/catalog-ingest/internal/archive"
)

const (
	rootRelsPath        = "_rels/.rels"
	defaultWorkbookPath = "xl/workbook.xml"
	// FallbackDrawingPath is used when the workbook chain cannot be followed.
	FallbackDrawingPath = "xl/drawings/drawing1.xml"
)

// Drawing links a worksheet to its drawing part.
type Drawing struct {
	Sheet     string
	SheetPath string
	Path      string
	RelsPath  string
}

type workbookXML struct {
	Sheets []sheetXML `xml:"sheets>sheet"`
}

type sheetXML struct {
	Name string     `xml:"name,attr"`
	Attr []xml.Attr `xml:",any,attr"`
}

func (s sheetXML) relID() string {
	for _, a := range s.Attr {
		if a.Name.Local == "id" {
			return a.Value
		}
	}
	return ""
}

// ResolveDrawings follows workbook -> sheet -> drawing for every sheet, in workbook order.
// Sheets without a drawing are omitted. A package without a workbook yields no drawings.
func ResolveDrawings(h *archive.Handle) ([]Drawing, error) {
	wbPath := workbookPath(h)
	data, err := h.ReadEntry(wbPath)
	if errors.Is(err, archive.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var wb workbookXML
	if err := xml.Unmarshal(data, &wb); err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}
	wbRels, err := readRels(h, wbPath)
	if err != nil {
		return nil, err
	}

	var out []Drawing
	for _, s := range wb.Sheets {
		rel, ok := wbRels.Get(s.relID())
		if !ok || rel.Kind != RelWorksheet {
			continue
		}
		sheetRels, err := readRels(h, rel.Target)
		if err != nil {
			return nil, err
		}
		dr, ok := sheetRels.First(RelDrawing)
		if !ok || dr.External {
			continue
		}
		out = append(out, Drawing{
			Sheet:     s.Name,
			SheetPath: rel.Target,
			Path:      dr.Target,
			RelsPath:  RelsPathFor(dr.Target),
		})
	}
	return out, nil
}

// PrimaryDrawing picks the drawing of the named sheet, or of the first sheet when sheet is
// empty. When the workbook chain is unusable the conventional drawing1.xml is used if present.
// ok is false when the sheet has no drawing.
func PrimaryDrawing(h *archive.Handle, sheet string) (Drawing, bool, error) {
	drawings, err := ResolveDrawings(h)
	if err != nil {
		return Drawing{}, false, err
	}
	if len(drawings) == 0 {
		if h.Has(FallbackDrawingPath) {
			return Drawing{Path: FallbackDrawingPath, RelsPath: RelsPathFor(FallbackDrawingPath)}, true, nil
		}
		return Drawing{}, false, nil
	}
	if sheet == "" {
		sheet = firstSheet(h)
	}
	for _, d := range drawings {
		if sheet == "" || d.Sheet == sheet {
			return d, true, nil
		}
	}
	return Drawing{}, false, nil
}

// ResolveImageRelationships returns the image relationships of the primary drawing.
// A package without drawings yields an empty collection.
func ResolveImageRelationships(h *archive.Handle) (Relationships, error) {
	d, ok, err := PrimaryDrawing(h, "")
	if err != nil || !ok {
		return Relationships{}, err
	}
	return d.ImageRelationships(h)
}

// ResolveAnchors returns the anchors of the primary drawing keyed by embed id.
func ResolveAnchors(h *archive.Handle) (map[string]Anchor, error) {
	d, ok, err := PrimaryDrawing(h, "")
	if err != nil || !ok {
		return map[string]Anchor{}, err
	}
	return d.Anchors(h)
}

// ImageRelationships parses this drawing's .rels part.
func (d Drawing) ImageRelationships(h *archive.Handle) (Relationships, error) {
	rels, err := readRels(h, d.Path)
	if err != nil {
		return Relationships{}, err
	}
	return rels.Images(), nil
}

// Anchors parses this drawing's anchors. When the XML breaks off partway, the anchors
// read before the fault are returned together with the error.
func (d Drawing) Anchors(h *archive.Handle) (map[string]Anchor, error) {
	data, err := h.ReadEntry(d.Path)
	if errors.Is(err, archive.ErrEntryNotFound) {
		return map[string]Anchor{}, nil
	}
	if err != nil {
		return map[string]Anchor{}, err
	}
	list, err := ParseAnchors(data)
	return IndexAnchors(list), err
}

// readRels loads the .rels part of part. A missing part yields an empty collection.
func readRels(h *archive.Handle, part string) (Relationships, error) {
	data, err := h.ReadEntry(RelsPathFor(part))
	if errors.Is(err, archive.ErrEntryNotFound) {
		return Relationships{}, nil
	}
	if err != nil {
		return Relationships{}, err
	}
	return ParseRelationships(data, path.Dir(part))
}

func workbookPath(h *archive.Handle) string {
	data, err := h.ReadEntry(rootRelsPath)
	if err != nil {
		return defaultWorkbookPath
	}
	rels, err := ParseRelationships(data, "")
	if err != nil {
		return defaultWorkbookPath
	}
	if rel, ok := rels.First(RelOfficeDocument); ok && strings.HasSuffix(rel.Target, ".xml") {
		return rel.Target
	}
	return defaultWorkbookPath
}

func firstSheet(h *archive.Handle) string {
	data, err := h.ReadEntry(workbookPath(h))
	if err != nil {
		return ""
	}
	var wb workbookXML
	if err := xml.Unmarshal(data, &wb); err != nil || len(wb.Sheets) == 0 {
		return ""
	}
	return wb.Sheets[0].Name
}
