package drawing

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// AnchorKind is the spreadsheetDrawing anchor element a picture was placed with.
type AnchorKind int

const (
	TwoCell AnchorKind = iota + 1
	OneCell
	Absolute
)

func (k AnchorKind) String() string {
	switch k {
	case TwoCell:
		return "twoCellAnchor"
	case OneCell:
		return "oneCellAnchor"
	case Absolute:
		return "absoluteAnchor"
	default:
		return "unknown"
	}
}

// Anchor ties an embedded picture to a cell position.
// FromRow and ToRow are the raw 0-based markers; Row and Col are 1-based.
type Anchor struct {
	RefID   string
	Kind    AnchorKind
	Name    string
	FromRow *int
	ToRow   *int
	FromCol *int
	ToCol   *int
	Row     int
	Col     int
}

type marker struct {
	Col *int
	Row *int
}

type picture struct {
	embed string
	name  string
}

// ParseAnchors returns every anchored picture with a resolvable row, in document order.
// Shapes that are not pictures, and anchors without a row span, are skipped.
func ParseAnchors(data []byte) ([]Anchor, error) {
	var out []Anchor
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("parse drawing: %w", err)
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		var kind AnchorKind
		switch se.Name.Local {
		case "twoCellAnchor":
			kind = TwoCell
		case "oneCellAnchor":
			kind = OneCell
		case "absoluteAnchor":
			kind = Absolute
		default:
			continue
		}
		anchors, err := parseAnchor(decoder, kind)
		out = append(out, anchors...)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", kind, err)
		}
	}
	return out, nil
}

// IndexAnchors keys anchors by embed id. The first anchor for an id wins.
func IndexAnchors(anchors []Anchor) map[string]Anchor {
	m := make(map[string]Anchor, len(anchors))
	for _, a := range anchors {
		if _, dup := m[a.RefID]; dup {
			continue
		}
		m[a.RefID] = a
	}
	return m
}

func parseAnchor(decoder *xml.Decoder, kind AnchorKind) ([]Anchor, error) {
	var from, to *marker
	var pics []picture
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "from", "to":
				if depth != 1 || kind == Absolute {
					if err := decoder.Skip(); err != nil {
						return nil, err
					}
					continue
				}
				m, err := parseMarker(decoder)
				if err != nil {
					return nil, err
				}
				if t.Name.Local == "from" {
					from = m
				} else {
					to = m
				}
			case "pic":
				p, err := parsePicture(decoder)
				if err != nil {
					return nil, err
				}
				if p.embed != "" {
					pics = append(pics, p)
				}
			case "sp", "cxnSp", "graphicFrame", "contentPart":
				if err := decoder.Skip(); err != nil {
					return nil, err
				}
			default:
				// grpSp and its properties: descend so nested pics are found
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	if kind == OneCell {
		to = nil
	}
	var out []Anchor
	for _, p := range pics {
		a := Anchor{RefID: p.embed, Kind: kind, Name: p.name}
		if from != nil {
			a.FromRow, a.FromCol = validIndex(from.Row), validIndex(from.Col)
		}
		if to != nil {
			a.ToRow, a.ToCol = validIndex(to.Row), validIndex(to.Col)
		}
		row, ok := logical(a.ToRow, a.FromRow)
		if !ok {
			continue
		}
		a.Row = row
		a.Col, _ = logical(a.ToCol, a.FromCol)
		out = append(out, a)
	}
	return out, nil
}

// parseMarker reads the col and row children of xdr:from or xdr:to.
// Values that are not integers leave the field unset.
func parseMarker(decoder *xml.Decoder) (*marker, error) {
	m := &marker{}
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row", "col":
				text, err := readElementText(decoder)
				if err != nil {
					return nil, err
				}
				n, err := strconv.Atoi(strings.TrimSpace(text))
				if err != nil {
					continue
				}
				if t.Name.Local == "row" {
					m.Row = &n
				} else {
					m.Col = &n
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return m, nil
}

func readElementText(decoder *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return sb.String(), err
		}
		switch t := token.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return sb.String(), nil
}

func parsePicture(decoder *xml.Decoder) (picture, error) {
	var p picture
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return p, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "blip":
				if p.embed == "" {
					p.embed = attr(t, "embed")
				}
			case "cNvPr":
				p.name = attr(t, "name")
			}
		case xml.EndElement:
			depth--
		}
	}
	return p, nil
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func validIndex(v *int) *int {
	if v == nil || *v < 0 {
		return nil
	}
	n := *v
	return &n
}

// logical prefers the end marker and converts to a 1-based index.
func logical(to, from *int) (int, bool) {
	switch {
	case to != nil:
		return *to + 1, true
	case from != nil:
		return *from + 1, true
	default:
		return 0, false
	}
}
