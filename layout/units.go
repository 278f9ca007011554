package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for lengths. The layout engine
// works in centimeters; renderers convert to their native units.

// Unit represents the original unit of a length value as written in a script.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, read as centimeters
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between points, centimeters and twips.
const (
	CmPerPt    = 2.54 / 72
	PtPerCm    = 72 / 2.54
	CmPerInch  = 2.54
	TwipsPerPt = 20
)

// PtToCm converts points to centimeters.
func PtToCm(pt float64) float64 { return pt * CmPerPt }

// CmToPt converts centimeters to points.
func CmToPt(cm float64) float64 { return cm * PtPerCm }

// CmToTwips rounds a length to whole points first, the way word processors store it.
func CmToTwips(cm float64) int {
	return int(cm*PtPerCm+0.5) * TwipsPerPt
}

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// CM converts this length to centimeters. Unit-less values are already centimeters.
func (l Length) CM() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value / 10
	case UnitIN:
		return l.Value * CmPerInch
	case UnitPT:
		return l.Value * CmPerPt
	default:
		return l.Value
	}
}

// PT converts this length to points.
func (l Length) PT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.CM() * PtPerCm
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// ParseLength parses a length string such as "2.5cm", "12pt" or "3".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, err
	}
	return Length{Value: f, Unit: unit}, nil
}
