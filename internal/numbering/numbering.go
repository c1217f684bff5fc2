// Package numbering renders the legal identifiers issued to contracts and
// liquidations and resolves the location code embedded in them.
package numbering

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Series is one independent identifier stream. Its value doubles as the counter
// name in yearly_sequence_counters.
type Series string

const (
	SeriesContract    Series = "contract"
	SeriesLiquidation Series = "liquidation"
)

// Tag is the two-letter marker of the series inside an identifier.
func (s Series) Tag() string {
	switch s {
	case SeriesContract:
		return "HĐ"
	case SeriesLiquidation:
		return "TL"
	default:
		return strings.ToUpper(string(s))
	}
}

const (
	BranchCode   = "CNLK"
	FallbackCode = "XX"
)

type Ward struct {
	Name string
	Code string
}

var wards = []Ward{
	{Name: "Phường Bình Lộc", Code: "BL"},
	{Name: "Phường Long Khánh", Code: "LK"},
	{Name: "Phường Bảo Vinh", Code: "BV"},
	{Name: "Phường Xuân Lập", Code: "XL"},
	{Name: "Phường Hàng Gòn", Code: "HG"},
}

var wardCodes = func() map[string]string {
	m := make(map[string]string, len(wards))
	for _, w := range wards {
		m[NormalizeWard(w.Name)] = w.Code
	}
	return m
}()

// Wards returns the closed ward catalogue in display order.
func Wards() []Ward {
	out := make([]Ward, len(wards))
	copy(out, wards)
	return out
}

// NormalizeWard trims the name and folds it to NFC so decomposed input from
// some clients matches the catalogue.
func NormalizeWard(ward string) string {
	return norm.NFC.String(strings.TrimSpace(ward))
}

// ResolveCode returns the location code for an identifier. Branch contracts
// always use BranchCode; unknown wards fall back to FallbackCode.
func ResolveCode(ward string, isBranch bool) string {
	if isBranch {
		return BranchCode
	}
	if code, ok := wardCodes[NormalizeWard(ward)]; ok {
		return code
	}
	return FallbackCode
}

// Format renders "{sequence}/{yy}.{tag}.{code}" with the sequence padded to at
// least two digits.
func Format(series Series, sequence int64, year int, code string) string {
	return fmt.Sprintf("%02d/%02d.%s.%s", sequence, year%100, series.Tag(), code)
}
