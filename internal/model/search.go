package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldSearch is the case-insensitive form used for both stored search text and
// search terms, so matching never depends on the database collation. Runs of
// whitespace collapse to one space.
func FoldSearch(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.Join(strings.Fields(s), " ")))
}

// ContractSearchText is the stored search key of a contract. Fields are joined
// by a newline so a term cannot match across two of them.
func ContractSearchText(contractNumber, ownerName, plotNumber string) string {
	return strings.Join([]string{
		FoldSearch(contractNumber),
		FoldSearch(ownerName),
		FoldSearch(plotNumber),
	}, "\n")
}
