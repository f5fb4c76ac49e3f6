package event

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// FreeOrUnavailable is the sentinel price for events that are free or whose
// price could not be determined.
const FreeOrUnavailable = "Free or unavailable"

// freeSynonyms are matched case-insensitively after folding. They cover the
// source languages currently scraped (Spanish, Galician, English) plus the
// numeric zero spellings the ticketing sites emit.
var freeSynonyms = []string{
	"",
	"0",
	"0.00",
	"0,00",
	"free",
	"gratis",
	"gratuito",
	"gratuíto",
	"de balde",
}

type PriceNormalizer struct {
	folder cases.Caser
	free   map[string]bool
}

func NewPriceNormalizer() *PriceNormalizer {
	folder := cases.Fold()
	free := make(map[string]bool, len(freeSynonyms))
	for _, s := range freeSynonyms {
		free[folder.String(s)] = true
	}
	return &PriceNormalizer{folder: folder, free: free}
}

// Normalize canonicalizes a free-text price into a display string or the
// FreeOrUnavailable sentinel. Missing input and recognized "free" synonyms map
// to the sentinel; anything else passes through quote-escaped.
func (n *PriceNormalizer) Normalize(raw any) string {
	if raw == nil {
		return FreeOrUnavailable
	}

	switch v := raw.(type) {
	case int:
		if v == 0 {
			return FreeOrUnavailable
		}
	case int64:
		if v == 0 {
			return FreeOrUnavailable
		}
	case float64:
		if v == 0 {
			return FreeOrUnavailable
		}
	}

	price := EscapeQuotes(strings.TrimSpace(fmt.Sprint(raw)))
	if n.free[n.folder.String(price)] {
		return FreeOrUnavailable
	}

	return price
}
