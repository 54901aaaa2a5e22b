package literal

import "unicode"

// unicodeMn is the Unicode "Mark, nonspacing" category, removed by the
// ascii-fold pipeline (NFD -> drop combining marks -> NFC) to implement the
// accent-folding Non-goal carve-out in spec.md 1: "full-text linguistic
// analysis beyond configurable lowercase/accent-fold/ASCII-fold/
// whitespace-tokenize" is explicitly in scope.
var unicodeMn = unicode.Mn
