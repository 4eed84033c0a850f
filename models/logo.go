package models

import (
	"hash/fnv"
	"strings"
)

// employerLogos is the static employer -> logo classification table.
// Matched case-insensitively on the upper-cased employer name.
var employerLogos = map[string]int{
	"GOV GOIAS":       3,
	"GOV DE GOIAS":    3,
	"PREF GOIANIA":    6,
	"PREF DE GOIANIA": 6,
	"SANEAGO":         7,
	"INSS":            6,
	"INSS BENEF":      61,
	"INSS RMC":        71,
}

// Historical exception list. These names predate the static table and
// keep their fixed codes regardless of it.
var employerLogoOverrides = map[string]int{
	"GOV GOIAS SEG":  31,
	"INSS BENEF SEG": 61,
	"INSS RMC SEG":   71,
}

// defaultLogoCodes is the fallback pool for unmapped employers. The
// legacy system picked one of these at random per call; here the pick is
// a stable hash of the employer name so the same employer always lands
// on the same code (see DESIGN.md).
var defaultLogoCodes = []int{3, 6, 7}

// ResolveLogo maps an employer name to its numeric logo code.
// Pure function: table lookup, then the override list, then a
// deterministic fallback member of defaultLogoCodes.
func ResolveLogo(empregador string) int {
	name := strings.ToUpper(strings.TrimSpace(empregador))
	if name == "" || name == TextSentinel {
		return defaultLogoCodes[0]
	}

	if code, ok := employerLogos[name]; ok {
		return code
	}
	if code, ok := employerLogoOverrides[name]; ok {
		return code
	}

	h := fnv.New32a()
	h.Write([]byte(name))
	return defaultLogoCodes[int(h.Sum32())%len(defaultLogoCodes)]
}
