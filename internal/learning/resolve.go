package learning

import (
	"slices"
	"strings"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
)

// ResolveArmID maps an operator-supplied identifier to a known arm id. It tries
// an exact match, then an exact ":"-suffix match ("bash" finds "tool:exec:bash"),
// then a substring match, and finally returns ident unchanged. Ties go to the
// lexically smallest id.
func ResolveArmID(ident string, known []arm.ID) arm.ID {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return ""
	}
	sorted := slices.Clone(known)
	slices.Sort(sorted)

	for _, id := range sorted {
		if string(id) == ident {
			return id
		}
	}
	for _, id := range sorted {
		if strings.HasSuffix(string(id), ":"+ident) {
			return id
		}
	}
	for _, id := range sorted {
		if strings.Contains(string(id), ident) {
			return id
		}
	}
	return arm.ID(ident)
}
