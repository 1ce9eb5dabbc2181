// Package runtime selects the Java runtime an instance boots with.
package runtime

import (
	"strconv"
	"strings"

	"github.com/slok/gsx/internal/model"
)

// Newest is the runtime major used when nothing else matches.
const Newest = 21

// SelectionSource tells how a selection was decided.
type SelectionSource string

const (
	SelectionSourceOverride SelectionSource = "override"
	SelectionSourceTable    SelectionSource = "table"
	SelectionSourceFallback SelectionSource = "fallback"
)

// Selection is the runtime selected for a family and version.
type Selection struct {
	Major  int
	Source SelectionSource
}

type versionRange struct {
	upTo  [3]int // Inclusive.
	major int
}

var (
	serverTable = []versionRange{
		{upTo: [3]int{1, 12, 2}, major: 8},
		{upTo: [3]int{1, 16, 5}, major: 11},
		{upTo: [3]int{1, 20, 4}, major: 17},
	}

	loaderTable = []versionRange{
		{upTo: [3]int{1, 16, 5}, major: 8},
		{upTo: [3]int{1, 20, 4}, major: 17},
	}

	neoForgeTable = []versionRange{
		{upTo: [3]int{1, 20, 4}, major: 17},
	}

	familyTables = map[model.Family][]versionRange{
		model.FamilyVanilla:  serverTable,
		model.FamilyPaper:    serverTable,
		model.FamilySpigot:   serverTable,
		model.FamilyPurpur:   serverTable,
		model.FamilyForge:    loaderTable,
		model.FamilyFabric:   loaderTable,
		model.FamilyQuilt:    loaderTable,
		model.FamilyNeoForge: neoForgeTable,
	}
)

// Select returns the runtime major for a family and version. A positive override
// always wins, anything the tables can't place resolves to Newest.
func Select(family model.Family, version string, override int) Selection {
	if override > 0 {
		return Selection{Major: override, Source: SelectionSourceOverride}
	}

	v, ok := parseVersion(version)
	if !ok {
		return Selection{Major: Newest, Source: SelectionSourceFallback}
	}

	for _, r := range familyTables[family] {
		if compareVersion(v, r.upTo) <= 0 {
			return Selection{Major: r.major, Source: SelectionSourceTable}
		}
	}

	return Selection{Major: Newest, Source: SelectionSourceFallback}
}

// parseVersion parses the dotted numeric prefix of a version (`1.20.1-47.2.0` is `1.20.1`).
func parseVersion(s string) ([3]int, bool) {
	var v [3]int

	s = strings.TrimSpace(s)
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return v, false
	}

	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, false
		}
		v[i] = n
	}

	return v, true
}

func compareVersion(a, b [3]int) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
