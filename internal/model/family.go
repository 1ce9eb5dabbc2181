package model

import (
	"fmt"
	"strings"
)

// Family is the server distribution an instance runs.
type Family string

const (
	FamilyVanilla  Family = "vanilla"
	FamilyPaper    Family = "paper"
	FamilySpigot   Family = "spigot"
	FamilyPurpur   Family = "purpur"
	FamilyFabric   Family = "fabric"
	FamilyQuilt    Family = "quilt"
	FamilyForge    Family = "forge"
	FamilyNeoForge Family = "neoforge"
)

// Families returns all the supported families.
func Families() []Family {
	return []Family{
		FamilyVanilla,
		FamilyPaper,
		FamilySpigot,
		FamilyPurpur,
		FamilyFabric,
		FamilyQuilt,
		FamilyForge,
		FamilyNeoForge,
	}
}

// ParseFamily parses a family name, case insensitive.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Families() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown server family %q: %w", s, ErrNotValid)
}

// Modded returns true when the family loads add-ons through a mod loader.
func (f Family) Modded() bool {
	switch f {
	case FamilyFabric, FamilyQuilt, FamilyForge, FamilyNeoForge:
		return true
	}
	return false
}

// LoaderFamily is the mod loader an add-on targets.
type LoaderFamily string

const (
	LoaderFabric   LoaderFamily = "fabric"
	LoaderQuilt    LoaderFamily = "quilt"
	LoaderForge    LoaderFamily = "forge"
	LoaderNeoForge LoaderFamily = "neoforge"
)
