package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyCategory groups keybindings by function.
type KeyCategory string

const (
	CategoryNavigation KeyCategory = "navigation"
	CategorySystem     KeyCategory = "system"
	CategoryData       KeyCategory = "data"
)

// KeyEntry is a registered keybinding with metadata.
type KeyEntry struct {
	// Binding is the charmbracelet key binding.
	Binding key.Binding
	// Category groups this binding by function.
	Category KeyCategory
	// Since is the version where this binding was introduced.
	Since string
}

// KeyRegistry is the single source of truth for the dashboard's
// keybindings. The keys command and the generated man page both read
// from here.
type KeyRegistry struct {
	Entries []KeyEntry
}

// DefaultRegistry returns the canonical key registry. Entries reference
// the same bindings the Update loop matches against, so the registry
// cannot drift from the live behavior.
func DefaultRegistry() *KeyRegistry {
	return &KeyRegistry{
		Entries: []KeyEntry{
			// Navigation
			{Binding: keys.NextTab, Category: CategoryNavigation, Since: "0.1.0"},
			{Binding: keys.PrevTab, Category: CategoryNavigation, Since: "0.1.0"},
			{Binding: keys.Tab1, Category: CategoryNavigation, Since: "0.1.0"},
			{Binding: keys.Tab2, Category: CategoryNavigation, Since: "0.1.0"},

			// Data
			{Binding: keys.Refresh, Category: CategoryData, Since: "0.2.0"},

			// System
			{Binding: keys.Help, Category: CategorySystem, Since: "0.2.0"},
			{Binding: keys.Quit, Category: CategorySystem, Since: "0.1.0"},
		},
	}
}

// ByCategory returns all entries matching the given category.
func (r *KeyRegistry) ByCategory(cat KeyCategory) []KeyEntry {
	var result []KeyEntry
	for _, e := range r.Entries {
		if e.Category == cat {
			result = append(result, e)
		}
	}
	return result
}

// HasDuplicateKeys checks for conflicting key assignments. Returns a
// list of conflicts (empty if none).
func (r *KeyRegistry) HasDuplicateKeys() []string {
	seen := make(map[string]string)
	var conflicts []string

	for _, e := range r.Entries {
		for _, k := range e.Binding.Keys() {
			if existing, ok := seen[k]; ok {
				conflicts = append(conflicts, fmt.Sprintf(
					"duplicate key %q: %s vs %s",
					k, existing, e.Binding.Help().Desc,
				))
			} else {
				seen[k] = e.Binding.Help().Desc
			}
		}
	}

	return conflicts
}

// FormatTable returns a formatted table of all keybindings, grouped by
// category.
func (r *KeyRegistry) FormatTable() string {
	var sb strings.Builder

	categories := []KeyCategory{CategoryNavigation, CategoryData, CategorySystem}
	for _, cat := range categories {
		entries := r.ByCategory(cat)
		if len(entries) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("\n%s:\n", strings.ToUpper(string(cat))))
		sb.WriteString(strings.Repeat("-", 50) + "\n")

		for _, e := range entries {
			keysStr := strings.Join(e.Binding.Keys(), ", ")
			sb.WriteString(fmt.Sprintf("  %-20s  %s\n", keysStr, e.Binding.Help().Desc))
		}
	}

	return sb.String()
}

// FormatJSON returns a JSON-compatible slice of binding descriptions.
func (r *KeyRegistry) FormatJSON() []map[string]string {
	var result []map[string]string
	for _, e := range r.Entries {
		result = append(result, map[string]string{
			"keys":     strings.Join(e.Binding.Keys(), ", "),
			"desc":     e.Binding.Help().Desc,
			"category": string(e.Category),
			"since":    e.Since,
		})
	}
	return result
}
