package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/OpenMined/cpu-tracker-leader/display/tui"
)

// runKeysCommand prints all dashboard keybindings to stdout.
func runKeysCommand(format string) {
	reg := tui.DefaultRegistry()

	switch format {
	case "json":
		data, _ := json.MarshalIndent(reg.FormatJSON(), "", "  ")
		fmt.Println(string(data))

	default: // "table"
		fmt.Print(reg.FormatTable())
	}

	for _, conflict := range reg.HasDuplicateKeys() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", conflict)
	}
}
