// cmd/tools/section-registry/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"childcare-registration/pkg/registry"
)

var registryPath string

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{listCmd, validateCmd, updateCmd} {
		fs.StringVar(&registryPath, "path", "", "Path to a sections file (default: built-in registry)")
	}

	key := updateCmd.String("key", "", "Section key (e.g., reference)")
	field := updateCmd.String("field", "", "Field to update (title, description, minItems)")
	value := updateCmd.String("value", "", "New value for the field")

	exportCmd.StringVar(&registryPath, "out", "configs/sections.json", "Where to write the built-in registry")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listSections(); err != nil {
			fmt.Printf("Error listing sections: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d sections.\n", reg.Count())

	case "update":
		updateCmd.Parse(os.Args[2:])
		if registryPath == "" || *key == "" || *field == "" {
			fmt.Println("Error: path, key and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateSection(*key, *field, *value); err != nil {
			fmt.Printf("Error updating section: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated section %s, field %s to %s\n", *key, *field, *value)

	case "export":
		exportCmd.Parse(os.Args[2:])
		if err := saveRegistry(registry.Default(), registryPath); err != nil {
			fmt.Printf("Error exporting registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote built-in registry to %s\n", registryPath)

	case "help":
		fallthrough
	default:
		help()
	}
}

func listSections() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return err
	}

	fmt.Printf("Section registry %s (%d sections)\n", reg.Version, reg.Count())
	for _, s := range reg.Sections {
		kind := "single"
		if s.Repeating {
			kind = "repeating"
			if s.MinItems > 0 {
				kind = fmt.Sprintf("repeating, at least %d", s.MinItems)
			}
		}
		fmt.Printf("  %2d  %-12s %-30s (%s)\n", s.Index, s.Key, s.Title, kind)
	}
	return nil
}

func updateSection(key, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Sections {
		if reg.Sections[i].Key != key {
			continue
		}
		found = true
		switch field {
		case "title":
			reg.Sections[i].Title = value
		case "description":
			reg.Sections[i].Description = value
		case "minItems":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid minItems value: %w", err)
			}
			reg.Sections[i].MinItems = n
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("section %s not found", key)
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	reg.LastUpdated = time.Now().Format("2006-01-02")
	return saveRegistry(reg, registryPath)
}

func saveRegistry(reg *registry.SectionRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: section-registry <command> [flags]

Commands:
  list      Print the sections in form order
  validate  Validate a sections file against the registry schema
  update    Change a section's title, description or minItems
  export    Write the built-in registry to a file for editing
  help      Show this help message

Examples:
  section-registry list
  section-registry export -out configs/sections.json
  section-registry update -path configs/sections.json -key reference -field minItems -value 3
  section-registry validate -path configs/sections.json`)
}
