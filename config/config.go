// Package config loads machine instruction files.
//
// An instruction file is a JSON (or YAML) document with a single "machine"
// mapping. It names the outlet count, optional settings, and a sequence of
// numbered instructions that are applied to a machine in file order:
//
//	{"machine": {
//	  "outlets": {"count_n": 3},
//	  "1_total_items_quantity": {"hot_water": 500},
//	  "2_beverages": {"hot_tea": {"hot_water": 200}}
//	}}
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"brewz"
)

const (
	keyMachine  = "machine"
	keyOutlets  = "outlets"
	keySettings = "settings"
)

// Kind is what an instruction asks the machine to do.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindIngredients
	KindBeverages
)

func (k Kind) String() string {
	switch k {
	case KindIngredients:
		return "total_items_quantity"
	case KindBeverages:
		return "beverages"
	default:
		return "unknown"
	}
}

// InstructionKind strips an instruction key through its first underscore and
// maps the rest to a Kind: "1_beverages" is KindBeverages. A key without an
// underscore is matched as is.
func InstructionKind(key string) Kind {
	if _, rest, ok := strings.Cut(key, "_"); ok {
		key = rest
	}
	switch key {
	case KindIngredients.String():
		return KindIngredients
	case KindBeverages.String():
		return KindBeverages
	default:
		return KindUnknown
	}
}

// NamedRecipe is a beverage entry as written in the file.
type NamedRecipe struct {
	Name   string
	Recipe brewz.Recipe
}

// Instruction is one numbered entry of the machine mapping.
type Instruction struct {
	Key         string
	Kind        Kind
	Ingredients []brewz.StockLevel // KindIngredients, file order
	Beverages   []NamedRecipe      // KindBeverages, file order
	Line        int
}

// File is a parsed instruction file.
type File struct {
	Outlets      int
	Settings     Settings
	Instructions []Instruction
}

// Load reads and parses the instruction file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruction file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Parse parses an instruction document. Mapping order is preserved.
func Parse(data []byte) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty instruction document")
	}

	machine := lookup(doc.Content[0], keyMachine)
	if machine == nil {
		return nil, fmt.Errorf("missing %q mapping", keyMachine)
	}
	if machine.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %q must be a mapping", machine.Line, keyMachine)
	}

	f := &File{}
	seenOutlets := false
	for i := 0; i+1 < len(machine.Content); i += 2 {
		key, value := machine.Content[i], machine.Content[i+1]
		switch key.Value {
		case keyOutlets:
			n, err := parseOutlets(value)
			if err != nil {
				return nil, err
			}
			f.Outlets = n
			seenOutlets = true
		case keySettings:
			if err := value.Decode(&f.Settings); err != nil {
				return nil, fmt.Errorf("line %d: decode settings: %w", value.Line, err)
			}
		default:
			ins, err := parseInstruction(key, value)
			if err != nil {
				return nil, err
			}
			f.Instructions = append(f.Instructions, ins)
		}
	}

	if !seenOutlets {
		return nil, fmt.Errorf("missing %s.count_n: %w", keyOutlets, brewz.ErrInvalidOutlets)
	}
	return f, nil
}

func parseOutlets(value *yaml.Node) (int, error) {
	var outlets struct {
		CountN *int `yaml:"count_n"`
	}
	if err := value.Decode(&outlets); err != nil {
		return 0, fmt.Errorf("line %d: decode outlets: %w", value.Line, err)
	}
	if outlets.CountN == nil {
		return 0, fmt.Errorf("line %d: missing %s.count_n: %w", value.Line, keyOutlets, brewz.ErrInvalidOutlets)
	}
	if *outlets.CountN < 1 {
		return 0, fmt.Errorf("line %d: count_n = %d: %w", value.Line, *outlets.CountN, brewz.ErrInvalidOutlets)
	}
	return *outlets.CountN, nil
}

func parseInstruction(key, value *yaml.Node) (Instruction, error) {
	ins := Instruction{Key: key.Value, Kind: InstructionKind(key.Value), Line: key.Line}

	switch ins.Kind {
	case KindIngredients:
		quantities, err := orderedQuantities(value)
		if err != nil {
			return Instruction{}, fmt.Errorf("instruction %q: %w", ins.Key, err)
		}
		ins.Ingredients = quantities
	case KindBeverages:
		if value.Kind != yaml.MappingNode {
			return Instruction{}, fmt.Errorf("instruction %q: line %d: beverages must be a mapping", ins.Key, value.Line)
		}
		for i := 0; i+1 < len(value.Content); i += 2 {
			name, recipeNode := value.Content[i], value.Content[i+1]
			var recipe brewz.Recipe
			if err := recipeNode.Decode(&recipe); err != nil {
				return Instruction{}, fmt.Errorf("instruction %q: line %d: recipe %q: %w", ins.Key, recipeNode.Line, name.Value, err)
			}
			ins.Beverages = append(ins.Beverages, NamedRecipe{Name: name.Value, Recipe: recipe.Clone()})
		}
	}
	return ins, nil
}

func orderedQuantities(value *yaml.Node) ([]brewz.StockLevel, error) {
	if value.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: quantities must be a mapping", value.Line)
	}
	out := make([]brewz.StockLevel, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		name, qtyNode := value.Content[i], value.Content[i+1]
		var qty int
		if err := qtyNode.Decode(&qty); err != nil {
			return nil, fmt.Errorf("line %d: quantity of %q: %w", qtyNode.Line, name.Value, err)
		}
		out = append(out, brewz.StockLevel{Name: name.Value, Quantity: qty})
	}
	return out, nil
}

// lookup returns the value of key in a mapping node, or nil.
func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
