package config

import (
	"log/slog"

	"brewz"
)

// Ingestor is the part of a machine instructions are applied to.
type Ingestor interface {
	AddIngredient(name string, qty int) int
	AddBeverageList(beverages []brewz.Beverage)
}

// Apply feeds every instruction to m in file order.
func (f *File) Apply(m Ingestor) {
	for _, ins := range f.Instructions {
		f.ApplyInstruction(m, ins)
	}
}

// ApplyInstruction feeds one instruction to m. Beverages get the file's prep
// time. Unknown instructions are skipped with a warning.
func (f *File) ApplyInstruction(m Ingestor, ins Instruction) {
	switch ins.Kind {
	case KindIngredients:
		for _, lvl := range ins.Ingredients {
			m.AddIngredient(lvl.Name, lvl.Quantity)
		}
	case KindBeverages:
		m.AddBeverageList(f.Beverages(ins))
	default:
		slog.Warn("Skipping unknown instruction.", "component", "config", "instruction", ins.Key, "line", ins.Line)
	}
}

// Beverages builds the beverages of ins in file order.
func (f *File) Beverages(ins Instruction) []brewz.Beverage {
	out := make([]brewz.Beverage, 0, len(ins.Beverages))
	for _, nr := range ins.Beverages {
		out = append(out, brewz.NewBeverage(nr.Name, nr.Recipe, brewz.WithPrepTime(f.Settings.PrepTime.Std())))
	}
	return out
}
