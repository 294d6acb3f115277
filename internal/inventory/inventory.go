// Package inventory tracks the machine's ingredient stock.
//
// Every read and every read-modify-write goes through one mutex, so a
// reservation checks and decrements all of a recipe's ingredients as a single
// step: no caller ever sees a partial reservation and no two callers can
// reserve the same unit.
package inventory

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"brewz"
	"brewz/internal/check"
)

// Inventory maps ingredient names to non-negative quantities. Unknown
// ingredients have quantity 0.
type Inventory struct {
	mu    sync.Mutex
	stock map[string]int
	log   *slog.Logger
}

func New() *Inventory {
	return &Inventory{
		stock: make(map[string]int),
		log:   slog.With("component", "inventory"),
	}
}

// Add increases name by qty and returns the new quantity. Negative
// quantities are treated as 0.
func (inv *Inventory) Add(name string, qty int) int {
	if qty < 0 {
		qty = 0
	}

	inv.mu.Lock()
	inv.stock[name] += qty
	total := inv.stock[name]
	inv.mu.Unlock()

	inv.log.Info("Ingredient added.", "ingredient", name, "added", qty, "quantity", total)
	return total
}

// AddAll adds every entry of quantities, in ingredient name order.
func (inv *Inventory) AddAll(quantities map[string]int) {
	for _, name := range slices.Sorted(maps.Keys(quantities)) {
		inv.Add(name, quantities[name])
	}
}

// TryReserve takes every ingredient of recipe out of stock, or nothing.
// On failure it returns the first short ingredient (by name) and false.
func (inv *Inventory) TryReserve(recipe brewz.Recipe) (brewz.Shortage, bool) {
	names := slices.Sorted(maps.Keys(recipe))

	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, name := range names {
		required := recipe[name]
		if available := inv.stock[name]; available < required {
			short := brewz.Shortage{Ingredient: name, Required: required, Available: available}
			inv.log.Warn("Insufficient ingredient.",
				"ingredient", name, "required", required, "found", available)
			return short, false
		}
	}

	for _, name := range names {
		required := recipe[name]
		if required <= 0 {
			continue
		}
		inv.stock[name] -= required
		check.NonNegative("stock["+name+"]", inv.stock[name])
	}
	return brewz.Shortage{}, true
}

// LowStock returns the ingredients whose quantity is below threshold, sorted by name.
func (inv *Inventory) LowStock(threshold int) []brewz.StockLevel {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	var out []brewz.StockLevel
	for _, name := range slices.Sorted(maps.Keys(inv.stock)) {
		if qty := inv.stock[name]; qty < threshold {
			out = append(out, brewz.StockLevel{Name: name, Quantity: qty})
		}
	}
	return out
}

// Quantity returns the current quantity of name.
func (inv *Inventory) Quantity(name string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.stock[name]
}

// Snapshot returns every known ingredient, sorted by name.
func (inv *Inventory) Snapshot() []brewz.StockLevel {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make([]brewz.StockLevel, 0, len(inv.stock))
	for _, name := range slices.Sorted(maps.Keys(inv.stock)) {
		out = append(out, brewz.StockLevel{Name: name, Quantity: inv.stock[name]})
	}
	return out
}
