package brewz

import (
	"maps"
	"slices"
	"time"
)

// DefaultPrepTime is how long a beverage takes to brew when no prep time is given.
const DefaultPrepTime = 7 * time.Second

// Recipe maps an ingredient name to the quantity one beverage consumes.
type Recipe map[string]int

// Clone returns an independent copy of the recipe with negative quantities
// clamped to zero. A nil recipe clones to an empty one.
func (r Recipe) Clone() Recipe {
	out := make(Recipe, len(r))
	for name, qty := range r {
		if qty < 0 {
			qty = 0
		}
		out[name] = qty
	}
	return out
}

// Beverage is an immutable brew request. The recipe is copied when the
// beverage is built and again every time it is read.
type Beverage struct {
	name     string
	recipe   Recipe
	prepTime time.Duration
}

// BeverageOption configures a Beverage at construction.
type BeverageOption func(*Beverage)

// WithPrepTime overrides DefaultPrepTime. Non-positive durations are ignored.
func WithPrepTime(d time.Duration) BeverageOption {
	return func(b *Beverage) {
		if d > 0 {
			b.prepTime = d
		}
	}
}

// NewBeverage builds a beverage from a copy of recipe.
func NewBeverage(name string, recipe Recipe, opts ...BeverageOption) Beverage {
	b := Beverage{
		name:     name,
		recipe:   recipe.Clone(),
		prepTime: DefaultPrepTime,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b Beverage) Name() string { return b.name }

func (b Beverage) PrepTime() time.Duration { return b.prepTime }

// Recipe returns a copy of the recipe; mutating it does not affect b.
func (b Beverage) Recipe() Recipe {
	return b.recipe.Clone()
}

// Required returns the quantity of ingredient the recipe needs, 0 if absent.
func (b Beverage) Required(ingredient string) int {
	return b.recipe[ingredient]
}

// Ingredients returns the recipe's ingredient names in sorted order.
func (b Beverage) Ingredients() []string {
	return slices.Sorted(maps.Keys(b.recipe))
}
