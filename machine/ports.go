package machine

import (
	"context"

	"brewz"
)

// Journal records the outcome of every brew attempt. In production this is
// the SQLite journal; tests can use a slice.
type Journal interface {
	Record(ctx context.Context, r brewz.BrewResult) error
}

// Ingredients is what the dispatcher needs from the stock.
type Ingredients interface {
	Add(name string, qty int) int
	AddAll(quantities map[string]int)
	TryReserve(recipe brewz.Recipe) (brewz.Shortage, bool)
	LowStock(threshold int) []brewz.StockLevel
	Snapshot() []brewz.StockLevel
}
