// Package machine owns a beverage machine's stock, pending queue, outlets and
// lifecycle.
//
// A Machine accepts ingredients and beverages at any time. While running, a
// controller goroutine dispatches queued beverages in arrival order to brew
// goroutines and a monitor goroutine reports low stock.
package machine
