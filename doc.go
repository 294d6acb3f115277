// Package brewz holds the value types shared by the beverage machine
// simulator: beverages and their recipes, inventory stock levels, brew
// results and the machine status snapshot.
//
// The concurrent controller lives in package machine; the leaf components
// (inventory, outlet limiter, queue, monitor, brew worker) live under internal/.
package brewz
