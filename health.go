package brewz

import "fmt"

// StockLevel is the quantity of one ingredient held by the machine.
type StockLevel struct {
	Name     string
	Quantity int
}

func (s StockLevel) String() string {
	return fmt.Sprintf("%s=%d", s.Name, s.Quantity)
}

// Shortage describes the first ingredient that blocked a reservation.
type Shortage struct {
	Ingredient string
	Required   int
	Available  int
}

// Missing returns how many units were lacking.
func (s Shortage) Missing() int {
	if s.Required <= s.Available {
		return 0
	}
	return s.Required - s.Available
}

func (s Shortage) String() string {
	return fmt.Sprintf("%s: required %d, found %d", s.Ingredient, s.Required, s.Available)
}
