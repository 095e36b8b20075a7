// Package scenario describes the electricity-price and time-period
// combinations a test case is swept over.
package scenario

import "fmt"

// UserDefined names the single run that uses the test case's own timing
// instead of a price/period pair.
const UserDefined = "user_defined"

// Params is one scenario handed to the control test.
type Params struct {
	TimePeriod       Value `json:"time_period"`
	ElectricityPrice Value `json:"electricity_price"`
}

// Name joins price and period with a literal '+', price first.
func Name(price, period Value) string {
	return price.String() + "+" + period.String()
}

func (p Params) Name() string {
	return Name(p.ElectricityPrice, p.TimePeriod)
}

func (p Params) String() string {
	return fmt.Sprintf("{time_period: %s, electricity_price: %s}", p.TimePeriod, p.ElectricityPrice)
}

// Product returns every (price, period) pair, iterating periods inside
// prices.
func Product(prices, periods []Value) []Params {
	combos := grid([][]Value{prices, periods})
	out := make([]Params, 0, len(combos))
	for _, c := range combos {
		out = append(out, Params{ElectricityPrice: c[0], TimePeriod: c[1]})
	}
	return out
}

// Names lists the scenario names of params in order.
func Names(params []Params) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name()
	}
	return names
}

func grid(axes [][]Value) [][]Value {
	var out [][]Value
	gridRecursive(axes, 0, make([]Value, 0, len(axes)), &out)
	return out
}

func gridRecursive(axes [][]Value, depth int, current []Value, out *[][]Value) {
	if depth == len(axes) {
		combo := make([]Value, len(current))
		copy(combo, current)
		*out = append(*out, combo)
		return
	}
	for _, v := range axes[depth] {
		gridRecursive(axes, depth+1, append(current, v), out)
	}
}
