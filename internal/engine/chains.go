package engine

import "errors"

// ErrUnknownChain flags a chain name absent from the classification table.
// It only disables the category fallback for that side of a route; it never
// aborts a resolution.
var ErrUnknownChain = errors.New("engine: unknown chain")

// ChainClass is the layer classification of a chain. A chain is never both.
type ChainClass string

const (
	ClassL1 ChainClass = "L1"
	ClassL2 ChainClass = "L2"
)

// Valid reports whether c is a known classification.
func (c ChainClass) Valid() bool {
	return c == ClassL1 || c == ClassL2
}

// RouteCategory pairs the origin and destination chain classes of a route.
type RouteCategory string

const (
	CategoryL1ToL1 RouteCategory = "L1_to_L1"
	CategoryL1ToL2 RouteCategory = "L1_to_L2"
	CategoryL2ToL1 RouteCategory = "L2_to_L1"
	CategoryL2ToL2 RouteCategory = "L2_to_L2"
)

// CategoryFor derives the route category from the two chain classes.
func CategoryFor(origin, destination ChainClass) RouteCategory {
	return RouteCategory(string(origin) + "_to_" + string(destination))
}

// Valid reports whether c is one of the four route categories.
func (c RouteCategory) Valid() bool {
	switch c {
	case CategoryL1ToL1, CategoryL1ToL2, CategoryL2ToL1, CategoryL2ToL2:
		return true
	}
	return false
}
