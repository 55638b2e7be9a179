package game

import "fmt"

const BoardSize = 10

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

type ShipType string

const (
	Carrier    ShipType = "Carrier"
	Battleship ShipType = "Battleship"
	Cruiser    ShipType = "Cruiser"
	Submarine  ShipType = "Submarine"
	Destroyer  ShipType = "Destroyer"
)

const (
	Horizontal = "horizontal"
	Vertical   = "vertical"
)

type Ship struct {
	Type        ShipType `json:"type"`
	Row         int      `json:"row"`
	Col         int      `json:"col"`
	Orientation string   `json:"orientation"`
	Size        int      `json:"size"`
}

// Cells expands the placement into the board cells it occupies.
func (s Ship) Cells() []Cell {
	cells := make([]Cell, 0, s.Size)
	for i := 0; i < s.Size; i++ {
		if s.Orientation == Horizontal {
			cells = append(cells, Cell{Row: s.Row, Col: s.Col + i})
		} else {
			cells = append(cells, Cell{Row: s.Row + i, Col: s.Col})
		}
	}
	return cells
}

func (s Ship) Occupies(c Cell) bool {
	for _, cell := range s.Cells() {
		if cell == c {
			return true
		}
	}
	return false
}

// FleetConfig returns the required ship types and sizes for a ruleset.
// The salvo variant plays with the classic fleet; only turn handling differs.
func FleetConfig(mode string) map[ShipType]int {
	return map[ShipType]int{
		Carrier:    5,
		Battleship: 4,
		Cruiser:    3,
		Submarine:  3,
		Destroyer:  2,
	}
}

// ValidateFleet checks ship count, types, sizes, bounds and overlap.
func ValidateFleet(mode string, ships []Ship) error {
	cfg := FleetConfig(mode)
	if len(ships) != len(cfg) {
		return fmt.Errorf("expected %d ships, got %d", len(cfg), len(ships))
	}

	seen := make(map[ShipType]int)
	occupied := make(map[Cell]ShipType)
	for _, ship := range ships {
		expectedSize, ok := cfg[ship.Type]
		if !ok {
			return fmt.Errorf("invalid ship type: %s", ship.Type)
		}
		if ship.Size != expectedSize {
			return fmt.Errorf("invalid size for %s: expected %d, got %d", ship.Type, expectedSize, ship.Size)
		}
		if ship.Orientation != Horizontal && ship.Orientation != Vertical {
			return fmt.Errorf("invalid orientation for %s: %s", ship.Type, ship.Orientation)
		}
		seen[ship.Type]++

		for _, cell := range ship.Cells() {
			if !cell.InBounds() {
				return fmt.Errorf("%s out of bounds at (%d,%d)", ship.Type, cell.Row, cell.Col)
			}
			if owner, taken := occupied[cell]; taken {
				return fmt.Errorf("%s overlaps %s at (%d,%d)", ship.Type, owner, cell.Row, cell.Col)
			}
			occupied[cell] = ship.Type
		}
	}
	for shipType, count := range seen {
		if count != 1 {
			return fmt.Errorf("exactly one %s required, got %d", shipType, count)
		}
	}
	return nil
}
