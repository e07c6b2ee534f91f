package room

import (
	"encoding/json"
	"fmt"
)

// BoardSize is the number of cells on the board. Always 9.
const BoardSize = 9

// Cell is one board cell: empty, or claimed by a seat. The zero value is
// empty. On the wire an empty cell is JSON null and a claimed cell is the
// seat name, matching the record format clients already parse.
type Cell string

const (
	CellEmpty Cell = ""
	CellHost  Cell = Cell(SeatHost)
	CellGuest Cell = Cell(SeatGuest)
)

// CellFor returns the cell value claiming for the given seat.
func CellFor(seat Seat) Cell {
	return Cell(seat)
}

// Board is the fixed 9-cell playing field, indexed 0-8 row-major.
type Board [BoardSize]Cell

// MarshalJSON encodes the board as a 9-element array with null for empty
// cells.
func (b Board) MarshalJSON() ([]byte, error) {
	cells := make([]*string, BoardSize)
	for i, c := range b {
		if c != CellEmpty {
			s := string(c)
			cells[i] = &s
		}
	}
	return json.Marshal(cells)
}

// UnmarshalJSON decodes a 9-element array with null for empty cells.
func (b *Board) UnmarshalJSON(data []byte) error {
	var cells []*string
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	if len(cells) != BoardSize {
		return fmt.Errorf("board must have %d cells, got %d", BoardSize, len(cells))
	}
	for i, c := range cells {
		if c == nil {
			b[i] = CellEmpty
			continue
		}
		switch Cell(*c) {
		case CellHost, CellGuest:
			b[i] = Cell(*c)
		default:
			return fmt.Errorf("invalid board cell %q at index %d", *c, i)
		}
	}
	return nil
}

// Full reports whether every cell is claimed.
func (b Board) Full() bool {
	for _, c := range b {
		if c == CellEmpty {
			return false
		}
	}
	return true
}
