package device

import (
	"fmt"
	"strconv"
	"strings"
)

// CoordKind distinguishes the three button groups on the controller surface.
type CoordKind int

const (
	KindGrid  CoordKind = iota // 8x8 main grid
	KindCtrl                   // top control row
	KindScene                  // right-hand scene column
)

// Coordinate is the model-independent address of one physical button.
// Grid coordinates use row 1-8 (top to bottom) and col 1-8 (left to right).
// Control buttons use Col 1-8, scene buttons use Row 1-8.
type Coordinate struct {
	Kind CoordKind
	Row  int
	Col  int
}

// Grid returns the coordinate of a main-grid pad.
func Grid(row, col int) Coordinate { return Coordinate{Kind: KindGrid, Row: row, Col: col} }

// Ctrl returns the coordinate of a top-row control button.
func Ctrl(col int) Coordinate { return Coordinate{Kind: KindCtrl, Col: col} }

// Scene returns the coordinate of a right-column scene button.
func Scene(row int) Coordinate { return Coordinate{Kind: KindScene, Row: row} }

func (c Coordinate) Valid() bool {
	switch c.Kind {
	case KindGrid:
		return c.Row >= 1 && c.Row <= 8 && c.Col >= 1 && c.Col <= 8
	case KindCtrl:
		return c.Col >= 1 && c.Col <= 8 && c.Row == 0
	case KindScene:
		return c.Row >= 1 && c.Row <= 8 && c.Col == 0
	}
	return false
}

func (c Coordinate) String() string {
	switch c.Kind {
	case KindCtrl:
		return fmt.Sprintf("ctrl:%d", c.Col)
	case KindScene:
		return fmt.Sprintf("scene:%d", c.Row)
	default:
		return fmt.Sprintf("%d,%d", c.Row, c.Col)
	}
}

// ParseCoordinate parses the string form produced by String: "3,5",
// "ctrl:2" or "scene:7".
func ParseCoordinate(s string) (Coordinate, error) {
	switch {
	case strings.HasPrefix(s, "ctrl:"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "ctrl:"))
		if err != nil {
			return Coordinate{}, fmt.Errorf("invalid control coordinate %q", s)
		}
		c := Ctrl(n)
		if !c.Valid() {
			return Coordinate{}, fmt.Errorf("control coordinate out of range: %q", s)
		}
		return c, nil
	case strings.HasPrefix(s, "scene:"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "scene:"))
		if err != nil {
			return Coordinate{}, fmt.Errorf("invalid scene coordinate %q", s)
		}
		c := Scene(n)
		if !c.Valid() {
			return Coordinate{}, fmt.Errorf("scene coordinate out of range: %q", s)
		}
		return c, nil
	default:
		parts := strings.SplitN(s, ",", 2)
		if len(parts) != 2 {
			return Coordinate{}, fmt.Errorf("invalid coordinate %q", s)
		}
		row, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		col, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return Coordinate{}, fmt.Errorf("invalid coordinate %q", s)
		}
		c := Grid(row, col)
		if !c.Valid() {
			return Coordinate{}, fmt.Errorf("grid coordinate out of range: %q", s)
		}
		return c, nil
	}
}

// MarshalText lets Coordinate serve as a JSON map key.
func (c Coordinate) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Coordinate) UnmarshalText(b []byte) error {
	parsed, err := ParseCoordinate(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// AllCoordinates returns every addressable button in a stable order: the
// grid row by row, then the control row, then the scene column.
func AllCoordinates() []Coordinate {
	coords := make([]Coordinate, 0, 80)
	for row := 1; row <= 8; row++ {
		for col := 1; col <= 8; col++ {
			coords = append(coords, Grid(row, col))
		}
	}
	for col := 1; col <= 8; col++ {
		coords = append(coords, Ctrl(col))
	}
	for row := 1; row <= 8; row++ {
		coords = append(coords, Scene(row))
	}
	return coords
}

// Event is one normalized press or release from the controller.
type Event struct {
	Coord    Coordinate
	Velocity uint8 // 0-127
	Press    bool
}
