package domain

import "fmt"

type SpotType string

const (
	SpotStandard SpotType = "standard"
	SpotEV       SpotType = "ev"
	SpotVIP      SpotType = "vip"
)

func (t SpotType) Valid() bool {
	switch t {
	case SpotStandard, SpotEV, SpotVIP:
		return true
	}
	return false
}

// Spot is an addressable parking location on a floor grid.
type Spot struct {
	ID        int64
	Floor     int
	Row       int
	Col       int
	Label     string
	Type      SpotType
	IsBlocked bool
}

// SpotLabel names a grid position: row 0 is "A", column 0 is "1", so (1, 5) is "B6".
func SpotLabel(row, col int) string {
	return fmt.Sprintf("%c%d", rune('A'+row), col+1)
}
