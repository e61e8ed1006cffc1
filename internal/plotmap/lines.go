package plotmap

// Layout of the link overlay: lots are spaced LotSpacing apart starting at
// LotOffsetX, and each block occupies one BlockSpacing-high row starting at
// BlockOffsetY.
const (
	LotOffsetX   = 20
	LotSpacing   = 30
	BlockOffsetY = 100
	BlockSpacing = 100
)

// Line is one connector in the link overlay.
type Line struct {
	X1, Y1, X2, Y2 int
}

// Lines computes the overlay for every link in s. Links whose block or either
// lot no longer exists produce no line.
func Lines(s State) []Line {
	lines := make([]Line, 0, len(s.Links))
	for _, link := range s.Links {
		bi := s.blockIndex(link.BlockID)
		if bi < 0 {
			continue
		}
		b := s.Blocks[bi]
		i1 := b.IndexOf(link.From)
		i2 := b.IndexOf(link.To)
		if i1 < 0 || i2 < 0 {
			continue
		}
		y := bi*BlockSpacing + BlockOffsetY
		lines = append(lines, Line{
			X1: LotOffsetX + i1*LotSpacing,
			Y1: y,
			X2: LotOffsetX + i2*LotSpacing,
			Y2: y,
		})
	}
	return lines
}

// IsLinked reports whether any link in s touches the given lot.
func IsLinked(s State, blockID string, number int) bool {
	for _, l := range s.Links {
		if l.BlockID == blockID && (l.From == number || l.To == number) {
			return true
		}
	}
	return false
}
