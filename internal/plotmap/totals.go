package plotmap

import "github.com/vbonduro/loteamento/internal/domain"

// Totals counts lots across every block.
type Totals struct {
	Total   int
	Sold    int
	Vacant  int
	Pending int
}

// ComputeTotals is recomputed on every render; the data set is small enough
// that nothing is cached.
func ComputeTotals(blocks []domain.Block) Totals {
	var t Totals
	for _, b := range blocks {
		for _, l := range b.Lots {
			t.Total++
			switch l.Status {
			case domain.StatusSold:
				t.Sold++
			case domain.StatusVacant:
				t.Vacant++
			case domain.StatusPending:
				t.Pending++
			}
		}
	}
	return t
}

// ByStatus returns the count for s.
func (t Totals) ByStatus(s domain.Status) int {
	switch s {
	case domain.StatusSold:
		return t.Sold
	case domain.StatusVacant:
		return t.Vacant
	case domain.StatusPending:
		return t.Pending
	}
	return 0
}
