package domain

// Status is the sale state of a lot. The string values are the registry wire
// values.
type Status string

const (
	StatusSold    Status = "vendido"
	StatusVacant  Status = "vazio"
	StatusPending Status = "pendente"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusSold, StatusVacant, StatusPending}

func (s Status) Valid() bool {
	switch s {
	case StatusSold, StatusVacant, StatusPending:
		return true
	}
	return false
}

// Label returns the human-facing name of the status.
func (s Status) Label() string {
	switch s {
	case StatusSold:
		return "Vendido"
	case StatusVacant:
		return "Vazio"
	case StatusPending:
		return "Pendente"
	default:
		return string(s)
	}
}

// Block is a quadra as stored by the registry. The registry identifier travels
// as "_id" and is decoded straight into ID.
type Block struct {
	ID   string `json:"_id" yaml:"id"`
	Lots []Lot  `json:"lotes" yaml:"lotes"`
}

type Lot struct {
	Number int    `json:"numero" yaml:"numero"`
	Status Status `json:"status" yaml:"status"`
	Owner  *Owner `json:"proprietario,omitempty" yaml:"proprietario,omitempty"`
}

type Owner struct {
	Name  string `json:"nome" yaml:"nome"`
	TaxID string `json:"cpf" yaml:"cpf"`
	Phone string `json:"telefone" yaml:"telefone"`
	Email string `json:"email" yaml:"email"`
	Notes string `json:"observacoes" yaml:"observacoes"`
}

// Link is a client-only visual association between two lots of one block.
// It is never sent to the registry.
type Link struct {
	BlockID string
	From    int
	To      int
}

// NextLotNumber returns one more than the highest lot number in the block,
// or 1 when the block has no lots.
func (b Block) NextLotNumber() int {
	highest := 0
	for _, l := range b.Lots {
		if l.Number > highest {
			highest = l.Number
		}
	}
	return highest + 1
}

// IndexOf returns the display position of the lot with the given number, or
// -1 if the block has no such lot.
func (b Block) IndexOf(number int) int {
	for i, l := range b.Lots {
		if l.Number == number {
			return i
		}
	}
	return -1
}

// Lot returns the lot with the given number.
func (b Block) Lot(number int) (Lot, bool) {
	if i := b.IndexOf(number); i >= 0 {
		return b.Lots[i], true
	}
	return Lot{}, false
}

// Clone returns a deep copy so callers can modify lots without touching b.
func (b Block) Clone() Block {
	out := Block{ID: b.ID, Lots: make([]Lot, len(b.Lots))}
	for i, l := range b.Lots {
		out.Lots[i] = l
		if l.Owner != nil {
			o := *l.Owner
			out.Lots[i].Owner = &o
		}
	}
	return out
}
