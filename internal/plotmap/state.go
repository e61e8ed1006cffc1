package plotmap

import "github.com/vbonduro/loteamento/internal/domain"

// LotRef names one lot of one block.
type LotRef struct {
	BlockID string
	Number  int
}

// State is everything the plot map screen renders. Values are treated as
// immutable: Reduce always returns a fresh State and never writes into the
// slices of the one it was given.
type State struct {
	Blocks     []domain.Block
	SelectedID string
	Links      []domain.Link
	// Panel is the lot whose owner panel is open, nil when closed.
	Panel *LotRef
	// Draft is the owner record being edited in the open panel.
	Draft *domain.Owner
}

// Selected returns the currently selected block, if it still exists.
func (s State) Selected() (domain.Block, bool) {
	if s.SelectedID == "" {
		return domain.Block{}, false
	}
	return s.Block(s.SelectedID)
}

func (s State) Block(id string) (domain.Block, bool) {
	if i := s.blockIndex(id); i >= 0 {
		return s.Blocks[i], true
	}
	return domain.Block{}, false
}

func (s State) blockIndex(id string) int {
	for i, b := range s.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// PanelOpenFor reports whether the owner panel is open on the given lot.
func (s State) PanelOpenFor(blockID string, number int) bool {
	return s.Panel != nil && s.Panel.BlockID == blockID && s.Panel.Number == number
}

// Action is a single state transition. Each concrete type below is one kind of
// mutation.
type Action interface {
	isAction()
}

// BlocksLoaded replaces the whole block list with the registry listing.
type BlocksLoaded struct{ Blocks []domain.Block }

// BlockCreated appends a block returned by the registry.
type BlockCreated struct{ Block domain.Block }

// BlockReplaced swaps in the registry's representation of an existing block.
type BlockReplaced struct{ Block domain.Block }

// BlockDeleted drops a block and clears the selection if it pointed at it.
type BlockDeleted struct{ ID string }

// BlockSelected changes the selection. An empty ID clears it.
type BlockSelected struct{ ID string }

type LinkAdded struct{ Link domain.Link }

// PanelOpened opens the owner panel on a lot with a seeded draft.
type PanelOpened struct {
	Lot   LotRef
	Draft domain.Owner
}

// DraftEdited sets one draft field. Unknown fields are ignored.
type DraftEdited struct {
	Field OwnerField
	Value string
}

// PanelClosed closes the owner panel and discards the draft.
type PanelClosed struct{}

func (BlocksLoaded) isAction()  {}
func (BlockCreated) isAction()  {}
func (BlockReplaced) isAction() {}
func (BlockDeleted) isAction()  {}
func (BlockSelected) isAction() {}
func (LinkAdded) isAction()     {}
func (PanelOpened) isAction()   {}
func (DraftEdited) isAction()   {}
func (PanelClosed) isAction()   {}

// OwnerField identifies an editable owner attribute. Values match the form
// field names used by the web console.
type OwnerField string

const (
	FieldName  OwnerField = "nome"
	FieldTaxID OwnerField = "cpf"
	FieldPhone OwnerField = "telefone"
	FieldEmail OwnerField = "email"
	FieldNotes OwnerField = "observacoes"
)

// OwnerFields lists every editable field in form order.
var OwnerFields = []OwnerField{FieldName, FieldTaxID, FieldPhone, FieldEmail, FieldNotes}

// Reduce applies a to s and returns the resulting state.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case BlocksLoaded:
		s.Blocks = cloneBlocks(a.Blocks)
	case BlockCreated:
		// The registry treats a POST for an existing id as a replace, so the
		// answer supersedes the local copy instead of duplicating it.
		if i := s.blockIndex(a.Block.ID); i >= 0 {
			blocks := cloneBlocks(s.Blocks)
			blocks[i] = a.Block.Clone()
			s.Blocks = blocks
			break
		}
		blocks := make([]domain.Block, 0, len(s.Blocks)+1)
		blocks = append(blocks, s.Blocks...)
		s.Blocks = append(blocks, a.Block.Clone())
	case BlockReplaced:
		blocks := make([]domain.Block, len(s.Blocks))
		for i, b := range s.Blocks {
			if b.ID == a.Block.ID {
				b = a.Block.Clone()
			}
			blocks[i] = b
		}
		s.Blocks = blocks
	case BlockDeleted:
		blocks := make([]domain.Block, 0, len(s.Blocks))
		for _, b := range s.Blocks {
			if b.ID != a.ID {
				blocks = append(blocks, b)
			}
		}
		s.Blocks = blocks
		if s.SelectedID == a.ID {
			s.SelectedID = ""
		}
	case BlockSelected:
		s.SelectedID = a.ID
	case LinkAdded:
		links := make([]domain.Link, 0, len(s.Links)+1)
		links = append(links, s.Links...)
		s.Links = append(links, a.Link)
	case PanelOpened:
		ref := a.Lot
		draft := a.Draft
		s.Panel = &ref
		s.Draft = &draft
	case DraftEdited:
		if s.Draft == nil {
			return s
		}
		draft := *s.Draft
		if !setOwnerField(&draft, a.Field, a.Value) {
			return s
		}
		s.Draft = &draft
	case PanelClosed:
		s.Panel = nil
		s.Draft = nil
	}
	return s
}

func setOwnerField(o *domain.Owner, f OwnerField, v string) bool {
	switch f {
	case FieldName:
		o.Name = v
	case FieldTaxID:
		o.TaxID = v
	case FieldPhone:
		o.Phone = v
	case FieldEmail:
		o.Email = v
	case FieldNotes:
		o.Notes = v
	default:
		return false
	}
	return true
}

// OwnerFieldValue reads one field of o.
func OwnerFieldValue(o domain.Owner, f OwnerField) string {
	switch f {
	case FieldName:
		return o.Name
	case FieldTaxID:
		return o.TaxID
	case FieldPhone:
		return o.Phone
	case FieldEmail:
		return o.Email
	case FieldNotes:
		return o.Notes
	}
	return ""
}

func cloneBlocks(in []domain.Block) []domain.Block {
	out := make([]domain.Block, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
