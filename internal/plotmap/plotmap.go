package plotmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vbonduro/loteamento/internal/domain"
)

var (
	ErrUnknownBlock  = errors.New("unknown block")
	ErrUnknownLot    = errors.New("unknown lot")
	ErrInvalidStatus = errors.New("invalid lot status")
)

// Prompts shown by the dialogs PlotMap opens.
const (
	NewBlockPrompt = "Digite o nome da nova quadra:"
	linkPromptFmt  = "Interligar Lote %d com qual número?"
)

// LinkPrompt returns the question asked when linking the given lot.
func LinkPrompt(number int) string {
	return fmt.Sprintf(linkPromptFmt, number)
}

// Registry is the subset of registry.Client that PlotMap requires.
type Registry interface {
	List(ctx context.Context) ([]domain.Block, error)
	Create(ctx context.Context, id string) (domain.Block, error)
	Replace(ctx context.Context, b domain.Block) (domain.Block, error)
	Delete(ctx context.Context, id string) error
	AddLot(ctx context.Context, id string, lot domain.Lot) (domain.Block, error)
	UpdateLotStatus(ctx context.Context, id string, number int, status domain.Status) (domain.Block, error)
	UpdateOwner(ctx context.Context, id string, number int, owner domain.Owner) (domain.Block, error)
}

// PlotMap owns the plot map screen state and performs every user action
// against the registry. Each mutating action issues exactly one registry
// request and, on success, replaces local state with the registry's answer.
// On failure the state is left as it was and the error is returned.
//
// Concurrent actions are not serialized: two in-flight requests for the same
// block each replace it when they complete, in completion order.
type PlotMap struct {
	store    *Store
	registry Registry
	logger   *slog.Logger
}

func New(reg Registry, logger *slog.Logger) *PlotMap {
	return &PlotMap{
		store:    NewStore(State{}),
		registry: reg,
		logger:   logger,
	}
}

// Store exposes the underlying store, mainly to register side-effect hooks.
func (p *PlotMap) Store() *Store { return p.store }

func (p *PlotMap) State() State { return p.store.State() }

func (p *PlotMap) Totals() Totals { return ComputeTotals(p.store.State().Blocks) }

func (p *PlotMap) Lines() []Line { return Lines(p.store.State()) }

// Load fetches every block from the registry.
func (p *PlotMap) Load(ctx context.Context) error {
	blocks, err := p.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}
	p.store.Dispatch(BlocksLoaded{Blocks: blocks})
	return nil
}

// AddBlock asks d for a block name and creates it. It reports whether a block
// was created; a cancelled or blank answer is not an error.
func (p *PlotMap) AddBlock(ctx context.Context, d Dialog) (bool, error) {
	answer, err := d.Prompt(ctx, NewBlockPrompt)
	if errors.Is(err, ErrDialogCancelled) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prompt block name: %w", err)
	}
	name := strings.TrimSpace(answer)
	if name == "" {
		return false, nil
	}

	b, err := p.registry.Create(ctx, name)
	if err != nil {
		return false, fmt.Errorf("create block %q: %w", name, err)
	}
	p.store.Dispatch(BlockCreated{Block: b})
	return true, nil
}

func (p *PlotMap) DeleteBlock(ctx context.Context, id string) error {
	if err := p.registry.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete block %q: %w", id, err)
	}
	p.store.Dispatch(BlockDeleted{ID: id})
	return nil
}

// Select makes id the selected block. Unknown ids are ignored.
func (p *PlotMap) Select(id string) bool {
	if _, ok := p.store.State().Block(id); !ok {
		return false
	}
	p.store.Dispatch(BlockSelected{ID: id})
	return true
}

// AddLot appends a vacant lot numbered after the highest existing one.
func (p *PlotMap) AddLot(ctx context.Context, blockID string) error {
	b, ok := p.store.State().Block(blockID)
	if !ok {
		return fmt.Errorf("add lot to %q: %w", blockID, ErrUnknownBlock)
	}
	lot := domain.Lot{
		Number: b.NextLotNumber(),
		Status: domain.StatusVacant,
		Owner:  &domain.Owner{},
	}
	updated, err := p.registry.AddLot(ctx, blockID, lot)
	if err != nil {
		return fmt.Errorf("add lot %d to %q: %w", lot.Number, blockID, err)
	}
	p.store.Dispatch(BlockReplaced{Block: updated})
	return nil
}

func (p *PlotMap) UpdateLotStatus(ctx context.Context, blockID string, number int, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("update lot %d of %q: %w: %q", number, blockID, ErrInvalidStatus, status)
	}
	updated, err := p.registry.UpdateLotStatus(ctx, blockID, number, status)
	if err != nil {
		return fmt.Errorf("update lot %d of %q: %w", number, blockID, err)
	}
	p.store.Dispatch(BlockReplaced{Block: updated})
	return nil
}

// DeleteLot removes the lot locally and posts the whole block document back to
// the registry, unlike AddLot and UpdateLotStatus which use the lot routes.
func (p *PlotMap) DeleteLot(ctx context.Context, blockID string, number int) error {
	b, ok := p.store.State().Block(blockID)
	if !ok {
		return fmt.Errorf("delete lot from %q: %w", blockID, ErrUnknownBlock)
	}
	doc := domain.Block{ID: b.ID, Lots: make([]domain.Lot, 0, len(b.Lots))}
	for _, l := range b.Lots {
		if l.Number != number {
			doc.Lots = append(doc.Lots, l)
		}
	}
	updated, err := p.registry.Replace(ctx, doc)
	if err != nil {
		return fmt.Errorf("delete lot %d from %q: %w", number, blockID, err)
	}
	p.store.Dispatch(BlockReplaced{Block: updated})
	return nil
}

// LinkLot asks d for a second lot number and links it to number within the
// block. Non-numeric or blank answers are discarded. The target lot is not
// checked for existence here; stale links are skipped when rendering.
func (p *PlotMap) LinkLot(ctx context.Context, blockID string, number int, d Dialog) (bool, error) {
	answer, err := d.Prompt(ctx, LinkPrompt(number))
	if errors.Is(err, ErrDialogCancelled) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prompt link target: %w", err)
	}
	other, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		p.logger.Debug("link discarded", "block", blockID, "lot", number, "answer", answer)
		return false, nil
	}
	p.store.Dispatch(LinkAdded{Link: domain.Link{BlockID: blockID, From: number, To: other}})
	return true, nil
}

// ToggleOwnerPanel opens the owner panel on a lot, or closes it if it is
// already open there. Opening a panel while another is open closes the other
// first, which saves its draft.
func (p *PlotMap) ToggleOwnerPanel(ctx context.Context, blockID string, number int) error {
	st := p.store.State()
	if st.PanelOpenFor(blockID, number) {
		return p.CloseOwnerPanel(ctx)
	}

	b, ok := st.Block(blockID)
	if !ok {
		return fmt.Errorf("open owner panel on %q: %w", blockID, ErrUnknownBlock)
	}
	lot, ok := b.Lot(number)
	if !ok {
		return fmt.Errorf("open owner panel on lot %d of %q: %w", number, blockID, ErrUnknownLot)
	}

	var closeErr error
	if st.Panel != nil {
		closeErr = p.CloseOwnerPanel(ctx)
	}

	var draft domain.Owner
	if lot.Owner != nil {
		draft = *lot.Owner
	}
	p.store.Dispatch(PanelOpened{Lot: LotRef{BlockID: blockID, Number: number}, Draft: draft})
	return closeErr
}

// EditDraft updates one field of the open panel's draft. It has no effect
// when no panel is open.
func (p *PlotMap) EditDraft(field OwnerField, value string) {
	p.store.Dispatch(DraftEdited{Field: field, Value: value})
}

// CloseOwnerPanel saves the draft with a single registry request, then clears
// the draft and closes the panel. The panel closes even if the save fails.
func (p *PlotMap) CloseOwnerPanel(ctx context.Context) error {
	st := p.store.State()
	if st.Panel == nil {
		return nil
	}
	ref := *st.Panel
	var draft domain.Owner
	if st.Draft != nil {
		draft = *st.Draft
	}

	updated, err := p.registry.UpdateOwner(ctx, ref.BlockID, ref.Number, draft)
	if err == nil {
		p.store.Dispatch(BlockReplaced{Block: updated})
	}
	p.store.Dispatch(PanelClosed{})
	if err != nil {
		return fmt.Errorf("save owner of lot %d in %q: %w", ref.Number, ref.BlockID, err)
	}
	return nil
}
