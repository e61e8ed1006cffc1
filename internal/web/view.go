package web

import (
	"net/url"
	"strconv"

	"github.com/vbonduro/loteamento/internal/domain"
	"github.com/vbonduro/loteamento/internal/plotmap"
)

// pageView is everything the plot map page renders. It is rebuilt from the
// session state on every request.
type pageView struct {
	Blocks         []blockView
	Detail         *detailView
	Totals         plotmap.Totals
	Map            mapView
	Panel          *panelView
	NewBlockPrompt string
}

// detailView is the lot table of the selected block.
type detailView struct {
	Block    blockView
	Statuses []domain.Status
}

type blockView struct {
	ID       string
	Path     string
	Selected bool
	Lots     []lotView
}

type lotView struct {
	Number     int
	Status     domain.Status
	Path       string
	Linked     bool
	PanelOpen  bool
	LinkPrompt string
	X, Y       int
}

type mapView struct {
	Width, Height int
	Rows          []mapRow
	Lines         []plotmap.Line
}

type mapRow struct {
	BlockID string
	Y       int
	Lots    []lotView
}

type panelView struct {
	BlockID string
	Number  int
	Path    string
	Fields  []fieldView
}

type fieldView struct {
	Name      plotmap.OwnerField
	Label     string
	Value     string
	Multiline bool
}

var fieldLabels = map[plotmap.OwnerField]string{
	plotmap.FieldName:  "Nome",
	plotmap.FieldTaxID: "CPF",
	plotmap.FieldPhone: "Telefone",
	plotmap.FieldEmail: "E-mail",
	plotmap.FieldNotes: "Observações",
}

func blockPath(id string) string {
	return "/quadras/" + url.PathEscape(id)
}

func lotPath(id string, number int) string {
	return blockPath(id) + "/lotes/" + strconv.Itoa(number)
}

func statusLabel(s domain.Status) string { return s.Label() }

func buildPage(st plotmap.State, totals plotmap.Totals) pageView {
	v := pageView{
		Blocks:         make([]blockView, 0, len(st.Blocks)),
		Totals:         totals,
		NewBlockPrompt: plotmap.NewBlockPrompt,
		Map:            mapView{Lines: plotmap.Lines(st)},
	}

	widest := 0
	for bi, b := range st.Blocks {
		bv := blockView{
			ID:       b.ID,
			Path:     blockPath(b.ID),
			Selected: b.ID == st.SelectedID,
			Lots:     make([]lotView, 0, len(b.Lots)),
		}
		y := bi*plotmap.BlockSpacing + plotmap.BlockOffsetY
		for li, l := range b.Lots {
			bv.Lots = append(bv.Lots, lotView{
				Number:     l.Number,
				Status:     l.Status,
				Path:       lotPath(b.ID, l.Number),
				Linked:     plotmap.IsLinked(st, b.ID, l.Number),
				PanelOpen:  st.PanelOpenFor(b.ID, l.Number),
				LinkPrompt: plotmap.LinkPrompt(l.Number),
				X:          plotmap.LotOffsetX + li*plotmap.LotSpacing,
				Y:          y,
			})
		}
		widest = max(widest, len(b.Lots))
		v.Blocks = append(v.Blocks, bv)
		v.Map.Rows = append(v.Map.Rows, mapRow{BlockID: b.ID, Y: y, Lots: bv.Lots})
	}
	for _, bv := range v.Blocks {
		if bv.Selected {
			v.Detail = &detailView{Block: bv, Statuses: domain.Statuses}
		}
	}
	v.Map.Width = plotmap.LotOffsetX*2 + widest*plotmap.LotSpacing
	v.Map.Height = len(st.Blocks)*plotmap.BlockSpacing + plotmap.BlockOffsetY

	if st.Panel != nil {
		var draft domain.Owner
		if st.Draft != nil {
			draft = *st.Draft
		}
		p := &panelView{
			BlockID: st.Panel.BlockID,
			Number:  st.Panel.Number,
			Path:    lotPath(st.Panel.BlockID, st.Panel.Number),
		}
		for _, f := range plotmap.OwnerFields {
			p.Fields = append(p.Fields, fieldView{
				Name:      f,
				Label:     fieldLabels[f],
				Value:     plotmap.OwnerFieldValue(draft, f),
				Multiline: f == plotmap.FieldNotes,
			})
		}
		v.Panel = p
	}
	return v
}
