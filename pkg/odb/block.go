package odb

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Block is the physical and logical representation of one design
type Block struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	DbUnitsPerMicron int       `json:"dbu_per_micron"`
	DieArea          Rect      `json:"die_area"`
	Rows             []*Row    `json:"rows"`
	Insts            []*Inst   `json:"insts"`
	Nets             []*Net    `json:"nets"`
	BTerms           []*BTerm  `json:"bterms"`
}

// Row is a placement row
type Row struct {
	Name   string `json:"name"`
	Site   string `json:"site"`
	Origin Point  `json:"origin"`
	Orient string `json:"orient"`
	NumX   int    `json:"num_x"`
	NumY   int    `json:"num_y"`
	StepX  int    `json:"step_x"`
	StepY  int    `json:"step_y"`
}

// Placement status values
const (
	StatusNone     = "NONE"
	StatusPlaced   = "PLACED"
	StatusFixed    = "FIXED"
	StatusCover    = "COVER"
	StatusUnplaced = "UNPLACED"
)

// Inst is a placed or unplaced instance of a master
type Inst struct {
	Name     string `json:"name"`
	Master   string `json:"master"`
	Location Point  `json:"location"`
	Orient   string `json:"orient"`
	Status   string `json:"status"`
}

// ITermRef is an instance pin connection
type ITermRef struct {
	Inst string `json:"inst"`
	Pin  string `json:"pin"`
}

// Net connects instance pins and block terminals
type Net struct {
	Name   string     `json:"name"`
	Use    string     `json:"use,omitempty"`
	ITerms []ITermRef `json:"iterms"`
	BTerms []string   `json:"bterms"`
}

// BTerm is a block terminal (top-level port)
type BTerm struct {
	Name      string `json:"name"`
	Net       string `json:"net"`
	Direction string `json:"direction,omitempty"`
	Location  Point  `json:"location"`
	Status    string `json:"status"`
}

// NewBlock creates an empty block with a fresh identity
func NewBlock(name string, dbuPerMicron int) *Block {
	return &Block{
		ID:               uuid.New(),
		Name:             name,
		DbUnitsPerMicron: dbuPerMicron,
	}
}

// FindInst looks an instance up by name
func (b *Block) FindInst(name string) *Inst {
	for _, i := range b.Insts {
		if i.Name == name {
			return i
		}
	}
	return nil
}

// FindNet looks a net up by name
func (b *Block) FindNet(name string) *Net {
	for _, n := range b.Nets {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// FindBTerm looks a block terminal up by name
func (b *Block) FindBTerm(name string) *BTerm {
	for _, t := range b.BTerms {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// FindRow looks a row up by name
func (b *Block) FindRow(name string) *Row {
	for _, r := range b.Rows {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// HasITerm reports whether the net already connects inst/pin
func (n *Net) HasITerm(ref ITermRef) bool {
	for _, t := range n.ITerms {
		if t == ref {
			return true
		}
	}
	return false
}

// HasBTerm reports whether the net already connects the block terminal
func (n *Net) HasBTerm(name string) bool {
	for _, t := range n.BTerms {
		if t == name {
			return true
		}
	}
	return false
}

// Bbox returns the extent of the row set
func (r *Row) Bbox(site *Site) Rect {
	w, h := r.StepX*r.NumX, r.StepY*r.NumY
	if site != nil {
		if r.NumY <= 1 {
			h = site.Height
		}
		if r.NumX <= 1 {
			w = site.Width
		}
	}
	return Rect{XMin: r.Origin.X, YMin: r.Origin.Y, XMax: r.Origin.X + w, YMax: r.Origin.Y + h}
}

// Clone deep-copies the block, keeping its identity
func (b *Block) Clone() (*Block, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal block: %w", err)
	}

	var out Block
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}

	return &out, nil
}
