package odb

import "github.com/google/uuid"

// DefaultDbUnitsPerMicron is used when a technology does not declare its units
const DefaultDbUnitsPerMicron = 100

// Tech holds process technology rules
type Tech struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	DbUnitsPerMicron  int       `json:"dbu_per_micron"`
	ManufacturingGrid int       `json:"manufacturing_grid"`
	Layers            []*Layer  `json:"layers"`
}

// Layer is a routing, cut or masterslice layer
type Layer struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Direction string `json:"direction,omitempty"`
	Pitch     int    `json:"pitch,omitempty"`
	Width     int    `json:"width,omitempty"`
}

// NewTech creates an empty technology with a fresh identity
func NewTech(name string, dbuPerMicron int) *Tech {
	return &Tech{
		ID:               uuid.New(),
		Name:             name,
		DbUnitsPerMicron: dbuPerMicron,
	}
}

// FindLayer looks a layer up by name
func (t *Tech) FindLayer(name string) *Layer {
	for _, l := range t.Layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// RoutingLayers returns the routing layers in stack order
func (t *Tech) RoutingLayers() []*Layer {
	var out []*Layer
	for _, l := range t.Layers {
		if l.Type == "ROUTING" {
			out = append(out, l)
		}
	}
	return out
}

// Lib is a cell library
type Lib struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Sites   []*Site   `json:"sites"`
	Masters []*Master `json:"masters"`
}

// Site is a placement site
type Site struct {
	Name   string `json:"name"`
	Class  string `json:"class"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Master is a cell definition
type Master struct {
	Name   string   `json:"name"`
	Class  string   `json:"class"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Pins   []*MTerm `json:"pins"`
}

// MTerm is a master pin
type MTerm struct {
	Name      string `json:"name"`
	Direction string `json:"direction,omitempty"`
	Use       string `json:"use,omitempty"`
}

// NewLib creates an empty library with a fresh identity
func NewLib(name string) *Lib {
	return &Lib{ID: uuid.New(), Name: name}
}

// FindMaster looks a master up by name
func (l *Lib) FindMaster(name string) *Master {
	for _, m := range l.Masters {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindSite looks a site up by name
func (l *Lib) FindSite(name string) *Site {
	for _, s := range l.Sites {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// FindMTerm looks a pin up by name
func (m *Master) FindMTerm(name string) *MTerm {
	for _, p := range m.Pins {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// IsFiller reports whether the master is a filler or spacer cell
func (m *Master) IsFiller() bool {
	return m.Class == "CORE SPACER"
}

// IsBlock reports whether the master is a macro block
func (m *Master) IsBlock() bool {
	return len(m.Class) >= 5 && m.Class[:5] == "BLOCK"
}
