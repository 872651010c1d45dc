package odb

// Database is the single shared design database of a runtime
type Database struct {
	tech  *Tech
	libs  []*Lib
	block *Block
}

// NewDatabase creates an empty database
func NewDatabase() *Database {
	return &Database{}
}

// Tech returns the technology, or nil if none was loaded
func (d *Database) Tech() *Tech {
	return d.tech
}

// SetTech installs the technology
func (d *Database) SetTech(t *Tech) {
	d.tech = t
}

// Libs returns the loaded libraries in load order
func (d *Database) Libs() []*Lib {
	return d.libs
}

// AddLib appends a library
func (d *Database) AddLib(l *Lib) {
	d.libs = append(d.libs, l)
}

// FindLib looks a library up by name
func (d *Database) FindLib(name string) *Lib {
	for _, l := range d.libs {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// FindMaster searches every library for a master, first match wins
func (d *Database) FindMaster(name string) (*Lib, *Master) {
	for _, l := range d.libs {
		if m := l.FindMaster(name); m != nil {
			return l, m
		}
	}
	return nil, nil
}

// FindSite searches every library for a site
func (d *Database) FindSite(name string) *Site {
	for _, l := range d.libs {
		if s := l.FindSite(name); s != nil {
			return s
		}
	}
	return nil
}

// Block returns the design block, or nil if none exists
func (d *Database) Block() *Block {
	return d.block
}

// SetBlock installs (or replaces) the design block
func (d *Database) SetBlock(b *Block) {
	d.block = b
}

// DbUnitsPerMicron returns the technology units, or 0 if no technology is loaded
func (d *Database) DbUnitsPerMicron() int {
	if d.tech == nil {
		return 0
	}
	return d.tech.DbUnitsPerMicron
}

// Clear drops all content
func (d *Database) Clear() {
	d.tech = nil
	d.libs = nil
	d.block = nil
}

// Snapshot returns a deep copy of the current content
func (d *Database) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Version: SnapshotVersion,
		Tech:    d.tech,
		Libs:    d.libs,
		Block:   d.block,
	}
	return s.Clone()
}

// Restore replaces the content with the records of s. The database takes
// ownership of s; callers must not reuse it.
func (d *Database) Restore(s *Snapshot) {
	d.tech = s.Tech
	d.libs = s.Libs
	d.block = s.Block
}
