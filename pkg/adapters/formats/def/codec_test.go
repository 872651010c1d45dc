package def

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aescanero/ordo/pkg/adapters/formats/token"
	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/ports"
)

const sampleDEF = `VERSION 5.8 ;
DIVIDERCHAR "/" ;
BUSBITCHARS "[]" ;
DESIGN top ;
UNITS DISTANCE MICRONS 1000 ;
DIEAREA ( 0 0 ) ( 20000 10000 ) ;
ROW ROW_0 core 0 0 N DO 100 BY 1 STEP 200 0 ;
TRACKS X 100 DO 100 STEP 200 LAYER metal1 ;
COMPONENTS 2 ;
  - u1 INV_X1 + PLACED ( 1000 0 ) N ;
  - u2 INV_X1 + SOURCE NETLIST + FIXED ( 3000 0 ) FS ;
END COMPONENTS
PINS 2 ;
  - in + NET in + DIRECTION INPUT + USE SIGNAL + PLACED ( 0 5000 ) N ;
  - out + NET out + DIRECTION OUTPUT ;
END PINS
SPECIALNETS 1 ;
  - VDD ( * VDD ) + USE POWER ;
END SPECIALNETS
NETS 3 ;
  - in ( PIN in ) ( u1 A ) + USE SIGNAL ;
  - mid ( u1 Y ) ( u2 A ) + ROUTED metal1 ( 1000 100 ) ( 3000 * ) ;
  - out ( u2 Y ) ( PIN out ) ;
END NETS
END DESIGN
`

func newDatabase(t *testing.T) *odb.Database {
	t.Helper()
	db := odb.NewDatabase()
	tech := odb.NewTech("tech", 1000)
	tech.Layers = []*odb.Layer{{Name: "metal1", Type: "ROUTING"}}
	db.SetTech(tech)

	lib := odb.NewLib("cells")
	lib.Sites = []*odb.Site{{Name: "core", Class: "CORE", Width: 200, Height: 2000}}
	lib.Masters = []*odb.Master{{
		Name: "INV_X1", Class: "CORE", Width: 600, Height: 2000,
		Pins: []*odb.MTerm{{Name: "A", Direction: "INPUT"}, {Name: "Y", Direction: "OUTPUT"}},
	}}
	db.AddLib(lib)
	return db
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadLayout(t *testing.T) {
	db := newDatabase(t)
	res, err := NewCodec().ReadLayout(db, writeFile(t, "top.def", sampleDEF), ports.LayoutOptions{})
	if err != nil {
		t.Fatalf("ReadLayout() error = %v", err)
	}

	blk := db.Block()
	if blk != res.Block {
		t.Fatal("result block is not installed")
	}
	if blk.Name != "top" || blk.DieArea != odb.NewRect(0, 0, 20000, 10000) {
		t.Errorf("block = %s %+v", blk.Name, blk.DieArea)
	}
	if len(blk.Rows) != 1 || blk.Rows[0].NumX != 100 || blk.Rows[0].StepX != 200 {
		t.Errorf("rows = %+v", blk.Rows)
	}
	u2 := blk.FindInst("u2")
	if u2 == nil || u2.Status != odb.StatusFixed || u2.Orient != "FS" || u2.Location != (odb.Point{X: 3000}) {
		t.Errorf("u2 = %+v", u2)
	}
	if in := blk.FindBTerm("in"); in == nil || in.Location != (odb.Point{Y: 5000}) || in.Direction != "INPUT" {
		t.Errorf("in = %+v", in)
	}
	mid := blk.FindNet("mid")
	if mid == nil || !mid.HasITerm(odb.ITermRef{Inst: "u2", Pin: "A"}) {
		t.Errorf("mid = %+v", mid)
	}
	if out := blk.FindNet("out"); out == nil || !out.HasBTerm("out") {
		t.Errorf("out = %+v", out)
	}
	if blk.FindNet("VDD") != nil {
		t.Error("special nets should be skipped")
	}
	if len(res.Skipped) != 0 {
		t.Errorf("Skipped = %v", res.Skipped)
	}
}

func TestReadLayoutScalesUnits(t *testing.T) {
	db := newDatabase(t)
	src := strings.Replace(sampleDEF, "MICRONS 1000", "MICRONS 2000", 1)
	if _, err := NewCodec().ReadLayout(db, writeFile(t, "top.def", src), ports.LayoutOptions{}); err != nil {
		t.Fatalf("ReadLayout() error = %v", err)
	}
	if got := db.Block().FindInst("u2").Location.X; got != 1500 {
		t.Errorf("u2 x = %d, want 1500", got)
	}
}

func TestReadLayoutPreconditions(t *testing.T) {
	codec := NewCodec()
	path := writeFile(t, "top.def", sampleDEF)

	if _, err := codec.ReadLayout(odb.NewDatabase(), path, ports.LayoutOptions{}); !errors.Is(err, ErrNoTech) {
		t.Errorf("no tech: error = %v", err)
	}
	if _, err := codec.ReadLayout(newDatabase(t), path, ports.LayoutOptions{Incremental: true}); !errors.Is(err, ErrNoBlock) {
		t.Errorf("incremental without block: error = %v", err)
	}

	db := newDatabase(t)
	db.SetBlock(odb.NewBlock("old", 1000))
	if _, err := codec.ReadLayout(db, path, ports.LayoutOptions{}); !errors.Is(err, ErrBlockExists) {
		t.Errorf("fresh read over block: error = %v", err)
	}
}

func TestReadLayoutStrictFailureIsAtomic(t *testing.T) {
	bad := strings.Replace(sampleDEF, "- u2 INV_X1", "- u2 NAND_X9", 1)
	db := newDatabase(t)

	_, err := NewCodec().ReadLayout(db, writeFile(t, "bad.def", bad), ports.LayoutOptions{})
	var pe *token.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *token.ParseError", err)
	}
	if db.Block() != nil {
		t.Error("failed read installed a block")
	}
}

func TestReadLayoutContinueOnErrors(t *testing.T) {
	bad := strings.Replace(sampleDEF, "- u2 INV_X1", "- u2 NAND_X9", 1)
	bad = strings.Replace(bad, "PLACED ( 1000 0 )", "PLACED ( 1000 zero )", 1)
	db := newDatabase(t)

	res, err := NewCodec().ReadLayout(db, writeFile(t, "bad.def", bad), ports.LayoutOptions{ContinueOnErrors: true})
	if err != nil {
		t.Fatalf("ReadLayout() error = %v", err)
	}
	blk := db.Block()
	if blk == nil {
		t.Fatal("partial content not committed")
	}
	// u1 is malformed, u2 has an unknown master, and nets touching them are dropped.
	if len(blk.Insts) != 0 {
		t.Errorf("insts = %d, want 0", len(blk.Insts))
	}
	if len(res.Skipped) != 5 {
		t.Errorf("Skipped = %d %v, want 5", len(res.Skipped), res.Skipped)
	}
	if blk.FindBTerm("in") == nil {
		t.Error("pins should survive")
	}
}

func TestReadLayoutIncremental(t *testing.T) {
	db := newDatabase(t)
	codec := NewCodec()
	if _, err := codec.ReadLayout(db, writeFile(t, "top.def", sampleDEF), ports.LayoutOptions{}); err != nil {
		t.Fatalf("ReadLayout() error = %v", err)
	}
	before := db.Block()

	inc := `VERSION 5.8 ;
DESIGN top ;
UNITS DISTANCE MICRONS 1000 ;
COMPONENTS 2 ;
  - u1 INV_X1 + PLACED ( 5000 2000 ) S ;
  - u3 INV_X1 + UNPLACED ;
END COMPONENTS
NETS 2 ;
  - mid ( u3 A ) ;
  - extra ( u3 Y ) ;
END NETS
END DESIGN
`
	if _, err := codec.ReadLayout(db, writeFile(t, "inc.def", inc), ports.LayoutOptions{Incremental: true}); err != nil {
		t.Fatalf("incremental ReadLayout() error = %v", err)
	}

	blk := db.Block()
	if blk.ID != before.ID {
		t.Error("incremental read changed block identity")
	}
	if u1 := blk.FindInst("u1"); u1.Location != (odb.Point{X: 5000, Y: 2000}) || u1.Orient != "S" {
		t.Errorf("u1 = %+v, incoming placement should win", u1)
	}
	if blk.FindInst("u3") == nil || blk.FindNet("extra") == nil {
		t.Error("new records not added")
	}
	if mid := blk.FindNet("mid"); len(mid.ITerms) != 3 {
		t.Errorf("mid iterms = %v, want union of 3", mid.ITerms)
	}
	if got := before.FindInst("u1").Location; got != (odb.Point{X: 1000}) {
		t.Errorf("previous block mutated: %+v", got)
	}
}

func TestReadLayoutFloorplan(t *testing.T) {
	db := newDatabase(t)
	codec := NewCodec()
	if _, err := codec.ReadLayout(db, writeFile(t, "top.def", sampleDEF), ports.LayoutOptions{}); err != nil {
		t.Fatalf("ReadLayout() error = %v", err)
	}

	fp := `VERSION 5.8 ;
DESIGN top ;
UNITS DISTANCE MICRONS 1000 ;
DIEAREA ( 0 0 ) ( 40000 40000 ) ;
ROW ROW_1 core 0 2000 FS DO 100 BY 1 STEP 200 0 ;
COMPONENTS 1 ;
  - u2 INV_X1 + PLACED ( 8000 2000 ) FS ;
END COMPONENTS
NETS 1 ;
  - ghost ( u1 A ) ;
END NETS
END DESIGN
`
	if _, err := codec.ReadLayout(db, writeFile(t, "fp.def", fp), ports.LayoutOptions{FloorplanInit: true}); err != nil {
		t.Fatalf("floorplan ReadLayout() error = %v", err)
	}

	blk := db.Block()
	if blk.DieArea.XMax != 40000 || len(blk.Rows) != 2 {
		t.Errorf("die %+v rows %d", blk.DieArea, len(blk.Rows))
	}
	if u2 := blk.FindInst("u2"); u2.Location != (odb.Point{X: 8000, Y: 2000}) {
		t.Errorf("u2 = %+v", u2)
	}
	if blk.FindNet("ghost") != nil {
		t.Error("floorplan read must ignore nets")
	}
}

func TestWriteLayoutRoundTrip(t *testing.T) {
	db := newDatabase(t)
	codec := NewCodec()
	if _, err := codec.ReadLayout(db, writeFile(t, "top.def", sampleDEF), ports.LayoutOptions{}); err != nil {
		t.Fatalf("ReadLayout() error = %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.def")
	if err := codec.WriteLayout(db, out, "5.6"); err != nil {
		t.Fatalf("WriteLayout() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "VERSION 5.6 ;") {
		t.Errorf("version tag missing: %q", string(data[:20]))
	}

	again := newDatabase(t)
	if _, err := codec.ReadLayout(again, out, ports.LayoutOptions{}); err != nil {
		t.Fatalf("re-read error = %v", err)
	}
	a := &odb.Snapshot{Block: db.Block()}
	b := &odb.Snapshot{Block: again.Block()}
	if d := odb.DiffContent(a, b); d != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", d)
	}
}

func TestWriteLayoutErrors(t *testing.T) {
	codec := NewCodec()
	path := filepath.Join(t.TempDir(), "x.def")

	db := newDatabase(t)
	if err := codec.WriteLayout(db, path, "5.8"); !errors.Is(err, ErrNoBlock) {
		t.Errorf("no block: error = %v", err)
	}
	db.SetBlock(odb.NewBlock("top", 1000))
	for _, v := range []string{"", "5.2", "5.9", "6.0"} {
		if err := codec.WriteLayout(db, path, v); !errors.Is(err, ErrVersion) {
			t.Errorf("version %q: error = %v", v, err)
		}
	}
}
