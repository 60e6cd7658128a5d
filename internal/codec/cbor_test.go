package codec

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/system"
	"github.com/roach88/arachne/internal/term"
)

func abModel() *ir.Model {
	return &ir.Model{
		Name: "ab",
		Protocols: []*ir.Protocol{{Name: "AB", Roles: []*ir.Role{
			{Name: "A", Events: []ir.Event{{Kind: ir.Send, Label: "1", Message: term.MustParse("m")}}},
			{Name: "B", Events: []ir.Event{{Kind: ir.Read, Label: "1", Message: term.MustParse("m")}}},
		}}},
		Runs: []ir.RunSpec{{Protocol: "AB", Role: "B"}},
	}
}

func TestMarshalDeterministic(t *testing.T) {
	st := system.Semistate{Seq: 3, Depth: 1, Runs: []system.RunView{{
		ID: 0, Protocol: "AB", Role: "B",
		Events: []system.EventView{{Index: 0, Kind: "read", Message: "m", BindRun: 1, BindIndex: 0}},
	}}}

	first, err := Marshal(st)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(st)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}

	var decoded system.Semistate
	if err := Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded, st) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, st)
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(engine.Limits{MaxDepth: 4, MaxRuns: 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diag, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diag, `"max_depth": 4`) {
		t.Errorf("diagnostic %s lacks json field name", diag)
	}
}

func TestDecodeAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]int{"states": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var v any
	if err := Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := v.(map[string]any); !ok {
		t.Errorf("decoded %T, want map[string]any", v)
	}
}

func TestStreamRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i := int64(1); i <= 3; i++ {
		if err := enc.Encode(system.Semistate{Seq: i}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i := int64(1); i <= 3; i++ {
		var st system.Semistate
		if err := dec.Decode(&st); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if st.Seq != i {
			t.Errorf("seq = %d, want %d", st.Seq, i)
		}
	}
}

func TestExportRoundtrip(t *testing.T) {
	model := abModel()
	rec := &engine.Recorder{}
	result, err := engine.New(model, engine.WithLimits(engine.Limits{MaxDepth: 10, MaxRuns: 2}), engine.WithReporter(rec)).
		Explore(context.Background())
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}

	x, err := NewExport(model, result, rec.States, rec.Terminals)
	if err != nil {
		t.Fatalf("NewExport: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ab.cbor")
	if err := WriteExport(path, x); err != nil {
		t.Fatalf("WriteExport: %v", err)
	}

	got, err := ReadExport(path)
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	if got.ModelHash != ir.MustModelHash(model) {
		t.Errorf("model hash = %s", got.ModelHash)
	}
	if got.Result != result {
		t.Errorf("result = %+v, want %+v", got.Result, result)
	}
	if len(got.Semistates) != 3 {
		t.Errorf("semistates = %+v", got.Semistates)
	}
	if !got.IsTerminal(2) || got.IsTerminal(1) {
		t.Errorf("terminal seqs = %v, want [2]", got.TerminalSeqs)
	}
}

func TestReadExportRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.cbor")
	if err := WriteExport(path, Export{Version: 99}); err != nil {
		t.Fatalf("WriteExport: %v", err)
	}
	if _, err := ReadExport(path); err == nil || !strings.Contains(err.Error(), "version 99") {
		t.Errorf("err = %v, want unsupported version", err)
	}
}
