package codec

import (
	"fmt"
	"os"

	"github.com/roach88/arachne/internal/engine"
	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/system"
)

// ExportVersion is bumped when the Export layout changes incompatibly.
const ExportVersion = 1

// Export is the portable record of one exploration: the model identity,
// the outcome and the semistates that were kept.
type Export struct {
	Version       int                `cbor:"version"`
	ModelName     string             `cbor:"model_name"`
	ModelHash     string             `cbor:"model_hash"`
	EngineVersion string             `cbor:"engine_version"`
	SessionID     string             `cbor:"session_id,omitempty"`
	Result        engine.Result      `cbor:"result"`
	Semistates    []system.Semistate `cbor:"semistates"`

	// TerminalSeqs lists the Seq of every terminal semistate, whether or
	// not Semistates holds non-terminal states too.
	TerminalSeqs []int64 `cbor:"terminal_seqs"`
}

// IsTerminal reports whether the semistate with seq was terminal.
func (x Export) IsTerminal(seq int64) bool {
	for _, s := range x.TerminalSeqs {
		if s == seq {
			return true
		}
	}
	return false
}

// NewExport builds an export for model keeping states. terminals are the
// terminal semistates reported by the same exploration.
func NewExport(model *ir.Model, result engine.Result, states, terminals []system.Semistate) (Export, error) {
	hash, err := ir.ModelHash(model)
	if err != nil {
		return Export{}, fmt.Errorf("hash model: %w", err)
	}
	return Export{
		Version:       ExportVersion,
		ModelName:     model.Name,
		ModelHash:     hash,
		EngineVersion: ir.EngineVersion,
		Result:        result,
		Semistates:    states,
		TerminalSeqs:  seqs(terminals),
	}, nil
}

func seqs(states []system.Semistate) []int64 {
	out := make([]int64, len(states))
	for i, st := range states {
		out[i] = st.Seq
	}
	return out
}

// WriteExport writes x to path.
func WriteExport(path string, x Export) error {
	data, err := Marshal(x)
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ReadExport reads an export written by WriteExport.
func ReadExport(path string) (Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Export{}, fmt.Errorf("read export: %w", err)
	}
	var x Export
	if err := Unmarshal(data, &x); err != nil {
		return Export{}, fmt.Errorf("decode export: %w", err)
	}
	if x.Version != ExportVersion {
		return Export{}, fmt.Errorf("unsupported export version %d", x.Version)
	}
	return x, nil
}
