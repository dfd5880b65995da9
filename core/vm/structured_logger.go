package vm

import (
	"encoding/json"
	"io"

	"github.com/eth2030/evmcore/core/types"
)

// StructLog is a single step recorded by StructLogger.
type StructLog struct {
	PC      uint64   `json:"pc"`
	Op      string   `json:"op"`
	Gas     uint64   `json:"gas"`
	GasCost uint64   `json:"gasCost"`
	Depth   int      `json:"depth"`
	Stack   []string `json:"stack"`
	Memory  []byte   `json:"memory,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// CallLog records a frame boundary seen by StructLogger.
type CallLog struct {
	Kind    string        `json:"type"`
	Depth   int           `json:"depth"`
	From    types.Address `json:"from"`
	To      types.Address `json:"to"`
	Gas     uint64        `json:"gas"`
	GasUsed uint64        `json:"gasUsed"`
	Status  string        `json:"status"`
}

// StructLoggerConfig controls optional capture.
type StructLoggerConfig struct {
	EnableMemory bool
	// Limit caps the number of recorded steps; zero means no limit.
	Limit int
	// Stream, when set, receives each step as a JSON line as it ends.
	Stream io.Writer
}

// StructLogger is an Inspector that records opcode steps, frames and the
// gas spent per opcode.
type StructLogger struct {
	NoopInspector

	cfg       StructLoggerConfig
	logs      []StructLog
	calls     []CallLog
	opGas     map[OpCode]uint64
	pending   *StructLog
	enc       *json.Encoder
	streamErr error
}

// NewStructLogger returns a StructLogger with the given configuration.
func NewStructLogger(cfg StructLoggerConfig) *StructLogger {
	l := &StructLogger{cfg: cfg, opGas: make(map[OpCode]uint64)}
	if cfg.Stream != nil {
		l.enc = json.NewEncoder(cfg.Stream)
	}
	return l
}

// Step records the pre-execution view of an instruction.
func (l *StructLogger) Step(s *StepContext) {
	if l.cfg.Limit != 0 && len(l.logs) >= l.cfg.Limit {
		l.pending = nil
		return
	}
	data := s.Stack.Data()
	stack := make([]string, len(data))
	for i := range data {
		stack[i] = data[i].Hex()
	}
	entry := StructLog{
		PC:    s.PC,
		Op:    s.Op.String(),
		Gas:   s.Gas,
		Depth: s.Depth,
		Stack: stack,
	}
	if l.cfg.EnableMemory && s.Memory.Len() > 0 {
		entry.Memory = append([]byte(nil), s.Memory.Data()...)
	}
	l.pending = &entry
}

// StepEnd completes the pending entry with its cost and error.
func (l *StructLogger) StepEnd(s *StepContext) {
	l.opGas[s.Op] += s.Cost
	if l.pending == nil {
		return
	}
	l.pending.GasCost = s.Cost
	if s.Err != nil {
		l.pending.Error = s.Err.Error()
	}
	l.logs = append(l.logs, *l.pending)
	if l.enc != nil && l.streamErr == nil {
		l.streamErr = l.enc.Encode(l.pending)
	}
	l.pending = nil
}

// CallExit records the finished frame.
func (l *StructLogger) CallExit(f *CallFrame, r *FrameResult) {
	used := uint64(0)
	if f.Gas > r.GasLeft {
		used = f.Gas - r.GasLeft
	}
	status := r.Status.String()
	if r.Status == StatusHalt {
		status = r.Halt.String()
	}
	l.calls = append(l.calls, CallLog{
		Kind:    f.Kind.String(),
		Depth:   f.Depth,
		From:    f.Caller,
		To:      f.Address,
		Gas:     f.Gas,
		GasUsed: used,
		Status:  status,
	})
}

// StructLogs returns the recorded steps.
func (l *StructLogger) StructLogs() []StructLog { return l.logs }

// Calls returns the recorded frames in exit order.
func (l *StructLogger) Calls() []CallLog { return l.calls }

// OpcodeGas returns the total gas charged per opcode.
func (l *StructLogger) OpcodeGas() map[OpCode]uint64 {
	out := make(map[OpCode]uint64, len(l.opGas))
	for k, v := range l.opGas {
		out[k] = v
	}
	return out
}

// StreamError returns the first error writing to the stream, if any.
func (l *StructLogger) StreamError() error { return l.streamErr }

// Reset clears everything recorded so far.
func (l *StructLogger) Reset() {
	l.logs, l.calls, l.pending, l.streamErr = nil, nil, nil, nil
	l.opGas = make(map[OpCode]uint64)
}
