package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/pkg/errors"
)

// TryEdge names the part of a try block a TryBlockShifter moves.
type TryEdge int

const (
	TryStart TryEdge = iota
	TryEnd
	TryCatchAll
	TryHandler
)

func (e TryEdge) String() string {
	switch e {
	case TryStart:
		return "start"
	case TryEnd:
		return "end"
	case TryCatchAll:
		return "catch-all"
	case TryHandler:
		return "handler"
	}
	return "unknown"
}

// TryBlockShifter moves the start, the end or a handler of a try block to
// another instruction.
type TryBlockShifter struct{ base }

type TryBlockShifterMutation struct {
	program.MutationBase
	TryIdx     int
	Edge       TryEdge
	HandlerIdx int
	NewInsnIdx int
}

func (m *TryBlockShifterMutation) Fields() []string {
	return []string{itoa(m.TryIdx), itoa(int(m.Edge)), itoa(m.HandlerIdx), itoa(m.NewInsnIdx)}
}

func (m *TryBlockShifterMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 4)
	m.TryIdx = r.int()
	m.Edge = TryEdge(r.int())
	m.HandlerIdx = r.int()
	m.NewInsnIdx = r.int()
	if err := r.done(); err != nil {
		return err
	}
	if m.Edge < TryStart || m.Edge > TryHandler {
		return errors.Errorf("invalid try block edge %d", m.Edge)
	}
	return nil
}

func NewTryBlockShifter(rng *rand.Rand) *TryBlockShifter {
	return &TryBlockShifter{base{name: "TryBlockShifter", likelihood: 40, rng: rng}}
}

func (ts *TryBlockShifter) CanMutate(c *program.MutatableCode) bool {
	return len(c.TryBlocks()) > 0 && len(indicesWhere(c, notRaw)) > 1
}

// edge returns the instruction slot of try that e selects.
func edge(try *program.MTryBlock, e TryEdge, handler int) **program.MInsn {
	switch e {
	case TryStart:
		return &try.Start
	case TryEnd:
		return &try.End
	case TryCatchAll:
		return &try.CatchAll
	}
	return &try.Handlers[handler]
}

func (ts *TryBlockShifter) Generate(c *program.MutatableCode) program.Mutation {
	tryIdx := ts.rng.IntN(len(c.TryBlocks()))
	try := c.TryBlocks()[tryIdx]

	edges := []TryEdge{TryStart, TryEnd}
	if try.CatchAll != nil {
		edges = append(edges, TryCatchAll)
	}
	if len(try.Handlers) > 0 {
		edges = append(edges, TryHandler)
	}
	e := pick(ts.rng, edges)
	handler := 0
	if e == TryHandler {
		handler = ts.rng.IntN(len(try.Handlers))
	}

	current := c.InstructionIndex(*edge(try, e, handler))
	return &TryBlockShifterMutation{
		MutationBase: program.MutationBase{Code: c},
		TryIdx:       tryIdx,
		Edge:         e,
		HandlerIdx:   handler,
		NewInsnIdx:   pickOther(ts.rng, indicesWhere(c, notRaw), current),
	}
}

func (ts *TryBlockShifter) Apply(mut program.Mutation) {
	m := mut.(*TryBlockShifterMutation)
	c := m.Code
	try := c.TryBlocks()[m.TryIdx]
	slot := edge(try, m.Edge, m.HandlerIdx)
	*slot = c.InstructionAt(m.NewInsnIdx)
	log.Infof("moved try block %s to %s", m.Edge, *slot)
}

func (ts *TryBlockShifter) NewMutation() program.Mutation { return &TryBlockShifterMutation{} }
