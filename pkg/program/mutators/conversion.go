package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// reverseConversions maps a primitive conversion to the one undoing it.
// Narrowing integer conversions have none.
var reverseConversions = map[rawdex.Opcode]rawdex.Opcode{
	rawdex.OpIntToLong:     rawdex.OpLongToInt,
	rawdex.OpIntToFloat:    rawdex.OpFloatToInt,
	rawdex.OpIntToDouble:   rawdex.OpDoubleToInt,
	rawdex.OpLongToInt:     rawdex.OpIntToLong,
	rawdex.OpLongToFloat:   rawdex.OpFloatToLong,
	rawdex.OpLongToDouble:  rawdex.OpDoubleToLong,
	rawdex.OpFloatToInt:    rawdex.OpIntToFloat,
	rawdex.OpFloatToLong:   rawdex.OpLongToFloat,
	rawdex.OpFloatToDouble: rawdex.OpDoubleToFloat,
	rawdex.OpDoubleToInt:   rawdex.OpIntToDouble,
	rawdex.OpDoubleToLong:  rawdex.OpLongToDouble,
	rawdex.OpDoubleToFloat: rawdex.OpFloatToDouble,
}

func isConversion(op rawdex.Opcode) bool { return op.Between(rawdex.OpIntToLong, rawdex.OpIntToShort) }

// ConversionRepeater follows a conversion with its reverse and then the
// conversion again, so the value makes a round trip through both types.
type ConversionRepeater struct{ base }

type ConversionRepeaterMutation struct {
	program.MutationBase
	ConversionInsnIdx int
}

func (m *ConversionRepeaterMutation) Fields() []string { return []string{itoa(m.ConversionInsnIdx)} }

func (m *ConversionRepeaterMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 1)
	m.ConversionInsnIdx = r.int()
	return r.done()
}

func NewConversionRepeater(rng *rand.Rand) *ConversionRepeater {
	return &ConversionRepeater{base{name: "ConversionRepeater", likelihood: 50, rng: rng}}
}

func (cr *ConversionRepeater) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, opIs(isConversion))) > 0
}

func (cr *ConversionRepeater) Generate(c *program.MutatableCode) program.Mutation {
	return &ConversionRepeaterMutation{
		MutationBase:      program.MutationBase{Code: c},
		ConversionInsnIdx: pick(cr.rng, indicesWhere(c, opIs(isConversion))),
	}
}

func (cr *ConversionRepeater) Apply(mut program.Mutation) {
	m := mut.(*ConversionRepeaterMutation)
	conv := m.Code.InstructionAt(m.ConversionInsnIdx)
	insertAt := m.ConversionInsnIdx + 1

	if rev, ok := reverseConversions[conv.Insn.Opcode()]; ok {
		insn := rawdex.NewInstruction(rev)
		insn.VRegA = conv.Insn.VRegB
		insn.VRegB = conv.Insn.VRegA
		back := program.NewMInsn(insn)
		m.Code.InsertInstructionAt(back, insertAt)
		insertAt++
		log.Infof("inserted %s", back)
	}
	again := program.NewMInsn(conv.Insn.Clone())
	m.Code.InsertInstructionAt(again, insertAt)
	log.Infof("repeated %s", again)
}

func (cr *ConversionRepeater) NewMutation() program.Mutation { return &ConversionRepeaterMutation{} }
