package program

import (
	"io"
	"math/bits"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// maxAttemptFactor bounds the mutation attempts on one method to
// MethodMutations times this value.
const maxAttemptFactor = 10

// Options control how a Program picks and mutates methods.
type Options struct {
	Seed            int64
	MethodMutations int
	MinMethods      int
	MaxMethods      int
	// MutateLimit restricts mutation to methods whose name ends in _MUTATE.
	MutateLimit bool
	// Likelihoods overrides mutator likelihoods by mutator name.
	Likelihoods map[string]int
	// Replay, when set, is applied instead of random mutation.
	Replay []ParsedMutation
}

// Program is a parsed file in mutatable form. It picks methods and
// mutators, runs them and writes the results back into the file.
type Program struct {
	opts Options
	rng  *rand.Rand
	dex  *rawdex.RawDexFile

	translator CodeTranslator
	idCreator  *IdCreator

	codes   []*MutatableCode
	mutated []*MutatableCode

	mutators []Mutator
	byName   map[string]Mutator

	stats   *MutationStats
	records []MutationRecord
}

// NewRand returns the random source used by programs created with seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// New prepares dex for mutation. Every code item that may be mutated is
// translated, and the mutators built by factory are registered.
func New(dex *rawdex.RawDexFile, opts Options, factory MutatorFactory) (p *Program, err error) {
	defer rawdex.Recover(&err)

	p = &Program{
		opts:      opts,
		rng:       NewRand(opts.Seed),
		dex:       dex,
		idCreator: NewIdCreator(dex),
		byName:    make(map[string]Mutator),
		stats:     NewMutationStats(),
	}

	for _, m := range factory(p.rng) {
		if l, ok := opts.Likelihoods[m.Name()]; ok {
			m.SetLikelihood(clamp(l, 0, 100))
			log.Debugf("likelihood of %s set to %d", m.Name(), m.Likelihood())
		}
		p.byName[m.Name()] = m
		if m.Likelihood() > 0 {
			log.Debugf("registering mutator %s", m.Name())
			p.mutators = append(p.mutators, m)
		}
	}
	for name := range opts.Likelihoods {
		if _, ok := p.byName[name]; !ok {
			log.Warnf("likelihood given for unknown mutator %s", name)
		}
	}

	p.associateClassDefsAndClassData()
	p.associateCodeItemsWithMethodNames()

	for i, ci := range dex.CodeItems {
		if !p.legalToMutate(ci) {
			log.Debugf("not mutating code item %d (%s)", i, ci.Meta.MethodName)
			continue
		}
		p.codes = append(p.codes, p.translator.CodeItemToMutatableCode(p, ci, i, len(p.codes)))
	}
	log.Debugf("%d of %d code items can be mutated", len(p.codes), len(dex.CodeItems))
	return p, nil
}

func (p *Program) associateClassDefsAndClassData() {
	for _, cd := range p.dex.ClassDefs {
		if data, ok := cd.ClassDataOff.PointedToItem().(*rawdex.ClassDataItem); ok {
			data.ClassDef = cd
			cd.ClassData = data
		}
	}
}

func (p *Program) associateCodeItemsWithMethodNames() {
	for _, data := range p.dex.ClassDatas {
		className := ""
		if data.ClassDef != nil {
			className = p.TypeString(int(data.ClassDef.ClassIdx)) + "."
		}
		for _, list := range [][]*rawdex.EncodedMethod{data.DirectMethods, data.VirtualMethods} {
			methodIdx := 0
			for _, em := range list {
				// the first index is absolute, the rest are relative
				methodIdx += int(em.MethodIdxDiff)
				if em.CodeOff.PointsToSomething() {
					p.associateMethod(em, methodIdx, className)
				}
			}
		}
	}
}

func (p *Program) associateMethod(em *rawdex.EncodedMethod, methodIdx int, className string) {
	ci, ok := em.CodeOff.PointedToItem().(*rawdex.CodeItem)
	if !ok {
		rawdex.Fatalf("method %d code offset points at %T, not a code item", methodIdx, em.CodeOff.PointedToItem())
	}
	mid := p.dex.MethodIDs[methodIdx]
	proto := p.dex.ProtoIDs[mid.ProtoIdx]
	ci.Meta = rawdex.CodeMeta{
		MethodName: className + p.dex.StringAt(int(mid.NameIdx)),
		Shorty:     p.dex.StringAt(int(proto.ShortyIdx)),
		IsStatic:   em.IsStatic(),
	}
}

func (p *Program) legalToMutate(ci *rawdex.CodeItem) bool {
	if !p.opts.MutateLimit {
		return true
	}
	return strings.HasSuffix(ci.Meta.MethodName, "_MUTATE")
}

// numberOfMutationsToPerform draws a count in 0..MethodMutations where
// each count is twice as likely as the next one up.
func (p *Program) numberOfMutationsToPerform() int {
	tickets := (2 << p.opts.MethodMutations) - 1
	lucky := p.rng.IntN(tickets)
	return p.opts.MethodMutations - (bits.Len(uint(lucky+1)) - 1)
}

// mutateCode runs random mutators on c. It reports whether no mutation
// could be applied before giving up.
func (p *Program) mutateCode(c *MutatableCode) bool {
	n := p.numberOfMutationsToPerform()
	ctx := log.WithField("method", c.Name)
	ctx.Infof("attempting %d mutations", n)

	applied, attempts := 0, 0
	maxAttempts := p.opts.MethodMutations * maxAttemptFactor
	bailed := false
	for applied < n {
		m := p.mutators[p.rng.IntN(len(p.mutators))]
		ctx.Debugf("running mutator %s", m.Name())
		if mut, ok := AttemptToMutate(p.rng, m, c); ok {
			p.record(m, mut)
			applied++
		}
		attempts++
		if attempts > maxAttempts {
			ctx.Info("bailing out, tried too many times")
			bailed = true
			break
		}
	}

	if applied > 0 {
		ctx.Info("method was mutated")
		p.mutated = append(p.mutated, c)
	} else {
		ctx.Info("method was not mutated")
	}
	return applied == 0 && bailed
}

func (p *Program) record(m Mutator, mut Mutation) {
	p.stats.Increment(m.Name())
	p.records = append(p.records, MutationRecord{
		Mutator:  m.Name(),
		CodeIdx:  mut.MutatableCode().MutatableCodeIdx,
		Mutation: mut,
	})
}

// MutateTheProgram mutates a random selection of methods, or replays the
// mutations given in Options.Replay.
func (p *Program) MutateTheProgram() (err error) {
	defer rawdex.Recover(&err)

	if p.opts.Replay != nil {
		return p.applyReplay()
	}
	if p.opts.MethodMutations < 1 {
		return errors.Errorf("method mutations must be at least 1, got %d", p.opts.MethodMutations)
	}
	if p.opts.MinMethods < 0 || p.opts.MaxMethods < p.opts.MinMethods {
		return errors.Errorf("invalid method range %d..%d", p.opts.MinMethods, p.opts.MaxMethods)
	}
	if len(p.mutators) == 0 {
		return errors.New("no mutator has a likelihood above 0")
	}
	if len(p.codes) == 0 {
		log.Warn("no methods can be mutated")
		return nil
	}

	toMutate := p.opts.MinMethods + p.rng.IntN(p.opts.MaxMethods-p.opts.MinMethods+1)
	toMutate = min(toMutate, len(p.codes))

	if toMutate == len(p.codes) {
		log.Info("mutating all methods")
		for _, c := range p.codes {
			p.mutateCode(c)
		}
		return nil
	}

	log.Infof("randomly selecting %d methods to mutate", toMutate)
	tried := make(map[*MutatableCode]bool)
	for len(p.mutated) < toMutate {
		c := p.codes[p.rng.IntN(len(p.codes))]
		if slices.Contains(p.mutated, c) {
			continue
		}
		if p.mutateCode(c) {
			tried[c] = true
			toMutate--
		}
		if len(tried) == len(p.codes) {
			break
		}
	}
	return nil
}

func (p *Program) applyReplay() error {
	log.Infof("applying %d preloaded mutations", len(p.opts.Replay))
	for i, pm := range p.opts.Replay {
		m, ok := p.byName[pm.Mutator]
		if !ok {
			return errors.Errorf("mutation %d: unknown mutator %s", i, pm.Mutator)
		}
		if pm.CodeIdx < 0 || pm.CodeIdx >= len(p.codes) {
			return errors.Errorf("mutation %d: method index %d out of range (%d methods)", i, pm.CodeIdx, len(p.codes))
		}
		c := p.codes[pm.CodeIdx]
		mut := m.NewMutation()
		mut.SetMutatableCode(c)
		if err := mut.Parse(pm.Fields); err != nil {
			return errors.Wrapf(err, "mutation %d: failed to parse %s fields", i, pm.Mutator)
		}
		ForceMutate(m, mut)
		p.record(m, mut)
		if !slices.Contains(p.mutated, c) {
			p.mutated = append(p.mutated, c)
		}
	}
	return nil
}

// UpdateRawDexFile writes every mutated method back into its code item.
// It reports whether anything was mutated.
func (p *Program) UpdateRawDexFile() (changed bool, err error) {
	defer rawdex.Recover(&err)
	changed = len(p.mutated) > 0
	for _, c := range p.mutated {
		p.translator.MutatableCodeToCodeItem(p.dex.CodeItems[c.CodeItemIdx], c)
	}
	p.mutated = nil
	return changed, nil
}

// WriteMutations writes the mutation log of this program.
func (p *Program) WriteMutations(w io.Writer) error {
	return WriteMutations(w, p.records)
}

// Mutations returns the mutations applied so far.
func (p *Program) Mutations() []MutationRecord { return p.records }

func (p *Program) Stats() *MutationStats { return p.stats }

func (p *Program) Dex() *rawdex.RawDexFile { return p.dex }

func (p *Program) Seed() int64 { return p.opts.Seed }

// MutatableCodes returns every method that can be mutated.
func (p *Program) MutatableCodes() []*MutatableCode { return p.codes }

// Mutator returns the registered mutator called name.
func (p *Program) Mutator(name string) (Mutator, bool) {
	m, ok := p.byName[name]
	return m, ok
}

// IdCreator gives mutators a way to find or create table entries.
func (p *Program) IdCreator() *IdCreator { return p.idCreator }

// TotalPoolIndicesByKind returns the size of the table of kind.
func (p *Program) TotalPoolIndicesByKind(kind rawdex.PoolIndexKind) int {
	switch kind {
	case rawdex.PoolString:
		return len(p.dex.StringIDs)
	case rawdex.PoolType:
		return len(p.dex.TypeIDs)
	case rawdex.PoolField:
		return len(p.dex.FieldIDs)
	case rawdex.PoolMethod:
		return len(p.dex.MethodIDs)
	}
	return 0
}

// EncodedField returns the definition of the field at fieldIdx, or nil
// when no class of this file defines it.
func (p *Program) EncodedField(fieldIdx int) *rawdex.EncodedField {
	if fieldIdx < 0 || fieldIdx >= len(p.dex.FieldIDs) {
		log.Debugf("field 0x%x is not defined in this file", fieldIdx)
		return nil
	}
	fid := p.dex.FieldIDs[fieldIdx]
	for _, cd := range p.dex.ClassDefs {
		if cd.ClassIdx == uint32(fid.ClassIdx) && cd.ClassData != nil {
			return cd.ClassData.EncodedFieldWithIndex(fieldIdx)
		}
	}
	log.Debugf("field 0x%x is not defined in this file", fieldIdx)
	return nil
}

// TypeString returns the descriptor of the type at idx.
func (p *Program) TypeString(idx int) string { return p.dex.TypeString(idx) }

// MethodName returns the name of the method at idx.
func (p *Program) MethodName(idx int) string {
	return p.dex.StringAt(int(p.dex.MethodIDs[idx].NameIdx))
}

// MethodProto returns the signature of the method at idx, such as "(IJ)V".
func (p *Program) MethodProto(idx int) string {
	proto := p.dex.ProtoIDs[p.dex.MethodIDs[idx].ProtoIdx]
	var sb strings.Builder
	sb.WriteByte('(')
	if tl, ok := proto.ParametersOff.PointedToItem().(*rawdex.TypeList); ok {
		for _, t := range tl.List {
			sb.WriteString(p.TypeString(int(t)))
		}
	}
	sb.WriteByte(')')
	sb.WriteString(p.TypeString(int(proto.ReturnTypeIdx)))
	return sb.String()
}
