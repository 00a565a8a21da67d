package program

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

// Mutation describes one edit made by a Mutator. It is produced by
// Generate and consumed by Apply, so it can be logged and replayed
// without the random choices that made it.
type Mutation interface {
	MutatableCode() *MutatableCode
	SetMutatableCode(c *MutatableCode)
	// Fields returns the mutator specific fields of the replay log line.
	Fields() []string
	// Parse reads back the values returned by Fields.
	Parse(fields []string) error
}

// MutationBase carries the method a mutation applies to. Embed it in
// every Mutation.
type MutationBase struct {
	Code *MutatableCode
}

func (b *MutationBase) MutatableCode() *MutatableCode     { return b.Code }
func (b *MutationBase) SetMutatableCode(c *MutatableCode) { b.Code = c }

// Mutator generates and applies one kind of edit.
//
// Generate must not edit the code, Apply must not make random choices.
// Candidate instructions are collected from a fresh snapshot at the start
// of each call.
type Mutator interface {
	Name() string
	// Likelihood is the percentage chance of the mutator running when picked.
	Likelihood() int
	SetLikelihood(l int)
	CanMutate(c *MutatableCode) bool
	Generate(c *MutatableCode) Mutation
	Apply(m Mutation)
	// NewMutation returns an empty mutation to Parse a log line into.
	NewMutation() Mutation
}

// MutatorFactory builds the mutators of a program around its random source.
type MutatorFactory func(rng *rand.Rand) []Mutator

// AttemptToMutate rolls against the likelihood of m and, when the roll
// succeeds and m can mutate c, generates and applies a mutation.
func AttemptToMutate(rng *rand.Rand, m Mutator, c *MutatableCode) (Mutation, bool) {
	ctx := log.WithFields(log.Fields{"mutator": m.Name(), "method": c.Name})
	if roll := rng.IntN(100); roll >= m.Likelihood() {
		ctx.Debugf("skipping, rolled %d against likelihood %d", roll, m.Likelihood())
		return nil, false
	}
	if !m.CanMutate(c) {
		ctx.Debug("skipping, mutator cannot mutate this method")
		return nil, false
	}
	mut := m.Generate(c)
	m.Apply(mut)
	return mut, true
}

// ForceMutate applies a mutation that was generated earlier.
func ForceMutate(m Mutator, mut Mutation) {
	log.WithFields(log.Fields{
		"mutator": m.Name(),
		"method":  mut.MutatableCode().Name,
	}).Debug("applying replayed mutation")
	m.Apply(mut)
}

// MutationRecord is one line of a mutation log.
type MutationRecord struct {
	Mutator  string
	CodeIdx  int
	Mutation Mutation
}

func (r MutationRecord) String() string {
	parts := append([]string{r.Mutator, strconv.Itoa(r.CodeIdx)}, r.Mutation.Fields()...)
	return strings.Join(parts, " ")
}

// WriteMutations writes one line per record.
func WriteMutations(w io.Writer, records []MutationRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintln(bw, r.String()); err != nil {
			return errors.Wrap(err, "failed to write mutation")
		}
	}
	return bw.Flush()
}

// ParsedMutation is a log line whose mutation has not been bound to a
// method yet.
type ParsedMutation struct {
	Mutator string
	CodeIdx int
	Fields  []string
}

// ReadMutations parses a mutation log. Blank lines are skipped.
func ReadMutations(r io.Reader) ([]ParsedMutation, error) {
	var out []ParsedMutation
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, errors.Errorf("mutation log line %d: want '<mutator> <code index> ...', got %q", line, sc.Text())
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "mutation log line %d: bad code index", line)
		}
		out = append(out, ParsedMutation{Mutator: fields[0], CodeIdx: idx, Fields: fields[2:]})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read mutation log")
	}
	return out, nil
}

// MutationStats counts events per name.
type MutationStats struct {
	stats map[string]int
}

func NewMutationStats() *MutationStats {
	return &MutationStats{stats: make(map[string]int)}
}

func (s *MutationStats) Increment(name string) { s.stats[name]++ }

func (s *MutationStats) Add(name string, n int) { s.stats[name] += n }

func (s *MutationStats) Get(name string) int { return s.stats[name] }

// Names returns the counted names in sorted order.
func (s *MutationStats) Names() []string {
	names := make([]string, 0, len(s.stats))
	for name := range s.stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge adds every count of other.
func (s *MutationStats) Merge(other *MutationStats) {
	for name, n := range other.stats {
		s.stats[name] += n
	}
}

func (s *MutationStats) String() string {
	var sb strings.Builder
	for _, name := range s.Names() {
		fmt.Fprintf(&sb, "%s: %d\n", name, s.stats[name])
	}
	return sb.String()
}
