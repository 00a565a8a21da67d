package rawdex

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"hash/adler32"
	"testing"

	"github.com/blacktop/dexfuzz/internal/dextest"
)

const sbType = "Ljava/lang/StringBuilder;"

func sampleBuilder() *dextest.Builder {
	b := &dextest.Builder{
		Class: "LTest;",
		Fields: []dextest.Field{
			{Name: "greeting", Type: "Ljava/lang/String;", Static: true, Value: "hello"},
			{Name: "count", Type: "I"},
		},
		MethodRefs: []dextest.MethodRef{
			{Class: "Ljava/lang/Object;", Name: "<init>", Proto: dextest.Proto{Return: "V"}},
		},
		Types:     []string{sbType},
		DebugInfo: true,
	}
	objInit := uint16(b.MethodIdx("Ljava/lang/Object;", "<init>"))
	sb := uint16(b.TypeIdx(sbType))
	b.Methods = []dextest.Method{
		{
			Name: "<init>", Proto: dextest.Proto{Return: "V"},
			Registers: 1, Ins: 1, Outs: 1,
			Insns: []uint16{0x1070, objInit, 0x0000, 0x000e},
		},
		{
			Name: "add", Proto: dextest.Proto{Return: "I", Params: []string{"I", "I"}}, Static: true,
			Registers: 2, Ins: 2,
			Insns: []uint16{0x0090, 0x0100, 0x000f},
		},
		{
			Name: "make", Proto: dextest.Proto{Return: "Ljava/lang/Object;"}, Static: true,
			Registers: 1,
			// new-instance v0, StringBuilder; return-object v0; move-exception v0; return-object v0
			Insns: []uint16{0x0022, sb, 0x0011, 0x000d, 0x0011},
			Tries: []dextest.Try{{Start: 0, Count: 2, CatchAll: 3}},
		},
	}
	return b
}

func parseSample(t *testing.T) (*dextest.Builder, []byte, *RawDexFile) {
	t.Helper()
	b := sampleBuilder()
	data := b.Build()
	dex, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return b, data, dex
}

func codeByFirstOpcode(t *testing.T, dex *RawDexFile, o Opcode) *CodeItem {
	t.Helper()
	for _, ci := range dex.CodeItems {
		if len(ci.Insns) > 0 && ci.Insns[0].Opcode() == o {
			return ci
		}
	}
	t.Fatalf("no code item starts with %s", o)
	return nil
}

func TestRoundTrip(t *testing.T) {
	_, data, dex := parseSample(t)
	out, err := dex.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("Marshal() output differs from input (got %d bytes, want %d)", len(out), len(data))
	}
	// a second write of the same file gives the same bytes
	again, err := dex.Marshal()
	if err != nil {
		t.Fatalf("second Marshal() error = %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Error("second Marshal() output differs from input")
	}
}

func TestParsedTables(t *testing.T) {
	b, _, dex := parseSample(t)
	if got := len(dex.CodeItems); got != 3 {
		t.Fatalf("len(CodeItems) = %d, want 3", got)
	}
	if got := dex.TypeString(b.TypeIdx(sbType)); got != sbType {
		t.Errorf("TypeString() = %q, want %q", got, sbType)
	}
	mk := codeByFirstOpcode(t, dex, OpNewInstance)
	if len(mk.Tries) != 1 || len(mk.Handlers) != 1 {
		t.Fatalf("tries, handlers = %d, %d, want 1, 1", len(mk.Tries), len(mk.Handlers))
	}
	if h := mk.Handlers[mk.Tries[0].HandlerIdx]; !h.HasCatchAll() || h.CatchAllAddr != 3 {
		t.Errorf("handler = %+v, want catch-all at 3", h)
	}
	if len(dex.EncodedArrayItems) != 1 {
		t.Fatalf("len(EncodedArrayItems) = %d, want 1", len(dex.EncodedArrayItems))
	}
	v := dex.EncodedArrayItems[0].Value.Values[0]
	if v.Type != ValueString || dex.StringAt(int(v.Index)) != "hello" {
		t.Errorf("static value = %s, want the string hello", v)
	}
}

func TestDebugInfoOffsetsIntoBlob(t *testing.T) {
	_, _, dex := parseSample(t)
	var inside int
	for _, ci := range dex.CodeItems {
		if ci.DebugInfoOff.PointedToItem() != dex.DebugInfo {
			t.Fatalf("debug info offset 0x%x does not resolve to the debug info blob", ci.DebugInfoOff.OriginalOffset())
		}
		if ci.DebugInfoOff.delta > 0 {
			inside++
		}
	}
	if inside != 2 {
		t.Errorf("%d offsets point inside the blob, want 2", inside)
	}
}

func TestHeaderFixups(t *testing.T) {
	_, _, dex := parseSample(t)
	dex.CodeItems[0].RegistersSize++
	out, err := dex.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	le := binary.LittleEndian
	if got := le.Uint32(out[fileSizeOff:]); int(got) != len(out) {
		t.Errorf("file_size = %d, want %d", got, len(out))
	}
	sig := sha1.Sum(out[fileSizeOff:])
	if !bytes.Equal(out[signatureOff:fileSizeOff], sig[:]) {
		t.Error("signature does not match sha1 of the file")
	}
	if got, want := le.Uint32(out[checksumOff:]), adler32.Checksum(out[signatureOff:]); got != want {
		t.Errorf("checksum = %#x, want %#x", got, want)
	}
	if got, want := le.Uint32(out[dataSizeOff:]), uint32(len(out))-le.Uint32(out[108:]); got != want {
		t.Errorf("data_size = %d, want %d", got, want)
	}
}

func TestEditedInstructionSurvives(t *testing.T) {
	_, _, dex := parseSample(t)
	add := codeByFirstOpcode(t, dex, OpAddInt)
	add.Insns[0].Info = OpSubInt.Info()
	out, err := dex.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse() of the edited file error = %v", err)
	}
	sub := codeByFirstOpcode(t, again, OpSubInt)
	if sub.Insns[0].VRegA != 0 || sub.Insns[0].VRegB != 0 || sub.Insns[0].VRegC != 1 {
		t.Errorf("operands changed: %s", sub.Insns[0])
	}
}

func TestIncrementIndexPropagation(t *testing.T) {
	b, _, dex := parseSample(t)
	sb := b.TypeIdx(sbType)
	class := b.TypeIdx("LTest;")
	mk := codeByFirstOpcode(t, dex, OpNewInstance)

	dex.IncrementIndex(TypeIDIndex, sb)

	if got := mk.Insns[0].VRegB; got != int64(sb+1) {
		t.Errorf("new-instance type index = %d, want %d", got, sb+1)
	}
	want := uint32(class)
	if class >= sb {
		want++
	}
	if got := dex.ClassDefs[0].ClassIdx; got != want {
		t.Errorf("class_idx = %d, want %d", got, want)
	}
	// string renumbering reaches static values
	hello := dex.EncodedArrayItems[0].Value.Values[0].Index
	dex.IncrementIndex(StringIDIndex, 0)
	if got := dex.EncodedArrayItems[0].Value.Values[0].Index; got != hello+1 {
		t.Errorf("static value string index = %d, want %d", got, hello+1)
	}
}

func TestParseErrors(t *testing.T) {
	good := sampleBuilder().Build()
	tests := []struct {
		name    string
		data    func() []byte
		wantErr error
	}{
		{"bad magic", func() []byte {
			d := bytes.Clone(good)
			copy(d, "zip\n")
			return d
		}, ErrInvalidMagic},
		{"bad header size", func() []byte {
			d := bytes.Clone(good)
			binary.LittleEndian.PutUint32(d[36:], 0x80)
			return d
		}, ErrBadHeaderSize},
		{"truncated", func() []byte { return good[:0x40] }, ErrTruncated},
		{"unknown map item", func() []byte {
			d := bytes.Clone(good)
			mapOff := binary.LittleEndian.Uint32(d[52:])
			// first map item after the header entry
			binary.LittleEndian.PutUint16(d[mapOff+4+12:], 0x7777)
			return d
		}, ErrUnknownMapItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarshalRejectsWriteOrder(t *testing.T) {
	_, _, dex := parseSample(t)
	if len(dex.StringDatas) < 2 {
		t.Fatalf("sample has %d strings", len(dex.StringDatas))
	}
	dex.StringDatas[0], dex.StringDatas[1] = dex.StringDatas[1], dex.StringDatas[0]

	_, err := dex.Marshal()
	if !errors.Is(err, ErrWriteOrder) {
		t.Fatalf("Marshal() error = %v, want %v", err, ErrWriteOrder)
	}
	var fe *FatalError
	if !errors.As(err, &fe) {
		t.Errorf("Marshal() error %T is not a *FatalError", err)
	}
}
