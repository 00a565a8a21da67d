package rawdex

import "testing"

func TestOpcodeTable(t *testing.T) {
	for i, info := range Opcodes {
		if info.Value != i {
			t.Errorf("Opcodes[%#02x].Value = %#02x", i, info.Value)
		}
		if int(info.Opcode) != i {
			t.Errorf("Opcodes[%#02x].Opcode = %#02x", i, info.Opcode)
		}
		if info.Format == nil {
			t.Errorf("Opcodes[%#02x] (%s) has no format", i, info.Name)
		}
	}
}

func TestOpcodeClasses(t *testing.T) {
	tests := []struct {
		op       Opcode
		branch   bool
		switches bool
		withData bool
		invoke   bool
		pool     PoolIndexKind
	}{
		{OpNop, false, false, false, false, PoolNone},
		{OpGoto, true, false, false, false, PoolNone},
		{OpIfLez, true, false, false, false, PoolNone},
		{OpPackedSwitch, false, true, true, false, PoolNone},
		{OpFillArrayData, false, false, true, false, PoolNone},
		{OpConstString, false, false, false, false, PoolString},
		{OpNewInstance, false, false, false, false, PoolType},
		{OpSgetObject, false, false, false, false, PoolField},
		{OpInvokeStaticRange, false, false, false, true, PoolMethod},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			if got := tt.op.IsBranch(); got != tt.branch {
				t.Errorf("IsBranch() = %v, want %v", got, tt.branch)
			}
			if got := tt.op.IsSwitch(); got != tt.switches {
				t.Errorf("IsSwitch() = %v, want %v", got, tt.switches)
			}
			if got := tt.op.IsWithData(); got != tt.withData {
				t.Errorf("IsWithData() = %v, want %v", got, tt.withData)
			}
			if got := tt.op.IsInvoke(); got != tt.invoke {
				t.Errorf("IsInvoke() = %v, want %v", got, tt.invoke)
			}
			if got := tt.op.PoolIndexKind(); got != tt.pool {
				t.Errorf("PoolIndexKind() = %s, want %s", got, tt.pool)
			}
		})
	}
}

func TestPayloadSize(t *testing.T) {
	tests := []struct {
		name    string
		rawType int
		hdr     []byte
		want    int
	}{
		{"packed switch of 3", RawPackedSwitchData, []byte{0x00, 0x01, 0x03, 0x00}, 10},
		{"sparse switch of 2", RawSparseSwitchData, []byte{0x00, 0x02, 0x02, 0x00}, 10},
		{"fill array of 3 ints", RawFillArrayDataData, []byte{0x00, 0x03, 0x04, 0x00, 0x03, 0x00, 0x00, 0x00}, 10},
		{"fill array of 3 bytes", RawFillArrayDataData, []byte{0x00, 0x03, 0x01, 0x00, 0x03, 0x00, 0x00, 0x00}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := payloadSize(tt.rawType, tt.hdr); got != tt.want {
				t.Errorf("payloadSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnknownPayloadIsFatal(t *testing.T) {
	var err error
	func() {
		defer Recover(&err)
		payloadSize(7, []byte{0, 7, 0, 0})
	}()
	if err == nil {
		t.Fatal("payloadSize() accepted an unknown payload ident")
	}
}
