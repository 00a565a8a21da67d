package rawdex

// Opcode is the numeric value of a bytecode instruction.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpMove
	OpMoveFrom16
	OpMove16
	OpMoveWide
	OpMoveWideFrom16
	OpMoveWide16
	OpMoveObject
	OpMoveObjectFrom16
	OpMoveObject16
	OpMoveResult
	OpMoveResultWide
	OpMoveResultObject
	OpMoveException
	OpReturnVoid
	OpReturn
	OpReturnWide
	OpReturnObject
	OpConst4
	OpConst16
	OpConst
	OpConstHigh16
	OpConstWide16
	OpConstWide32
	OpConstWide
	OpConstWideHigh16
	OpConstString
	OpConstStringJumbo
	OpConstClass
	OpMonitorEnter
	OpMonitorExit
	OpCheckCast
	OpInstanceOf
	OpArrayLength
	OpNewInstance
	OpNewArray
	OpFilledNewArray
	OpFilledNewArrayRange
	OpFillArrayData
	OpThrow
	OpGoto
	OpGoto16
	OpGoto32
	OpPackedSwitch
	OpSparseSwitch
	OpCmplFloat
	OpCmpgFloat
	OpCmplDouble
	OpCmpgDouble
	OpCmpLong
	OpIfEq
	OpIfNe
	OpIfLt
	OpIfGe
	OpIfGt
	OpIfLe
	OpIfEqz
	OpIfNez
	OpIfLtz
	OpIfGez
	OpIfGtz
	OpIfLez
	OpUnused3E
	OpUnused3F
	OpUnused40
	OpUnused41
	OpUnused42
	OpUnused43
	OpAget
	OpAgetWide
	OpAgetObject
	OpAgetBoolean
	OpAgetByte
	OpAgetChar
	OpAgetShort
	OpAput
	OpAputWide
	OpAputObject
	OpAputBoolean
	OpAputByte
	OpAputChar
	OpAputShort
	OpIget
	OpIgetWide
	OpIgetObject
	OpIgetBoolean
	OpIgetByte
	OpIgetChar
	OpIgetShort
	OpIput
	OpIputWide
	OpIputObject
	OpIputBoolean
	OpIputByte
	OpIputChar
	OpIputShort
	OpSget
	OpSgetWide
	OpSgetObject
	OpSgetBoolean
	OpSgetByte
	OpSgetChar
	OpSgetShort
	OpSput
	OpSputWide
	OpSputObject
	OpSputBoolean
	OpSputByte
	OpSputChar
	OpSputShort
	OpInvokeVirtual
	OpInvokeSuper
	OpInvokeDirect
	OpInvokeStatic
	OpInvokeInterface
	OpReturnVoidNoBarrier
	OpInvokeVirtualRange
	OpInvokeSuperRange
	OpInvokeDirectRange
	OpInvokeStaticRange
	OpInvokeInterfaceRange
	OpUnused79
	OpUnused7A
	OpNegInt
	OpNotInt
	OpNegLong
	OpNotLong
	OpNegFloat
	OpNegDouble
	OpIntToLong
	OpIntToFloat
	OpIntToDouble
	OpLongToInt
	OpLongToFloat
	OpLongToDouble
	OpFloatToInt
	OpFloatToLong
	OpFloatToDouble
	OpDoubleToInt
	OpDoubleToLong
	OpDoubleToFloat
	OpIntToByte
	OpIntToChar
	OpIntToShort
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpRemInt
	OpAndInt
	OpOrInt
	OpXorInt
	OpShlInt
	OpShrInt
	OpUshrInt
	OpAddLong
	OpSubLong
	OpMulLong
	OpDivLong
	OpRemLong
	OpAndLong
	OpOrLong
	OpXorLong
	OpShlLong
	OpShrLong
	OpUshrLong
	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat
	OpRemFloat
	OpAddDouble
	OpSubDouble
	OpMulDouble
	OpDivDouble
	OpRemDouble
	OpAddInt2Addr
	OpSubInt2Addr
	OpMulInt2Addr
	OpDivInt2Addr
	OpRemInt2Addr
	OpAndInt2Addr
	OpOrInt2Addr
	OpXorInt2Addr
	OpShlInt2Addr
	OpShrInt2Addr
	OpUshrInt2Addr
	OpAddLong2Addr
	OpSubLong2Addr
	OpMulLong2Addr
	OpDivLong2Addr
	OpRemLong2Addr
	OpAndLong2Addr
	OpOrLong2Addr
	OpXorLong2Addr
	OpShlLong2Addr
	OpShrLong2Addr
	OpUshrLong2Addr
	OpAddFloat2Addr
	OpSubFloat2Addr
	OpMulFloat2Addr
	OpDivFloat2Addr
	OpRemFloat2Addr
	OpAddDouble2Addr
	OpSubDouble2Addr
	OpMulDouble2Addr
	OpDivDouble2Addr
	OpRemDouble2Addr
	OpAddIntLit16
	OpRsubInt
	OpMulIntLit16
	OpDivIntLit16
	OpRemIntLit16
	OpAndIntLit16
	OpOrIntLit16
	OpXorIntLit16
	OpAddIntLit8
	OpRsubIntLit8
	OpMulIntLit8
	OpDivIntLit8
	OpRemIntLit8
	OpAndIntLit8
	OpOrIntLit8
	OpXorIntLit8
	OpShlIntLit8
	OpShrIntLit8
	OpUshrIntLit8
	OpIgetQuick
	OpIgetWideQuick
	OpIgetObjectQuick
	OpIputQuick
	OpIputWideQuick
	OpIputObjectQuick
	OpInvokeVirtualQuick
	OpInvokeVirtualQuickRange
	OpIputBooleanQuick
	OpIputByteQuick
	OpIputCharQuick
	OpIputShortQuick
	OpUnusedEF
	OpUnusedF0
	OpUnusedF1
	OpUnusedF2
	OpUnusedF3
	OpUnusedF4
	OpUnusedF5
	OpUnusedF6
	OpUnusedF7
	OpUnusedF8
	OpUnusedF9
	OpUnusedFA
	OpUnusedFB
	OpUnusedFC
	OpUnusedFD
	OpUnusedFE
	OpUnusedFF
)

// OpcodeInfo describes one entry of the opcode table.
type OpcodeInfo struct {
	Opcode Opcode
	Name   string
	Value  int
	Format Format
}

// Opcodes is indexed by the numeric opcode value.
var Opcodes = [256]OpcodeInfo{
	{OpNop, "nop", 0x00, format10x{}},
	{OpMove, "move", 0x01, format12x{}},
	{OpMoveFrom16, "move/from16", 0x02, format22x{}},
	{OpMove16, "move/16", 0x03, format32x{}},
	{OpMoveWide, "move-wide", 0x04, format12x{}},
	{OpMoveWideFrom16, "move-wide/from16", 0x05, format22x{}},
	{OpMoveWide16, "move-wide/16", 0x06, format32x{}},
	{OpMoveObject, "move-object", 0x07, format12x{}},
	{OpMoveObjectFrom16, "move-object/from16", 0x08, format22x{}},
	{OpMoveObject16, "move-object/16", 0x09, format32x{}},
	{OpMoveResult, "move-result", 0x0a, format11x{}},
	{OpMoveResultWide, "move-result-wide", 0x0b, format11x{}},
	{OpMoveResultObject, "move-result-object", 0x0c, format11x{}},
	{OpMoveException, "move-exception", 0x0d, format11x{}},
	{OpReturnVoid, "return-void", 0x0e, format10x{}},
	{OpReturn, "return", 0x0f, format11x{}},
	{OpReturnWide, "return-wide", 0x10, format11x{}},
	{OpReturnObject, "return-object", 0x11, format11x{}},
	{OpConst4, "const/4", 0x12, format11n{}},
	{OpConst16, "const/16", 0x13, format21s{}},
	{OpConst, "const", 0x14, format31i{}},
	{OpConstHigh16, "const/high16", 0x15, format21h{}},
	{OpConstWide16, "const-wide/16", 0x16, format21s{}},
	{OpConstWide32, "const-wide/32", 0x17, format31i{}},
	{OpConstWide, "const-wide", 0x18, format51l{}},
	{OpConstWideHigh16, "const-wide/high16", 0x19, format21h{}},
	{OpConstString, "const-string", 0x1a, format21c{}},
	{OpConstStringJumbo, "const-string/jumbo", 0x1b, format31c{}},
	{OpConstClass, "const-class", 0x1c, format21c{}},
	{OpMonitorEnter, "monitor-enter", 0x1d, format11x{}},
	{OpMonitorExit, "monitor-exit", 0x1e, format11x{}},
	{OpCheckCast, "check-cast", 0x1f, format21c{}},
	{OpInstanceOf, "instance-of", 0x20, format22c{}},
	{OpArrayLength, "array-length", 0x21, format12x{}},
	{OpNewInstance, "new-instance", 0x22, format21c{}},
	{OpNewArray, "new-array", 0x23, format22c{}},
	{OpFilledNewArray, "filled-new-array", 0x24, format35c{}},
	{OpFilledNewArrayRange, "filled-new-array/range", 0x25, format3rc{}},
	{OpFillArrayData, "fill-array-data", 0x26, format31t{}},
	{OpThrow, "throw", 0x27, format11x{}},
	{OpGoto, "goto", 0x28, format10t{}},
	{OpGoto16, "goto/16", 0x29, format20t{}},
	{OpGoto32, "goto/32", 0x2a, format30t{}},
	{OpPackedSwitch, "packed-switch", 0x2b, format31t{}},
	{OpSparseSwitch, "sparse-switch", 0x2c, format31t{}},
	{OpCmplFloat, "cmpl-float", 0x2d, format23x{}},
	{OpCmpgFloat, "cmpg-float", 0x2e, format23x{}},
	{OpCmplDouble, "cmpl-double", 0x2f, format23x{}},
	{OpCmpgDouble, "cmpg-double", 0x30, format23x{}},
	{OpCmpLong, "cmp-long", 0x31, format23x{}},
	{OpIfEq, "if-eq", 0x32, format22t{}},
	{OpIfNe, "if-ne", 0x33, format22t{}},
	{OpIfLt, "if-lt", 0x34, format22t{}},
	{OpIfGe, "if-ge", 0x35, format22t{}},
	{OpIfGt, "if-gt", 0x36, format22t{}},
	{OpIfLe, "if-le", 0x37, format22t{}},
	{OpIfEqz, "if-eqz", 0x38, format21t{}},
	{OpIfNez, "if-nez", 0x39, format21t{}},
	{OpIfLtz, "if-ltz", 0x3a, format21t{}},
	{OpIfGez, "if-gez", 0x3b, format21t{}},
	{OpIfGtz, "if-gtz", 0x3c, format21t{}},
	{OpIfLez, "if-lez", 0x3d, format21t{}},
	{OpUnused3E, "unused-3e", 0x3e, format10x{}},
	{OpUnused3F, "unused-3f", 0x3f, format10x{}},
	{OpUnused40, "unused-40", 0x40, format10x{}},
	{OpUnused41, "unused-41", 0x41, format10x{}},
	{OpUnused42, "unused-42", 0x42, format10x{}},
	{OpUnused43, "unused-43", 0x43, format10x{}},
	{OpAget, "aget", 0x44, format23x{}},
	{OpAgetWide, "aget-wide", 0x45, format23x{}},
	{OpAgetObject, "aget-object", 0x46, format23x{}},
	{OpAgetBoolean, "aget-boolean", 0x47, format23x{}},
	{OpAgetByte, "aget-byte", 0x48, format23x{}},
	{OpAgetChar, "aget-char", 0x49, format23x{}},
	{OpAgetShort, "aget-short", 0x4a, format23x{}},
	{OpAput, "aput", 0x4b, format23x{}},
	{OpAputWide, "aput-wide", 0x4c, format23x{}},
	{OpAputObject, "aput-object", 0x4d, format23x{}},
	{OpAputBoolean, "aput-boolean", 0x4e, format23x{}},
	{OpAputByte, "aput-byte", 0x4f, format23x{}},
	{OpAputChar, "aput-char", 0x50, format23x{}},
	{OpAputShort, "aput-short", 0x51, format23x{}},
	{OpIget, "iget", 0x52, format22c{}},
	{OpIgetWide, "iget-wide", 0x53, format22c{}},
	{OpIgetObject, "iget-object", 0x54, format22c{}},
	{OpIgetBoolean, "iget-boolean", 0x55, format22c{}},
	{OpIgetByte, "iget-byte", 0x56, format22c{}},
	{OpIgetChar, "iget-char", 0x57, format22c{}},
	{OpIgetShort, "iget-short", 0x58, format22c{}},
	{OpIput, "iput", 0x59, format22c{}},
	{OpIputWide, "iput-wide", 0x5a, format22c{}},
	{OpIputObject, "iput-object", 0x5b, format22c{}},
	{OpIputBoolean, "iput-boolean", 0x5c, format22c{}},
	{OpIputByte, "iput-byte", 0x5d, format22c{}},
	{OpIputChar, "iput-char", 0x5e, format22c{}},
	{OpIputShort, "iput-short", 0x5f, format22c{}},
	{OpSget, "sget", 0x60, format21c{}},
	{OpSgetWide, "sget-wide", 0x61, format21c{}},
	{OpSgetObject, "sget-object", 0x62, format21c{}},
	{OpSgetBoolean, "sget-boolean", 0x63, format21c{}},
	{OpSgetByte, "sget-byte", 0x64, format21c{}},
	{OpSgetChar, "sget-char", 0x65, format21c{}},
	{OpSgetShort, "sget-short", 0x66, format21c{}},
	{OpSput, "sput", 0x67, format21c{}},
	{OpSputWide, "sput-wide", 0x68, format21c{}},
	{OpSputObject, "sput-object", 0x69, format21c{}},
	{OpSputBoolean, "sput-boolean", 0x6a, format21c{}},
	{OpSputByte, "sput-byte", 0x6b, format21c{}},
	{OpSputChar, "sput-char", 0x6c, format21c{}},
	{OpSputShort, "sput-short", 0x6d, format21c{}},
	{OpInvokeVirtual, "invoke-virtual", 0x6e, format35c{}},
	{OpInvokeSuper, "invoke-super", 0x6f, format35c{}},
	{OpInvokeDirect, "invoke-direct", 0x70, format35c{}},
	{OpInvokeStatic, "invoke-static", 0x71, format35c{}},
	{OpInvokeInterface, "invoke-interface", 0x72, format35c{}},
	{OpReturnVoidNoBarrier, "return-void-no-barrier", 0x73, format10x{}},
	{OpInvokeVirtualRange, "invoke-virtual/range", 0x74, format3rc{}},
	{OpInvokeSuperRange, "invoke-super/range", 0x75, format3rc{}},
	{OpInvokeDirectRange, "invoke-direct/range", 0x76, format3rc{}},
	{OpInvokeStaticRange, "invoke-static/range", 0x77, format3rc{}},
	{OpInvokeInterfaceRange, "invoke-interface/range", 0x78, format3rc{}},
	{OpUnused79, "unused-79", 0x79, format10x{}},
	{OpUnused7A, "unused-7a", 0x7a, format10x{}},
	{OpNegInt, "neg-int", 0x7b, format12x{}},
	{OpNotInt, "not-int", 0x7c, format12x{}},
	{OpNegLong, "neg-long", 0x7d, format12x{}},
	{OpNotLong, "not-long", 0x7e, format12x{}},
	{OpNegFloat, "neg-float", 0x7f, format12x{}},
	{OpNegDouble, "neg-double", 0x80, format12x{}},
	{OpIntToLong, "int-to-long", 0x81, format12x{}},
	{OpIntToFloat, "int-to-float", 0x82, format12x{}},
	{OpIntToDouble, "int-to-double", 0x83, format12x{}},
	{OpLongToInt, "long-to-int", 0x84, format12x{}},
	{OpLongToFloat, "long-to-float", 0x85, format12x{}},
	{OpLongToDouble, "long-to-double", 0x86, format12x{}},
	{OpFloatToInt, "float-to-int", 0x87, format12x{}},
	{OpFloatToLong, "float-to-long", 0x88, format12x{}},
	{OpFloatToDouble, "float-to-double", 0x89, format12x{}},
	{OpDoubleToInt, "double-to-int", 0x8a, format12x{}},
	{OpDoubleToLong, "double-to-long", 0x8b, format12x{}},
	{OpDoubleToFloat, "double-to-float", 0x8c, format12x{}},
	{OpIntToByte, "int-to-byte", 0x8d, format12x{}},
	{OpIntToChar, "int-to-char", 0x8e, format12x{}},
	{OpIntToShort, "int-to-short", 0x8f, format12x{}},
	{OpAddInt, "add-int", 0x90, format23x{}},
	{OpSubInt, "sub-int", 0x91, format23x{}},
	{OpMulInt, "mul-int", 0x92, format23x{}},
	{OpDivInt, "div-int", 0x93, format23x{}},
	{OpRemInt, "rem-int", 0x94, format23x{}},
	{OpAndInt, "and-int", 0x95, format23x{}},
	{OpOrInt, "or-int", 0x96, format23x{}},
	{OpXorInt, "xor-int", 0x97, format23x{}},
	{OpShlInt, "shl-int", 0x98, format23x{}},
	{OpShrInt, "shr-int", 0x99, format23x{}},
	{OpUshrInt, "ushr-int", 0x9a, format23x{}},
	{OpAddLong, "add-long", 0x9b, format23x{}},
	{OpSubLong, "sub-long", 0x9c, format23x{}},
	{OpMulLong, "mul-long", 0x9d, format23x{}},
	{OpDivLong, "div-long", 0x9e, format23x{}},
	{OpRemLong, "rem-long", 0x9f, format23x{}},
	{OpAndLong, "and-long", 0xa0, format23x{}},
	{OpOrLong, "or-long", 0xa1, format23x{}},
	{OpXorLong, "xor-long", 0xa2, format23x{}},
	{OpShlLong, "shl-long", 0xa3, format23x{}},
	{OpShrLong, "shr-long", 0xa4, format23x{}},
	{OpUshrLong, "ushr-long", 0xa5, format23x{}},
	{OpAddFloat, "add-float", 0xa6, format23x{}},
	{OpSubFloat, "sub-float", 0xa7, format23x{}},
	{OpMulFloat, "mul-float", 0xa8, format23x{}},
	{OpDivFloat, "div-float", 0xa9, format23x{}},
	{OpRemFloat, "rem-float", 0xaa, format23x{}},
	{OpAddDouble, "add-double", 0xab, format23x{}},
	{OpSubDouble, "sub-double", 0xac, format23x{}},
	{OpMulDouble, "mul-double", 0xad, format23x{}},
	{OpDivDouble, "div-double", 0xae, format23x{}},
	{OpRemDouble, "rem-double", 0xaf, format23x{}},
	{OpAddInt2Addr, "add-int/2addr", 0xb0, format12x{}},
	{OpSubInt2Addr, "sub-int/2addr", 0xb1, format12x{}},
	{OpMulInt2Addr, "mul-int/2addr", 0xb2, format12x{}},
	{OpDivInt2Addr, "div-int/2addr", 0xb3, format12x{}},
	{OpRemInt2Addr, "rem-int/2addr", 0xb4, format12x{}},
	{OpAndInt2Addr, "and-int/2addr", 0xb5, format12x{}},
	{OpOrInt2Addr, "or-int/2addr", 0xb6, format12x{}},
	{OpXorInt2Addr, "xor-int/2addr", 0xb7, format12x{}},
	{OpShlInt2Addr, "shl-int/2addr", 0xb8, format12x{}},
	{OpShrInt2Addr, "shr-int/2addr", 0xb9, format12x{}},
	{OpUshrInt2Addr, "ushr-int/2addr", 0xba, format12x{}},
	{OpAddLong2Addr, "add-long/2addr", 0xbb, format12x{}},
	{OpSubLong2Addr, "sub-long/2addr", 0xbc, format12x{}},
	{OpMulLong2Addr, "mul-long/2addr", 0xbd, format12x{}},
	{OpDivLong2Addr, "div-long/2addr", 0xbe, format12x{}},
	{OpRemLong2Addr, "rem-long/2addr", 0xbf, format12x{}},
	{OpAndLong2Addr, "and-long/2addr", 0xc0, format12x{}},
	{OpOrLong2Addr, "or-long/2addr", 0xc1, format12x{}},
	{OpXorLong2Addr, "xor-long/2addr", 0xc2, format12x{}},
	{OpShlLong2Addr, "shl-long/2addr", 0xc3, format12x{}},
	{OpShrLong2Addr, "shr-long/2addr", 0xc4, format12x{}},
	{OpUshrLong2Addr, "ushr-long/2addr", 0xc5, format12x{}},
	{OpAddFloat2Addr, "add-float/2addr", 0xc6, format12x{}},
	{OpSubFloat2Addr, "sub-float/2addr", 0xc7, format12x{}},
	{OpMulFloat2Addr, "mul-float/2addr", 0xc8, format12x{}},
	{OpDivFloat2Addr, "div-float/2addr", 0xc9, format12x{}},
	{OpRemFloat2Addr, "rem-float/2addr", 0xca, format12x{}},
	{OpAddDouble2Addr, "add-double/2addr", 0xcb, format12x{}},
	{OpSubDouble2Addr, "sub-double/2addr", 0xcc, format12x{}},
	{OpMulDouble2Addr, "mul-double/2addr", 0xcd, format12x{}},
	{OpDivDouble2Addr, "div-double/2addr", 0xce, format12x{}},
	{OpRemDouble2Addr, "rem-double/2addr", 0xcf, format12x{}},
	{OpAddIntLit16, "add-int/lit16", 0xd0, format22s{}},
	{OpRsubInt, "rsub-int", 0xd1, format22s{}},
	{OpMulIntLit16, "mul-int/lit16", 0xd2, format22s{}},
	{OpDivIntLit16, "div-int/lit16", 0xd3, format22s{}},
	{OpRemIntLit16, "rem-int/lit16", 0xd4, format22s{}},
	{OpAndIntLit16, "and-int/lit16", 0xd5, format22s{}},
	{OpOrIntLit16, "or-int/lit16", 0xd6, format22s{}},
	{OpXorIntLit16, "xor-int/lit16", 0xd7, format22s{}},
	{OpAddIntLit8, "add-int/lit8", 0xd8, format22b{}},
	{OpRsubIntLit8, "rsub-int/lit8", 0xd9, format22b{}},
	{OpMulIntLit8, "mul-int/lit8", 0xda, format22b{}},
	{OpDivIntLit8, "div-int/lit8", 0xdb, format22b{}},
	{OpRemIntLit8, "rem-int/lit8", 0xdc, format22b{}},
	{OpAndIntLit8, "and-int/lit8", 0xdd, format22b{}},
	{OpOrIntLit8, "or-int/lit8", 0xde, format22b{}},
	{OpXorIntLit8, "xor-int/lit8", 0xdf, format22b{}},
	{OpShlIntLit8, "shl-int/lit8", 0xe0, format22b{}},
	{OpShrIntLit8, "shr-int/lit8", 0xe1, format22b{}},
	{OpUshrIntLit8, "ushr-int/lit8", 0xe2, format22b{}},
	{OpIgetQuick, "+iget-quick", 0xe3, format22c{}},
	{OpIgetWideQuick, "+iget-wide-quick", 0xe4, format22c{}},
	{OpIgetObjectQuick, "+iget-object-quick", 0xe5, format22c{}},
	{OpIputQuick, "+iput-quick", 0xe6, format22c{}},
	{OpIputWideQuick, "+iput-wide-quick", 0xe7, format22c{}},
	{OpIputObjectQuick, "+iput-object-quick", 0xe8, format22c{}},
	{OpInvokeVirtualQuick, "+invoke-virtual-quick", 0xe9, format35c{}},
	{OpInvokeVirtualQuickRange, "+invoke-virtual-quick/range", 0xea, format3rc{}},
	{OpIputBooleanQuick, "+iput-boolean-quick", 0xeb, format22c{}},
	{OpIputByteQuick, "+iput-byte-quick", 0xec, format22c{}},
	{OpIputCharQuick, "+iput-char-quick", 0xed, format22c{}},
	{OpIputShortQuick, "+iput-short-quick", 0xee, format22c{}},
	{OpUnusedEF, "unused-ef", 0xef, format10x{}},
	{OpUnusedF0, "unused-f0", 0xf0, format10x{}},
	{OpUnusedF1, "unused-f1", 0xf1, format10x{}},
	{OpUnusedF2, "unused-f2", 0xf2, format10x{}},
	{OpUnusedF3, "unused-f3", 0xf3, format10x{}},
	{OpUnusedF4, "unused-f4", 0xf4, format10x{}},
	{OpUnusedF5, "unused-f5", 0xf5, format10x{}},
	{OpUnusedF6, "unused-f6", 0xf6, format10x{}},
	{OpUnusedF7, "unused-f7", 0xf7, format10x{}},
	{OpUnusedF8, "unused-f8", 0xf8, format10x{}},
	{OpUnusedF9, "unused-f9", 0xf9, format10x{}},
	{OpUnusedFA, "unused-fa", 0xfa, format10x{}},
	{OpUnusedFB, "unused-fb", 0xfb, format10x{}},
	{OpUnusedFC, "unused-fc", 0xfc, format10x{}},
	{OpUnusedFD, "unused-fd", 0xfd, format10x{}},
	{OpUnusedFE, "unused-fe", 0xfe, format10x{}},
	{OpUnusedFF, "unused-ff", 0xff, format10x{}},
}

// Info returns the table entry for o.
func (o Opcode) Info() *OpcodeInfo { return &Opcodes[o] }

func (o Opcode) String() string { return Opcodes[o].Name }

// Between reports whether lo <= o <= hi.
func (o Opcode) Between(lo, hi Opcode) bool { return o >= lo && o <= hi }

func (o Opcode) IsUnused() bool {
	return o.Between(OpUnused3E, OpUnused43) ||
		o.Between(OpUnused79, OpUnused7A) ||
		o.Between(OpUnusedEF, OpUnusedFF)
}

// IsQuick reports whether o is one of the quickened accessors that only
// appear in optimized files.
func (o Opcode) IsQuick() bool { return o.Between(OpIgetQuick, OpIputShortQuick) }

func (o Opcode) IsBranch() bool {
	return o.Between(OpIfEq, OpIfLez) || o.Between(OpGoto, OpGoto32)
}

func (o Opcode) IsSwitch() bool { return o.Between(OpPackedSwitch, OpSparseSwitch) }

// IsWithData reports whether o references a data payload.
func (o Opcode) IsWithData() bool { return o == OpFillArrayData || o.IsSwitch() }

func (o Opcode) IsInvoke() bool {
	return o.Between(OpInvokeVirtual, OpInvokeInterface) || o.Between(OpInvokeVirtualRange, OpInvokeInterfaceRange)
}

// PoolIndexKind names the table a pool index operand refers to.
type PoolIndexKind int

const (
	PoolNone PoolIndexKind = iota
	PoolString
	PoolType
	PoolField
	PoolMethod
)

func (k PoolIndexKind) String() string {
	switch k {
	case PoolString:
		return "string"
	case PoolType:
		return "type"
	case PoolField:
		return "field"
	case PoolMethod:
		return "method"
	}
	return "none"
}

// IndexKind maps a pool kind to the table kind used for renumbering.
func (k PoolIndexKind) IndexKind() (IndexUpdateKind, bool) {
	switch k {
	case PoolString:
		return StringIDIndex, true
	case PoolType:
		return TypeIDIndex, true
	case PoolField:
		return FieldIDIndex, true
	case PoolMethod:
		return MethodIDIndex, true
	}
	return 0, false
}

// PoolIndexKind returns the table referenced by the pool index of o.
func (o Opcode) PoolIndexKind() PoolIndexKind {
	switch {
	case o == OpConstString, o == OpConstStringJumbo:
		return PoolString
	case o == OpConstClass, o == OpCheckCast, o == OpInstanceOf, o == OpNewInstance,
		o == OpNewArray, o == OpFilledNewArray, o == OpFilledNewArrayRange:
		return PoolType
	case o.Between(OpIget, OpSputShort):
		return PoolField
	case o.IsInvoke():
		return PoolMethod
	}
	return PoolNone
}
