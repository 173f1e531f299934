package codegen

// Operation code is 1 byte.
// Parameters are 2 bytes long, big-endian.

const (
	OpNop               byte = iota //00 - No operation. No parameters.
	OpPush                          //01 - Put constant on stack. One parameter: constant ID.
	OpPushNull                      //02 - Put the null reference on stack. No parameters.
	OpPop                           //03 - Removes value from stack. No parameters.
	OpDup                           //04 - Duplicates the value on top of stack. No parameters.
	OpLoadHost                      //05 - Put the host instance on stack. No parameters.
	OpLoadLocal                     //06 - Put value of local on stack. One parameter: local slot.
	OpStoreLocal                    //07 - Pops value into local. One parameter: local slot.
	OpLoadLocalAddr                 //08 - Put reference to local on stack. One parameter: local slot.
	OpLoadField                     //09 - Pops receiver, puts field value. One parameter: field ID.
	OpStoreField                    //10 - Pops value and receiver, stores field. One parameter: field ID.
	OpLoadStaticField               //11 - Puts static field value. One parameter: field ID.
	OpStoreStaticField              //12 - Pops value into static field. One parameter: field ID.
	OpGetProperty                   //13 - Pops index arguments and receiver, puts property value. One parameter: property ID.
	OpSetProperty                   //14 - Pops value, index arguments and receiver. One parameter: property ID.
	OpGetStaticProperty             //15 - Pops index arguments, puts property value. One parameter: property ID.
	OpSetStaticProperty             //16 - Pops value and index arguments. One parameter: property ID.
	OpCall                          //17 - Pops arguments, calls static method. One parameter: method ID.
	OpCallVirt                      //18 - Pops arguments and receiver, calls instance method. One parameter: method ID.
	OpLoadElem                      //19 - Pops indices and array, puts element. One parameter: rank.
	OpStoreElem                     //20 - Pops value, indices and array. One parameter: rank.
	OpNewArray                      //21 - Pops length, puts new one-dimensional array. One parameter: element type ID.
	OpLateGet                       //22 - Pops target, puts member value found by name. One parameter: name ID.
	OpLateSet                       //23 - Pops value and target, sets member found by name. One parameter: name ID.
	OpLateCall                      //24 - Pops argument array and target, calls method found by name. One parameter: name ID.
	OpAdd                           //25 - Arithmetic on two values of the same type. No parameters.
	OpSub                           //26
	OpMul                           //27
	OpDiv                           //28
	OpRem                           //29
	OpNeg                           //30 - Negates value on top of stack. No parameters.
	OpNot                           //31 - Logical negation of a boolean. No parameters.
	OpAnd                           //32 - Bitwise and. No parameters.
	OpOr                            //33 - Bitwise or. No parameters.
	OpCeq                           //34 - Pops two values, puts true if they are equal. No parameters.
	OpCgt                           //35 - Pops two values, puts true if the first is greater. No parameters.
	OpClt                           //36 - Pops two values, puts true if the first is less. No parameters.
	OpConv                          //37 - Converts primitive on top of stack. One parameter: target kind.
	OpBox                           //38 - Converts primitive to reference of given type. One parameter: type ID.
	OpUnbox                         //39 - Converts reference to primitive of given type. One parameter: type ID.
	OpCastClass                     //40 - Checked reference cast. One parameter: type ID.
	OpJump                          //41 - Moves instruction pointer. One parameter: new position.
	OpJumpIfTrue                    //42 - Pops boolean, jumps if true. One parameter: new position.
	OpJumpIfFalse                   //43 - Pops boolean, jumps if false. One parameter: new position.
	OpTry                           //44 - Enters protected region ending at its finally handler. One parameter: handler position.
	OpLeave                         //45 - Runs finally handlers of exited regions, then jumps. One parameter: new position.
	OpEndFinally                    //46 - Ends finally handler and resumes pending leave or error. No parameters.
	OpStateGet                      //47 - Pops name and state, puts persisted value. One parameter: type ID.
	OpStateSet                      //48 - Pops value, name and state, persists value. No parameters.
	OpReturn                        //49 - Ends invocation. No parameters.
)

type operand byte

const (
	noOperand operand = iota
	constOperand
	localOperand
	fieldOperand
	propertyOperand
	methodOperand
	nameOperand
	typeOperand
	kindOperand
	rankOperand
	positionOperand
)

type opInfo struct {
	name    string
	operand operand
}

var opcodes = [...]opInfo{
	OpNop:               {"NOP", noOperand},
	OpPush:              {"PUSH", constOperand},
	OpPushNull:          {"PUSHNULL", noOperand},
	OpPop:               {"POP", noOperand},
	OpDup:               {"DUP", noOperand},
	OpLoadHost:          {"LDHOST", noOperand},
	OpLoadLocal:         {"LDLOC", localOperand},
	OpStoreLocal:        {"STLOC", localOperand},
	OpLoadLocalAddr:     {"LDLOCA", localOperand},
	OpLoadField:         {"LDFLD", fieldOperand},
	OpStoreField:        {"STFLD", fieldOperand},
	OpLoadStaticField:   {"LDSFLD", fieldOperand},
	OpStoreStaticField:  {"STSFLD", fieldOperand},
	OpGetProperty:       {"GETPROP", propertyOperand},
	OpSetProperty:       {"SETPROP", propertyOperand},
	OpGetStaticProperty: {"GETSPROP", propertyOperand},
	OpSetStaticProperty: {"SETSPROP", propertyOperand},
	OpCall:              {"CALL", methodOperand},
	OpCallVirt:          {"CALLVIRT", methodOperand},
	OpLoadElem:          {"LDELEM", rankOperand},
	OpStoreElem:         {"STELEM", rankOperand},
	OpNewArray:          {"NEWARR", typeOperand},
	OpLateGet:           {"LATEGET", nameOperand},
	OpLateSet:           {"LATESET", nameOperand},
	OpLateCall:          {"LATECALL", nameOperand},
	OpAdd:               {"ADD", noOperand},
	OpSub:               {"SUB", noOperand},
	OpMul:               {"MUL", noOperand},
	OpDiv:               {"DIV", noOperand},
	OpRem:               {"REM", noOperand},
	OpNeg:               {"NEG", noOperand},
	OpNot:               {"NOT", noOperand},
	OpAnd:               {"AND", noOperand},
	OpOr:                {"OR", noOperand},
	OpCeq:               {"CEQ", noOperand},
	OpCgt:               {"CGT", noOperand},
	OpClt:               {"CLT", noOperand},
	OpConv:              {"CONV", kindOperand},
	OpBox:               {"BOX", typeOperand},
	OpUnbox:             {"UNBOX", typeOperand},
	OpCastClass:         {"CASTCLASS", typeOperand},
	OpJump:              {"JMP", positionOperand},
	OpJumpIfTrue:        {"JMPT", positionOperand},
	OpJumpIfFalse:       {"JMPF", positionOperand},
	OpTry:               {"TRY", positionOperand},
	OpLeave:             {"LEAVE", positionOperand},
	OpEndFinally:        {"ENDFINALLY", noOperand},
	OpStateGet:          {"STATEGET", typeOperand},
	OpStateSet:          {"STATESET", noOperand},
	OpReturn:            {"RET", noOperand},
}

// OpName returns the mnemonic of an operation code.
func OpName(op byte) string {
	if int(op) < len(opcodes) {
		return opcodes[op].name
	}
	return "???"
}

// Size returns the encoded length of an instruction including its parameter.
func Size(op byte) int {
	if int(op) < len(opcodes) && opcodes[op].operand != noOperand {
		return 3
	}
	return 1
}
