package main

import (
	"fmt"
	"io"
)

// The four scratch slots, one row of aliases per operand width.
var x86Registers = [4][4]string{
	{"%r8b", "%r9b", "%r10b", "%r11b"},
	{"%r8w", "%r9w", "%r10w", "%r11w"},
	{"%r8d", "%r9d", "%r10d", "%r11d"},
	{"%r8", "%r9", "%r10", "%r11"},
}

// SysV integer parameter registers, width-aliased the same way.
var x86ParamRegisters = [4][2]string{
	{"%dil", "%sil"},
	{"%di", "%si"},
	{"%edi", "%esi"},
	{"%rdi", "%rsi"},
}

var x86Accumulator = [4]string{"%al", "%ax", "%eax", "%rax"}

var (
	movInstr = [4]string{"movb", "movw", "movl", "movq"}
	addInstr = [4]string{"addb", "addw", "addl", "addq"}
	subInstr = [4]string{"subb", "subw", "subl", "subq"}
	mulInstr = [4]string{"mulb", "mulw", "mull", "mulq"}
	divInstr = [4]string{"divb", "divw", "divl", "divq"}
	cmpInstr = [4]string{"cmpb", "cmpw", "cmpl", "cmpq"}
	andInstr = [4]string{"andb", "andw", "andl", "andq"}
)

// Operands are unsigned when a comparison is generated, so the
// unsigned condition codes apply.
var setInstr = map[string]string{
	"==": "sete",
	"!=": "setne",
	"<":  "setb",
	"<=": "setbe",
	">":  "seta",
	">=": "setae",
}

func sizeIndex(size int) int {
	switch size {
	case 8:
		return 0
	case 16:
		return 1
	case 32:
		return 2
	case 64:
		return 3
	default:
		ice("no instruction width for size %d", size)
		return 0
	}
}

// X86Backend emits GNU-assembler AT&T syntax for x86-64.
type X86Backend struct {
	out        io.Writer
	registers  [4]bool
	labelIndex int
}

func NewX86Backend(out io.Writer) *X86Backend {
	return &X86Backend{out: out}
}

func (b *X86Backend) write(line string) {
	if _, err := io.WriteString(b.out, line+"\n"); err != nil {
		ice("failed to write output: %v", err)
	}
}

func (b *X86Backend) writef(format string, args ...any) {
	b.write(fmt.Sprintf(format, args...))
}

func (b *X86Backend) reg(sizeIdx int, r Register) string {
	return x86Registers[sizeIdx][r.Index]
}

// GetRegister allocates the first free scratch slot. There is no
// spilling: a fifth simultaneously live value is a fatal error.
func (b *X86Backend) GetRegister(size int) Register {
	for i := range b.registers {
		if !b.registers[i] {
			b.registers[i] = true
			return Register{Size: size, Index: i}
		}
	}
	panic(&CompileError{Msg: "out of registers"})
}

func (b *X86Backend) FreeRegister(reg Register) {
	if !b.registers[reg.Index] {
		ice("register %d freed twice", reg.Index)
	}
	b.registers[reg.Index] = false
}

func (b *X86Backend) GetLabel() int {
	label := b.labelIndex
	b.labelIndex++
	return label
}

// GenProgram emits the program shell: function definitions first under
// their own labels, then every remaining top-level statement as the
// body of main.
func (b *X86Backend) GenProgram(gen *CodeGenerator, root *ASTNode) {
	b.write("\t.globl\tmain")
	b.write("\t.type\tmain, @function")

	var functions, body []*ASTNode
	for _, child := range root.Children {
		if child.Kind == NodeFunc {
			functions = append(functions, child)
		} else {
			body = append(body, child)
		}
	}

	for _, fn := range functions {
		gen.GenNode(fn)
	}

	mainSym := &Symbol{Name: "main", Type: TypeVoid, Kind: SymbolFunction}
	b.GenFunction(gen, mainSym, &ASTNode{Kind: NodeBlock, Children: body})
}

// GenAssignment stores a register into the variable's frame slot. The
// frame grows at assignment time, not declaration time.
func (b *X86Backend) GenAssignment(sym *Symbol, reg Register) {
	idx := sizeIndex(reg.Size)
	b.writef("\tsubq\t$%d, %%rsp", sym.StackOffset)
	b.writef("\t%s\t%s, -%d(%%rbp)", movInstr[idx], b.reg(idx, reg), sym.StackOffset)
}

// GenComparison leaves a 0/1 at the operand width in the right
// register: compare, byte-wide conditional set, then mask.
func (b *X86Backend) GenComparison(op string, left, right Register) Register {
	set, ok := setInstr[op]
	if !ok {
		ice("no condition code for operator '%s'", op)
	}

	idx := sizeIndex(left.Size)
	b.writef("\t%s\t%s, %s", cmpInstr[idx], b.reg(idx, right), b.reg(idx, left))
	b.writef("\t%s\t%s", set, b.reg(0, right))
	b.writef("\t%s\t$255, %s", andInstr[idx], b.reg(idx, right))

	b.FreeRegister(left)
	return right
}

func (b *X86Backend) GenAdd(left, right Register) Register {
	idx := sizeIndex(left.Size)
	b.writef("\t%s\t%s, %s", addInstr[idx], b.reg(idx, right), b.reg(idx, left))

	b.FreeRegister(right)
	return left
}

func (b *X86Backend) GenSubtract(left, right Register) Register {
	idx := sizeIndex(left.Size)
	b.writef("\t%s\t%s, %s", subInstr[idx], b.reg(idx, right), b.reg(idx, left))

	b.FreeRegister(right)
	return left
}

// GenMultiply funnels through the accumulator; mul has a fixed operand.
func (b *X86Backend) GenMultiply(left, right Register) Register {
	idx := sizeIndex(left.Size)
	b.writef("\t%s\t%s, %s", movInstr[idx], b.reg(idx, right), x86Accumulator[idx])
	b.writef("\t%s\t%s", mulInstr[idx], b.reg(idx, left))
	b.writef("\t%s\t%s, %s", movInstr[idx], x86Accumulator[idx], b.reg(idx, left))

	b.FreeRegister(right)
	return left
}

// GenDivide moves the dividend into the accumulator, extends it, and
// divides by the right register.
func (b *X86Backend) GenDivide(left, right Register) Register {
	idx := sizeIndex(left.Size)
	b.writef("\t%s\t%s, %s", movInstr[idx], b.reg(idx, left), x86Accumulator[idx])
	b.write("\tcltd")
	b.writef("\t%s\t%s", divInstr[idx], b.reg(idx, right))
	b.writef("\t%s\t%s, %s", movInstr[idx], x86Accumulator[idx], b.reg(idx, left))

	b.FreeRegister(right)
	return left
}

// GenNumericLiteral materializes the raw literal bits through the
// 64-bit alias regardless of the literal's own width.
func (b *X86Backend) GenNumericLiteral(typ PrimitiveType, value PrimitiveValue) Register {
	reg := b.GetRegister(typ.Size())
	b.writef("\tmovq\t$%d, %s", value.Uint64(), x86Registers[3][reg.Index])
	return reg
}

// GenWiden zero-extends into a freshly allocated wider register.
// Sign extension has no source construct and is rejected outright.
func (b *X86Backend) GenWiden(reg Register, target PrimitiveType) Register {
	if !target.IsUnsigned() {
		ice("widen to %s: only zero-extension is supported", target)
	}

	result := b.GetRegister(target.Size())
	b.writef("\tmovzx\t%s, %s",
		b.reg(sizeIndex(reg.Size), reg),
		b.reg(sizeIndex(result.Size), result))

	b.FreeRegister(reg)
	return result
}

func (b *X86Backend) GenIdentifier(sym *Symbol) Register {
	reg := b.GetRegister(sym.Type.Size())
	idx := sizeIndex(sym.Type.Size())

	switch sym.Kind {
	case SymbolVariable:
		b.writef("\t%s\t-%d(%%rbp), %s", movInstr[idx], sym.StackOffset, b.reg(idx, reg))
	case SymbolParameter:
		if sym.ParamIndex >= len(x86ParamRegisters[idx]) {
			panic(&CompileError{Msg: fmt.Sprintf(
				"cannot read parameter '%s': at most %d parameters are supported",
				sym.Name, len(x86ParamRegisters[idx]))})
		}
		b.writef("\t%s\t%s, %s", movInstr[idx], x86ParamRegisters[idx][sym.ParamIndex], b.reg(idx, reg))
	default:
		ice("cannot load symbol '%s' of kind %s", sym.Name, sym.Kind)
	}

	return reg
}

// GenFunctionCall evaluates arguments left to right, zeroes each
// destination parameter register, then moves the value in at the
// argument's width. All argument registers are freed before the call.
func (b *X86Backend) GenFunctionCall(gen *CodeGenerator, name string, args []*ASTNode) {
	if len(args) > len(x86ParamRegisters[0]) {
		panic(&CompileError{Msg: fmt.Sprintf(
			"too many arguments in call to '%s': at most %d are supported",
			name, len(x86ParamRegisters[0]))})
	}

	var argRegs []Register
	for i, arg := range args {
		idx := sizeIndex(arg.PrimitiveType().Size())
		reg := gen.GenExpression(arg)

		b.writef("\txorq\t%s, %s", x86ParamRegisters[3][i], x86ParamRegisters[3][i])
		b.writef("\t%s\t%s, %s", movInstr[idx], b.reg(idx, reg), x86ParamRegisters[idx][i])

		argRegs = append(argRegs, reg)
	}

	for _, reg := range argRegs {
		b.FreeRegister(reg)
	}

	b.writef("\tcall\t%s", name)
}

func (b *X86Backend) GenIf(gen *CodeGenerator, cond, body, elseBody *ASTNode) {
	condReg := gen.GenExpression(cond)

	elseLabel := b.GetLabel()
	endLabel := b.GetLabel()

	target := endLabel
	if elseBody != nil {
		target = elseLabel
	}

	idx := sizeIndex(condReg.Size)
	b.writef("\t%s\t$0, %s", cmpInstr[idx], b.reg(idx, condReg))
	b.writef("\tjz\tL%d", target)

	gen.GenNode(body)
	b.writef("\tjmp\tL%d", endLabel)

	if elseBody != nil {
		b.writef("L%d:", elseLabel)
		gen.GenNode(elseBody)
	}
	b.writef("L%d:", endLabel)

	b.FreeRegister(condReg)
}

func (b *X86Backend) GenWhile(gen *CodeGenerator, cond, body *ASTNode) {
	startLabel := b.GetLabel()
	endLabel := b.GetLabel()

	b.writef("L%d:", startLabel)

	condReg := gen.GenExpression(cond)
	idx := sizeIndex(condReg.Size)
	b.writef("\t%s\t$0, %s", cmpInstr[idx], b.reg(idx, condReg))
	b.writef("\tjz\tL%d", endLabel)

	gen.GenNode(body)

	b.writef("\tjmp\tL%d", startLabel)
	b.writef("L%d:", endLabel)

	b.FreeRegister(condReg)
}

func (b *X86Backend) GenFunction(gen *CodeGenerator, sym *Symbol, body *ASTNode) {
	if sym.Type != TypeVoid {
		ice("function '%s' declared with non-void type %s", sym.Name, sym.Type)
	}

	b.writef("%s:", sym.Name)
	b.write("\tpush\t%rbp")
	b.write("\tmov\t%rsp, %rbp")

	gen.GenNode(body)

	b.write("\tmov\t%rbp, %rsp")
	b.write("\tpop\t%rbp")
	b.write("\tret")
}

// PostCheck verifies every scratch slot was released. A held slot here
// is a generator bug, not a source error.
func (b *X86Backend) PostCheck() {
	for i, used := range b.registers {
		if used {
			ice("register %d was not freed after code generation", i)
		}
	}
}
