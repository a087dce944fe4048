package htn

import (
	"fmt"
	"math"
	"strings"
)

// True is the canonical true value returned by the builtin predicates.
var True Term = Number(1)

// Builtin native functions. Arithmetic functions require Number arguments;
// comparison functions return True or Nil.
var (
	StdPlus   Function = FunctionFunc(stdPlus)
	StdMinus  Function = FunctionFunc(stdMinus)
	StdMult   Function = FunctionFunc(stdMult)
	StdDiv    Function = FunctionFunc(stdDiv)
	StdPower  Function = FunctionFunc(stdPower)
	StdEqual  Function = FunctionFunc(stdEqual)
	StdNotEq  Function = FunctionFunc(stdNotEq)
	StdLess   Function = FunctionFunc(compare("less", func(a, b float64) bool { return a < b }))
	StdLessEq Function = FunctionFunc(compare("lessEq", func(a, b float64) bool { return a <= b }))
	StdMore   Function = FunctionFunc(compare("more", func(a, b float64) bool { return a > b }))
	StdMoreEq Function = FunctionFunc(compare("moreEq", func(a, b float64) bool { return a >= b }))
	StdMember Function = FunctionFunc(stdMember)
)

// StdLib maps the builtin function names to their implementations.
var StdLib = map[string]Function{
	"plus":   StdPlus,
	"minus":  StdMinus,
	"mult":   StdMult,
	"div":    StdDiv,
	"power":  StdPower,
	"equal":  StdEqual,
	"notEq":  StdNotEq,
	"less":   StdLess,
	"lessEq": StdLessEq,
	"more":   StdMore,
	"moreEq": StdMoreEq,
	"member": StdMember,
}

// IsStdLib reports whether name is a builtin function.
func IsStdLib(name string) bool {
	_, ok := StdLib[name]
	return ok
}

// StdLibName returns the canonical spelling of a builtin name, ignoring
// case, so lesseq and LESSEQ both name lessEq.
func StdLibName(name string) (string, bool) {
	if IsStdLib(name) {
		return name, true
	}
	for canon := range StdLib {
		if strings.EqualFold(canon, name) {
			return canon, true
		}
	}
	return "", false
}

func truth(ok bool) Term {
	if ok {
		return True
	}
	return Nil
}

func arity(name string, args []Term, want int) {
	if len(args) != want {
		panic(&NativeError{Name: name, Err: fmt.Errorf("%w: got %d, want %d", ErrArity, len(args), want)})
	}
}

func stdPlus(args []Term) Term {
	sum := 0.0
	for _, a := range args {
		sum += numberOf("plus", a)
	}
	return Number(sum)
}

// stdMinus negates a single argument and subtracts the rest from the
// first otherwise.
func stdMinus(args []Term) Term {
	if len(args) == 0 {
		panic(&NativeError{Name: "minus", Err: ErrArity})
	}
	acc := numberOf("minus", args[0])
	if len(args) == 1 {
		return Number(-acc)
	}
	for _, a := range args[1:] {
		acc -= numberOf("minus", a)
	}
	return Number(acc)
}

func stdMult(args []Term) Term {
	prod := 1.0
	for _, a := range args {
		prod *= numberOf("mult", a)
	}
	return Number(prod)
}

func stdDiv(args []Term) Term {
	arity("div", args, 2)
	d := numberOf("div", args[1])
	if d == 0 {
		panic(&NativeError{Name: "div", Err: fmt.Errorf("division by zero")})
	}
	return Number(numberOf("div", args[0]) / d)
}

func stdPower(args []Term) Term {
	arity("power", args, 2)
	return Number(math.Pow(numberOf("power", args[0]), numberOf("power", args[1])))
}

func stdEqual(args []Term) Term {
	arity("equal", args, 2)
	return truth(args[0].Equal(args[1]))
}

func stdNotEq(args []Term) Term {
	arity("notEq", args, 2)
	return truth(!args[0].Equal(args[1]))
}

func compare(name string, op func(a, b float64) bool) func([]Term) Term {
	return func(args []Term) Term {
		arity(name, args, 2)
		return truth(op(numberOf(name, args[0]), numberOf(name, args[1])))
	}
}

// stdMember checks whether its first argument is an element of the list
// given as second argument.
func stdMember(args []Term) Term {
	arity("member", args, 2)
	l, ok := args[1].(List)
	if !ok {
		panic(&NativeError{Name: "member", Err: fmt.Errorf("not a list: %s", args[1])})
	}
	for _, t := range l.normalize().Items {
		if t.Equal(args[0]) {
			return True
		}
	}
	return Nil
}
