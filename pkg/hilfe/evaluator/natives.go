package evaluator

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sambeau/hilfe/pkg/hilfe/errors"
)

type nativeFn = func(ctx context.Context, in *Interpreter, args []Result) (Result, error)

func native(name, description string, variadic bool, fn nativeFn, params ...NativeParam) *NativeFunction {
	return &NativeFunction{
		name:        name,
		Parameters:  params,
		Variadic:    variadic,
		Description: description,
		Fn:          fn,
	}
}

func param(name string, accepts ...ValueType) NativeParam {
	return NativeParam{Name: name, Accepts: accepts}
}

// group sets the category of each built-in.
func group(category string, fns ...*NativeFunction) []*NativeFunction {
	for _, fn := range fns {
		fn.Category = category
	}
	return fns
}

// Natives returns the built-in functions sorted by name.
func Natives() []*NativeFunction {
	all := getNatives()
	out := make([]*NativeFunction, 0, len(all))
	for _, n := range all {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// getNatives builds a fresh table of built-ins for one interpreter.
func getNatives() map[string]*NativeFunction {
	natives := slices.Concat(
		group("console",
			native("print", "Write the values separated by spaces.", true, builtinPrint(false),
				param("values")),
			native("println", "Write the values separated by spaces, then a newline.", true, builtinPrint(true),
				param("values")),
			native("readline", "Read a line from standard input; null at end of input.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					line, ok, err := in.readLine()
					if err != nil {
						return Void, err
					}
					if !ok {
						return Null, nil
					}
					return NewString(line), nil
				}),
			native("exit", "Stop the script with the given exit code.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					code, err := args[0].ExpectExitCode()
					if err != nil {
						return Void, err
					}
					return Void, in.Exit(code)
				},
				param("code", NumberType)),
		),
		group("conversions",
			native("toString", "Render a value as a string.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					return NewString(args[0].String()), nil
				},
				param("value")),
			native("toNumber", "Convert a string, number or bool to a number.", false, builtinToNumber,
				param("value", StringType, NumberType, BoolType)),
			native("typeName", "Return the kind of a value.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					return NewString(string(args[0].Kind())), nil
				},
				param("value")),
		),
		group("arithmetic",
			native("add", "Add two numbers.", false, arithmetic(func(a, b float64) (float64, error) { return a + b, nil }),
				param("a", NumberType), param("b", NumberType)),
			native("sub", "Subtract b from a.", false, arithmetic(func(a, b float64) (float64, error) { return a - b, nil }),
				param("a", NumberType), param("b", NumberType)),
			native("mul", "Multiply two numbers.", false, arithmetic(func(a, b float64) (float64, error) { return a * b, nil }),
				param("a", NumberType), param("b", NumberType)),
			native("div", "Divide a by b.", false, arithmetic(func(a, b float64) (float64, error) {
				if b == 0 {
					return 0, errors.New("OP-0002", nil)
				}
				return a / b, nil
			}),
				param("a", NumberType), param("b", NumberType)),
			native("mod", "Remainder of a divided by b.", false, arithmetic(func(a, b float64) (float64, error) {
				if b == 0 {
					return 0, errors.New("OP-0002", nil)
				}
				return math.Mod(a, b), nil
			}),
				param("a", NumberType), param("b", NumberType)),
		),
		group("logic",
			native("not", "Negate a bool.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					b, err := args[0].ExpectBool()
					if err != nil {
						return Void, err
					}
					return NewBool(!b), nil
				},
				param("value", BoolType)),
			native("and", "True if both values are true.", false,
				logic(func(a, b bool) bool { return a && b }),
				param("a", BoolType), param("b", BoolType)),
			native("or", "True if either value is true.", false,
				logic(func(a, b bool) bool { return a || b }),
				param("a", BoolType), param("b", BoolType)),
		),
		group("strings",
			native("concat", "Join the rendered values into one string.", true,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					var sb strings.Builder
					for _, a := range args {
						sb.WriteString(a.String())
					}
					return NewString(sb.String()), nil
				},
				param("values")),
			native("length", "Number of characters in a string or elements in a list or map.", false, builtinLength,
				param("value", StringType, ListType, MapType)),
			native("startsWith", "True if s begins with prefix.", false,
				stringPredicate(strings.HasPrefix),
				param("s", StringType), param("prefix", StringType)),
			native("endsWith", "True if s ends with suffix.", false,
				stringPredicate(strings.HasSuffix),
				param("s", StringType), param("suffix", StringType)),
			native("contains", "True if a string contains a substring or a list contains a value.", false, builtinContains,
				param("haystack", StringType, ListType), param("needle")),
		),
		group("lists",
			native("list", "Create a list from the values.", true,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					return NewList(args...), nil
				},
				param("values")),
			native("at", "Element of a list, or character of a string, at a zero-based index.", false, builtinAt,
				param("collection", ListType, StringType), param("index", NumberType)),
			native("append", "Return a copy of the list with the value added at the end.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					elements, err := args[0].ExpectList()
					if err != nil {
						return Void, err
					}
					return NewList(append(elements, args[1])...), nil
				},
				param("list", ListType), param("value")),
		),
		group("maps",
			native("map", "Create an empty map.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					return NewMap(NewOrderedMap()), nil
				}),
			native("put", "Return a copy of the map with key set to value.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					m, err := args[0].ExpectMap()
					if err != nil {
						return Void, err
					}
					key, err := args[1].ExpectString()
					if err != nil {
						return Void, err
					}
					return NewMap(m.With(key, args[2])), nil
				},
				param("map", MapType), param("key", StringType), param("value")),
			native("get", "Value stored under key, or null.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					m, err := args[0].ExpectMap()
					if err != nil {
						return Void, err
					}
					key, err := args[1].ExpectString()
					if err != nil {
						return Void, err
					}
					if v, ok := m.Get(key); ok {
						return v, nil
					}
					return Null, nil
				},
				param("map", MapType), param("key", StringType)),
			native("keys", "List of the map's keys in insertion order.", false,
				func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
					m, err := args[0].ExpectMap()
					if err != nil {
						return Void, err
					}
					keys := m.Keys()
					out := make([]Result, len(keys))
					for i, k := range keys {
						out[i] = NewString(k)
					}
					return NewList(out...), nil
				},
				param("map", MapType)),
		),
	)

	table := make(map[string]*NativeFunction, len(natives))
	for _, n := range natives {
		table[n.name] = n
	}
	return table
}

func builtinPrint(newline bool) nativeFn {
	return func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		out := strings.Join(parts, " ")
		if newline {
			out += "\n"
		}
		if _, err := io.WriteString(in.stdout(), out); err != nil {
			return Void, fmt.Errorf("writing output: %w", err)
		}
		return Void, nil
	}
}

func builtinToNumber(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
	arg := args[0]
	switch arg.Kind() {
	case NumberType:
		return arg, nil
	case BoolType:
		if arg.b {
			return NewNumber(1), nil
		}
		return NewNumber(0), nil
	default:
		s := strings.TrimSpace(arg.s)
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Void, errors.New("TYPE-0001", map[string]any{
				"Expected": "a numeric string",
				"Got":      strconv.Quote(arg.s),
			})
		}
		return NewNumber(n), nil
	}
}

func builtinLength(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
	arg := args[0]
	switch arg.Kind() {
	case StringType:
		return NewNumber(float64(utf8.RuneCountInString(arg.s))), nil
	case ListType:
		return NewNumber(float64(len(arg.list))), nil
	default:
		return NewNumber(float64(arg.m.Len())), nil
	}
}

func builtinContains(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
	haystack, needle := args[0], args[1]
	if haystack.Kind() == StringType {
		sub, err := needle.ExpectString()
		if err != nil {
			return Void, err
		}
		return NewBool(strings.Contains(haystack.s, sub)), nil
	}
	for _, el := range haystack.list {
		if el.Equal(needle) {
			return NewBool(true), nil
		}
	}
	return NewBool(false), nil
}

func builtinAt(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
	collection := args[0]
	if collection.Kind() == StringType {
		runes := []rune(collection.s)
		i, err := args[1].ExpectListIndex(len(runes))
		if err != nil {
			return Void, err
		}
		return NewString(string(runes[i])), nil
	}

	i, err := args[1].ExpectListIndex(len(collection.list))
	if err != nil {
		return Void, err
	}
	return collection.list[i], nil
}

func arithmetic(op func(a, b float64) (float64, error)) nativeFn {
	return func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
		a, err := args[0].ExpectNumber()
		if err != nil {
			return Void, err
		}
		b, err := args[1].ExpectNumber()
		if err != nil {
			return Void, err
		}
		n, err := op(a, b)
		if err != nil {
			return Void, err
		}
		return NewNumber(n), nil
	}
}

func logic(op func(a, b bool) bool) nativeFn {
	return func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
		a, err := args[0].ExpectBool()
		if err != nil {
			return Void, err
		}
		b, err := args[1].ExpectBool()
		if err != nil {
			return Void, err
		}
		return NewBool(op(a, b)), nil
	}
}

func stringPredicate(pred func(s, affix string) bool) nativeFn {
	return func(ctx context.Context, in *Interpreter, args []Result) (Result, error) {
		s, err := args[0].ExpectString()
		if err != nil {
			return Void, err
		}
		affix, err := args[1].ExpectString()
		if err != nil {
			return Void, err
		}
		return NewBool(pred(s, affix)), nil
	}
}
