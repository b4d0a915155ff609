package evaluator

import (
	"bytes"
	"strings"
	"testing"

	"moss/internal/lexer"
	"moss/internal/object"
	"moss/internal/parser"
)

func testEval(t *testing.T, input string) object.Object {
	t.Helper()
	l := lexer.New(input)
	p := parser.New(l, input)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser error: %s", p.Errors()[0])
	}

	e := New(nil)
	e.Out = &bytes.Buffer{}
	return e.RunProgram(program, "test", input)
}

func testNumberObject(t *testing.T, obj object.Object, expected float64) {
	t.Helper()
	result, ok := obj.(*object.Number)
	if !ok {
		t.Fatalf("object is not Number. got=%T (%+v)", obj, obj)
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%v, want=%v", result.Value, expected)
	}
}

func testStringObject(t *testing.T, obj object.Object, expected string) {
	t.Helper()
	result, ok := obj.(*object.String)
	if !ok {
		t.Fatalf("object is not String. got=%T (%+v)", obj, obj)
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%q, want=%q", result.Value, expected)
	}
}

func testBooleanObject(t *testing.T, obj object.Object, expected bool) {
	t.Helper()
	result, ok := obj.(*object.Boolean)
	if !ok {
		t.Fatalf("object is not Boolean. got=%T (%+v)", obj, obj)
	}
	if result.Value != expected {
		t.Errorf("object has wrong value. got=%v, want=%v", result.Value, expected)
	}
}

func testErrorContains(t *testing.T, obj object.Object, expected string) {
	t.Helper()
	err, ok := obj.(*object.Error)
	if !ok {
		t.Fatalf("expected an error, got=%T (%+v)", obj, obj)
	}
	if !strings.Contains(err.Message(), expected) {
		t.Errorf("error %q does not contain %q", err.Message(), expected)
	}
}

func TestNumberExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"return 5", 5},
		{"return 10.5", 10.5},
		{"return 1e2", 100},
		{"return -5", -5},
		{"return 2 + 3 * 4", 14},
		{"return (2 + 3) * 4", 20},
		{"return 7 / 2", 3.5},
		{"return 7 // 2", 3},
		{"return -7 // 2", -4},
		{"return 7 % 3", 1},
		{"return -7 % 3", 2},
		{"return 7 % -3", -2},
		{"return 2 ^ 10", 1024},
		{"return 2 ^ 2 ^ 3", 256},
		{"return -2 ^ 2", -4},
		{"return \"10\" + 5", 15},
		{"return \"3\" * \"4\"", 12},
		{"return 1 + true", 2},
		{"return false + 10", 10},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestBitwiseOperators(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"return 6 & 3", 2},
		{"return 6 | 3", 7},
		{"return 6 ~ 3", 5},
		{"return ~0", -1},
		{"return 1 << 4", 16},
		{"return 256 >> 4", 16},
		{"return 1 << 70", 0},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestBitwiseIntegerRepresentation(t *testing.T) {
	testErrorContains(t, testEval(t, "return 1.5 & 1"), "no integer representation")
}

func TestBooleanExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"return true", true},
		{"return false", false},
		{"return 1 < 2", true},
		{"return 1 > 2", false},
		{"return 2 <= 2", true},
		{"return 2 >= 3", false},
		{"return 1 == 1", true},
		{"return 1 ~= 1", false},
		{"return 1 == \"1\"", false},
		{"return \"a\" < \"b\"", true},
		{"return \"abc\" == \"abc\"", true},
		{"return not true", false},
		{"return not nil", true},
		{"return not 0", false},
	}

	for _, tt := range tests {
		testBooleanObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestLogicalOperatorsReturnOperands(t *testing.T) {
	testNumberObject(t, testEval(t, "return 1 and 2"), 2)
	testNumberObject(t, testEval(t, "return nil or 3"), 3)
	testNumberObject(t, testEval(t, "return false or 4"), 4)

	// and/or hand back the deciding operand itself
	if result := testEval(t, "return nil and 2"); result != object.NIL {
		t.Errorf("nil and 2 should return the left operand, got %s", result.Inspect())
	}
	testBooleanObject(t, testEval(t, "return false and 2"), false)

	result := testEval(t, "return nil and error(\"never\")")
	if result != object.NIL {
		t.Errorf("and should short-circuit, got %s", result.Inspect())
	}
}

func TestStringConcat(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`return "Hello" .. " " .. "World"`, "Hello World"},
		{`return "n = " .. 42`, "n = 42"},
		{`return 1 .. 2`, "12"},
		{`return 1.5 .. ""`, "1.5"},
	}

	for _, tt := range tests {
		testStringObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"return nil + 1", "attempt to perform arithmetic on a nil value"},
		{"return {} * 2", "attempt to perform arithmetic on a table value"},
		{"return 1 / 0", "division by zero"},
		{"return 1 // 0", "division by zero"},
		{"return 1 % 0", "attempt to perform 'n%0'"},
		{"return {} .. \"x\"", "attempt to concatenate a table value"},
		{"return 1 < \"2\"", "attempt to compare number with string"},
		{"return #true", "attempt to get length of a boolean value"},
		{"local f f()", "attempt to call a nil value"},
		{"return nil.x", "attempt to index a nil value"},
	}

	for _, tt := range tests {
		testErrorContains(t, testEval(t, tt.input), tt.expected)
	}
}

func TestLocalStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"local a = 5 return a", 5},
		{"local a = 5 local b = a return a + b", 10},
		{"local a, b = 1, 2 return b", 2},
		{"local a, b = 1 return a", 1},
		{"local a, b, c = 1, 2 return c or 99", 99},
		{"local a = 1 local a = 2 return a", 2},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestAssignments(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"x = 5 return x", 5},
		{"local a, b = 1, 2 a, b = b, a return a * 10 + b", 21},
		{"local t = {} t.x = 7 return t.x", 7},
		{"local t = {} t[1], t[2] = 10, 20 return t[1] + t[2]", 30},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestGlobalAssignmentFromFunction(t *testing.T) {
	input := `
local function set()
  shared = 42
end
set()
return shared
`
	testNumberObject(t, testEval(t, input), 42)
}

func TestUnknownGlobalReadsAsNil(t *testing.T) {
	result := testEval(t, "return missing")
	if result != object.NIL {
		t.Errorf("unknown global should read as nil, got %s", result.Inspect())
	}
}

func TestIfStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"if true then return 1 end return 2", 1},
		{"if false then return 1 end return 2", 2},
		{"if nil then return 1 end return 2", 2},
		{"if 0 then return 1 end return 2", 1},
		{"if 1 < 2 then return 1 else return 2 end", 1},
		{"if 1 > 2 then return 1 elseif 2 > 1 then return 2 else return 3 end", 2},
		{"if 1 > 2 then return 1 elseif 2 > 3 then return 2 else return 3 end", 3},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestWhileLoop(t *testing.T) {
	input := `
local sum = 0
local i = 1
while i <= 10 do
  sum = sum + i
  i = i + 1
end
return sum
`
	testNumberObject(t, testEval(t, input), 55)
}

func TestRepeatLoop(t *testing.T) {
	input := `
local i = 0
repeat
  i = i + 1
until i >= 5
return i
`
	testNumberObject(t, testEval(t, input), 5)
}

func TestRepeatConditionSeesBodyLocals(t *testing.T) {
	input := `
local n = 0
repeat
  local done = true
  n = n + 1
until done
return n
`
	testNumberObject(t, testEval(t, input), 1)
}

func TestNumericFor(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"local s = 0 for i = 1, 5 do s = s + i end return s", 15},
		{"local s = 0 for i = 10, 1, -2 do s = s + i end return s", 30},
		{"local s = 0 for i = 5, 1 do s = s + i end return s", 0},
		{"local s = 0 for i = 1, 2, 0.5 do s = s + 1 end return s", 3},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestNumericForStepZero(t *testing.T) {
	testErrorContains(t, testEval(t, "for i = 1, 5, 0 do end"), "'for' step is zero")
}

func TestNumericForLoopVarIsPerIteration(t *testing.T) {
	input := `
local fns = {}
for i = 1, 3 do
  fns[i] = function() return i end
end
return fns[1]() + fns[2]() + fns[3]()
`
	testNumberObject(t, testEval(t, input), 6)
}

func TestGenericForWithPairs(t *testing.T) {
	input := `
local t = {a = 1, b = 2, c = 3}
local sum = 0
for k, v in pairs(t) do
  sum = sum + v
end
return sum
`
	testNumberObject(t, testEval(t, input), 6)
}

func TestGenericForWithIpairs(t *testing.T) {
	input := `
local t = {10, 20, 30, nil, 50}
local sum = 0
for i, v in ipairs(t) do
  sum = sum + v
end
return sum
`
	// ipairs stops at the hole
	testNumberObject(t, testEval(t, input), 60)
}

func TestGenericForOverBareTable(t *testing.T) {
	input := `
local t = {10, 20, 30}
local sum = 0
for _, v in t do
  sum = sum + v
end
return sum
`
	testNumberObject(t, testEval(t, input), 60)
}

func TestGenericForBareTableKeysAndValues(t *testing.T) {
	input := `
local t = {a = 1, b = 2}
local out = ""
for k, v in t do
  out = out .. k .. "=" .. v .. ";"
end
return out
`
	testStringObject(t, testEval(t, input), "a=1;b=2;")
}

func TestGenericForBareTableSnapshotsEntries(t *testing.T) {
	input := `
local t = {a = 1, b = 2, c = 3}
local visited = 0
for k in t do
  t[k] = nil
  t[k .. "x"] = 99
  visited = visited + 1
end
return visited
`
	// removing or adding keys mid-loop must not disturb the traversal
	testNumberObject(t, testEval(t, input), 3)
}

func TestPairsPreservesInsertionOrder(t *testing.T) {
	input := `
local t = {}
t.one = 1
t.two = 2
t.three = 3
local keys = ""
for k in pairs(t) do
  keys = keys .. k .. ","
end
return keys
`
	testStringObject(t, testEval(t, input), "one,two,three,")
}

func TestBreak(t *testing.T) {
	input := `
local i = 0
while true do
  i = i + 1
  if i == 7 then break end
end
return i
`
	testNumberObject(t, testEval(t, input), 7)
}

func TestBreakOutsideLoop(t *testing.T) {
	testErrorContains(t, testEval(t, "break"), "break outside a loop")
}

func TestGotoForward(t *testing.T) {
	input := `
local x = 1
goto done
x = 99
::done::
return x
`
	testNumberObject(t, testEval(t, input), 1)
}

func TestGotoBackward(t *testing.T) {
	input := `
local i = 0
::top::
i = i + 1
if i < 3 then goto top end
return i
`
	testNumberObject(t, testEval(t, input), 3)
}

func TestGotoAsContinue(t *testing.T) {
	input := `
local sum = 0
for i = 1, 10 do
  if i % 2 == 0 then goto continue end
  sum = sum + i
  ::continue::
end
return sum
`
	testNumberObject(t, testEval(t, input), 25)
}

func TestGotoUndefinedLabel(t *testing.T) {
	testErrorContains(t, testEval(t, "goto nowhere"), "no visible label 'nowhere'")

	input := `
local function f()
  goto missing
end
f()
`
	testErrorContains(t, testEval(t, input), "no visible label 'missing'")
}

func TestFunctionCalls(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"local function double(x) return x * 2 end return double(21)", 42},
		{"local f = function(a, b) return a + b end return f(3, 4)", 7},
		{"local function f(a, b) return b or -1 end return f(1)", -1},
		{"local function f(a) return a end return f(1, 2, 3)", 1},
		{"function g(x) return x + 1 end return g(1)", 2},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestRecursion(t *testing.T) {
	input := `
local function fib(n)
  if n < 2 then return n end
  return fib(n - 1) + fib(n - 2)
end
return fib(15)
`
	testNumberObject(t, testEval(t, input), 610)
}

func TestClosuresShareUpvalueCells(t *testing.T) {
	input := `
local function counter()
  local n = 0
  return function()
    n = n + 1
    return n
  end
end
local c = counter()
c()
c()
return c()
`
	testNumberObject(t, testEval(t, input), 3)
}

func TestTwoClosuresSeeTheSameCell(t *testing.T) {
	input := `
local n = 0
local function inc() n = n + 1 end
local function get() return n end
inc()
inc()
return get()
`
	testNumberObject(t, testEval(t, input), 2)
}

func TestFunctionIdentityEquality(t *testing.T) {
	input := `
local f = function() end
local g = f
local h = function() end
return (f == g) and (f ~= h)
`
	testBooleanObject(t, testEval(t, input), true)
}

func TestMultipleReturnValues(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"local function mr() return 1, 2, 3 end local a, b, c = mr() return a + b + c", 6},
		{"local function mr() return 1, 2 end local a, b, c = mr() return c or 99", 99},
		{"local function mr() return 1, 2 end local t = {mr()} return #t", 2},
		{"local function mr() return 1, 2 end local t = {mr(), 10} return #t", 2},
		{"local function mr() return 1, 2 end local function f(a, b) return a + b end return f(mr())", 3},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestVarargs(t *testing.T) {
	input := `
local function sum(...)
  local total = 0
  for _, v in ipairs({...}) do
    total = total + v
  end
  return total
end
return sum(1, 2, 3, 4)
`
	testNumberObject(t, testEval(t, input), 10)
}

func TestVarargsForwarding(t *testing.T) {
	input := `
local function inner(a, b, c) return a + b + c end
local function outer(...)
  return inner(...)
end
return outer(1, 2, 3)
`
	testNumberObject(t, testEval(t, input), 6)
}

func TestSelect(t *testing.T) {
	testNumberObject(t, testEval(t, `return select("#", "a", "b", "c")`), 3)
	testStringObject(t, testEval(t, `return select(2, "a", "b", "c")`), "b")
	testStringObject(t, testEval(t, `return select(-1, "a", "b", "c")`), "c")
}

func TestVarargOutsideVariadicFunction(t *testing.T) {
	input := `
local function fixed(a)
  return ...
end
return fixed(1)
`
	testErrorContains(t, testEval(t, input), "cannot use '...' outside a variadic function")
}

func TestTableConstructors(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"local t = {1, 2, 3} return t[2]", 2},
		{"local t = {x = 1, y = 2} return t.y", 2},
		{"local t = {[2 + 2] = 9} return t[4]", 9},
		{"local t = {1, 2, 3} return #t", 3},
		{"local t = {} return #t", 0},
		{"local t = {1, nil, 3} return t[3]", 3},
		{"local t = {a = {b = {c = 5}}} return t.a.b.c", 5},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestTableKeyNormalization(t *testing.T) {
	input := `
local t = {}
t[1] = "int"
t[1.0] = "float"
return t[1]
`
	testStringObject(t, testEval(t, input), "float")
}

func TestTableDeletion(t *testing.T) {
	input := `
local t = {a = 1}
t.a = nil
return t.a == nil
`
	testBooleanObject(t, testEval(t, input), true)
}

func TestNilTableKeyErrors(t *testing.T) {
	testErrorContains(t, testEval(t, "local t = {} t[nil] = 1"), "table index is nil")
}

func TestTableLibrary(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`local t = {1, 2} table.insert(t, 3) return table.concat(t, ",")`, "1,2,3"},
		{`local t = {1, 3} table.insert(t, 2, 2) return table.concat(t, ",")`, "1,2,3"},
		{`local t = {1, 2, 3} table.remove(t, 1) return table.concat(t, ",")`, "2,3"},
		{`local t = {1, 2, 3} local last = table.remove(t) return last .. ":" .. #t`, "3:2"},
		{`local t = {3, 1, 2} table.sort(t) return table.concat(t, ",")`, "1,2,3"},
		{`local t = {1, 2, 3} table.sort(t, function(a, b) return a > b end) return table.concat(t, ",")`, "3,2,1"},
		{`return table.concat({"a", "b", "c"}, "-", 2, 3)`, "b-c"},
	}

	for _, tt := range tests {
		testStringObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestUnpack(t *testing.T) {
	testNumberObject(t, testEval(t, `local function f(a, b, c) return a + b + c end return f(unpack({1, 2, 3}))`), 6)
	testNumberObject(t, testEval(t, `local function f(a, b) return a + b end return f(table.unpack({5, 6}))`), 11)
}

func TestMetatableIndexTable(t *testing.T) {
	input := `
local base = {greeting = "hi"}
local t = setmetatable({}, {__index = base})
return t.greeting
`
	testStringObject(t, testEval(t, input), "hi")
}

func TestMetatableIndexFunction(t *testing.T) {
	input := `
local t = setmetatable({}, {__index = function(tbl, key)
  return key .. "!"
end})
return t.foo
`
	testStringObject(t, testEval(t, input), "foo!")
}

func TestMetatableIndexChain(t *testing.T) {
	input := `
local root = {x = 10}
local mid = setmetatable({}, {__index = root})
local leaf = setmetatable({}, {__index = mid})
return leaf.x
`
	testNumberObject(t, testEval(t, input), 10)
}

func TestMetatableNewindex(t *testing.T) {
	input := `
local log = {}
local t = setmetatable({}, {__newindex = function(tbl, key, value)
  log[#log + 1] = key
  rawset(tbl, key, value)
end})
t.a = 1
t.a = 2
return log[1] .. ":" .. #log
`
	// the second write finds an existing key, so __newindex fires once
	testStringObject(t, testEval(t, input), "a:1")
}

func TestMetatableCall(t *testing.T) {
	input := `
local t = setmetatable({}, {__call = function(self, a, b)
  return a + b
end})
return t(3, 4)
`
	testNumberObject(t, testEval(t, input), 7)
}

func TestMetatableArithmetic(t *testing.T) {
	input := `
local vectorMeta
vectorMeta = {
  __add = function(a, b)
    return setmetatable({x = a.x + b.x}, vectorMeta)
  end,
}
local a = setmetatable({x = 1}, vectorMeta)
local b = setmetatable({x = 2}, vectorMeta)
return (a + b).x
`
	testNumberObject(t, testEval(t, input), 3)
}

func TestMetatableEq(t *testing.T) {
	input := `
local meta = {__eq = function(a, b) return a.id == b.id end}
local a = setmetatable({id = 1}, meta)
local b = setmetatable({id = 1}, meta)
local c = setmetatable({id = 2}, meta)
return (a == b) and (a ~= c)
`
	testBooleanObject(t, testEval(t, input), true)
}

func TestMetatableLen(t *testing.T) {
	input := `
local t = setmetatable({}, {__len = function(self) return 42 end})
return #t
`
	testNumberObject(t, testEval(t, input), 42)
}

func TestMetatableTostring(t *testing.T) {
	input := `
local t = setmetatable({}, {__tostring = function(self) return "custom" end})
return tostring(t)
`
	testStringObject(t, testEval(t, input), "custom")
}

func TestProtectedMetatable(t *testing.T) {
	input := `
local t = setmetatable({}, {__metatable = "locked"})
return getmetatable(t)
`
	testStringObject(t, testEval(t, input), "locked")

	input = `
local t = setmetatable({}, {__metatable = "locked"})
setmetatable(t, {})
`
	testErrorContains(t, testEval(t, input), "cannot change a protected metatable")
}

func TestMethodDefinitionAndCall(t *testing.T) {
	input := `
local account = {balance = 100}
function account:deposit(amount)
  self.balance = self.balance + amount
end
account:deposit(50)
return account.balance
`
	testNumberObject(t, testEval(t, input), 150)
}

func TestPcall(t *testing.T) {
	testBooleanObject(t, testEval(t, `return pcall(function() return 1 end)`), true)

	input := `local ok, err = pcall(function() error("boom") end) return ok`
	testBooleanObject(t, testEval(t, input), false)

	input = `local ok, err = pcall(function() error("boom") end) return err`
	testStringObject(t, testEval(t, input), "test:1: boom")

	input = `local ok, v = pcall(function() return 42 end) return v`
	testNumberObject(t, testEval(t, input), 42)
}

func TestPcallCatchesRuntimeErrors(t *testing.T) {
	input := `local ok, err = pcall(function() return nil + 1 end) return ok`
	testBooleanObject(t, testEval(t, input), false)
}

func TestPcallNonStringPayload(t *testing.T) {
	input := `
local ok, err = pcall(function()
  error({code = 404})
end)
return err.code
`
	testNumberObject(t, testEval(t, input), 404)
}

func TestErrorLevelZeroSkipsPosition(t *testing.T) {
	input := `local ok, err = pcall(function() error("raw", 0) end) return err`
	testStringObject(t, testEval(t, input), "raw")
}

func TestXpcall(t *testing.T) {
	input := `
local ok, handled = xpcall(function()
  error("oops")
end, function(message)
  return "handled: " .. message
end)
return handled
`
	result := testEval(t, input)
	s, ok := result.(*object.String)
	if !ok {
		t.Fatalf("object is not String. got=%T", result)
	}
	if !strings.HasPrefix(s.Value, "handled: ") {
		t.Errorf("handler result %q should carry the prefix", s.Value)
	}
}

func TestAssert(t *testing.T) {
	testNumberObject(t, testEval(t, "return assert(42)"), 42)
	testErrorContains(t, testEval(t, "assert(false)"), "assertion failed!")
	testErrorContains(t, testEval(t, `assert(nil, "custom message")`), "custom message")
}

func TestTypeBuiltin(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"return type(nil)", "nil"},
		{"return type(true)", "boolean"},
		{"return type(1.5)", "number"},
		{`return type("x")`, "string"},
		{"return type({})", "table"},
		{"return type(print)", "function"},
		{"return type(function() end)", "function"},
	}

	for _, tt := range tests {
		testStringObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestTostringTonumber(t *testing.T) {
	testStringObject(t, testEval(t, "return tostring(42)"), "42")
	testStringObject(t, testEval(t, "return tostring(nil)"), "nil")
	testStringObject(t, testEval(t, "return tostring(true)"), "true")
	testNumberObject(t, testEval(t, `return tonumber("42")`), 42)
	testNumberObject(t, testEval(t, `return tonumber("ff", 16)`), 255)
	if testEval(t, `return tonumber("nope")`) != object.NIL {
		t.Errorf("tonumber of a non-number should be nil")
	}
}

func TestRawAccessors(t *testing.T) {
	input := `
local t = setmetatable({}, {__index = function() return "shadow" end})
return rawget(t, "x") == nil
`
	testBooleanObject(t, testEval(t, input), true)

	testBooleanObject(t, testEval(t, `
local a, b = {}, {}
local meta = {__eq = function() return true end}
setmetatable(a, meta)
setmetatable(b, meta)
return rawequal(a, b)
`), false)

	testNumberObject(t, testEval(t, `
local t = setmetatable({1, 2}, {__len = function() return 99 end})
return rawlen(t)
`), 2)
}

func TestNextBuiltin(t *testing.T) {
	input := `
local t = {only = 1}
local k, v = next(t)
return k
`
	testStringObject(t, testEval(t, input), "only")

	testBooleanObject(t, testEval(t, "return next({}) == nil"), true)
}

func TestStringLibrary(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`return string.upper("moss")`, "MOSS"},
		{`return string.lower("MOSS")`, "moss"},
		{`return string.sub("hello", 2, 4)`, "ell"},
		{`return string.sub("hello", -3)`, "llo"},
		{`return string.rep("ab", 3)`, "ababab"},
		{`return string.rep("a", 3, "-")`, "a-a-a"},
		{`return string.reverse("abc")`, "cba"},
		{`return string.char(109, 111, 115, 115)`, "moss"},
		{`return string.format("%d-%s", 7, "x")`, "7-x"},
		{`return string.format("%5.2f", 3.14159)`, " 3.14"},
		{`return string.format("%x", 255)`, "ff"},
		{`return string.format("100%%")`, "100%"},
		{`return ("moss"):upper()`, "MOSS"},
		{`local s = "hello" return s:sub(1, 1)`, "h"},
	}

	for _, tt := range tests {
		testStringObject(t, testEval(t, tt.input), tt.expected)
	}
}

func TestStringFind(t *testing.T) {
	input := `local from, to = string.find("hello world", "world") return from * 100 + to`
	testNumberObject(t, testEval(t, input), 711)

	testBooleanObject(t, testEval(t, `return string.find("abc", "z") == nil`), true)
	testNumberObject(t, testEval(t, `return (string.find("aXaX", "X", 3))`), 4)
}

func TestStringByteLen(t *testing.T) {
	testNumberObject(t, testEval(t, `return string.byte("A")`), 65)
	testNumberObject(t, testEval(t, `return string.len("hello")`), 5)
	testNumberObject(t, testEval(t, `return #"hello"`), 5)
}

func TestMathLibrary(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"return math.floor(3.7)", 3},
		{"return math.ceil(3.2)", 4},
		{"return math.abs(-5)", 5},
		{"return math.sqrt(16)", 4},
		{"return math.max(1, 9, 4)", 9},
		{"return math.min(1, 9, 4)", 1},
		{"return math.fmod(7, 3)", 1},
		{"return math.fmod(-7, 3)", -1},
		{"return math.log(1)", 0},
		{"return math.floor(math.log(8, 2) + 0.5)", 3},
	}

	for _, tt := range tests {
		testNumberObject(t, testEval(t, tt.input), tt.expected)
	}

	testBooleanObject(t, testEval(t, "return math.pi > 3.14 and math.pi < 3.15"), true)
	testBooleanObject(t, testEval(t, "return math.huge > 1e308"), true)
}

func TestMathRandomRange(t *testing.T) {
	input := `
math.randomseed(7)
for i = 1, 50 do
  local n = math.random(3, 5)
  if n < 3 or n > 5 then return false end
end
return true
`
	testBooleanObject(t, testEval(t, input), true)
}

func TestOsLibrary(t *testing.T) {
	testBooleanObject(t, testEval(t, "return os.time() > 0"), true)
	testBooleanObject(t, testEval(t, "return os.clock() >= 0"), true)

	t.Setenv("MOSS_TEST_VALUE", "present")
	testStringObject(t, testEval(t, `return os.getenv("MOSS_TEST_VALUE")`), "present")
	testBooleanObject(t, testEval(t, `return os.getenv("MOSS_TEST_MISSING_VALUE") == nil`), true)
}

func TestCoroutineStateMachine(t *testing.T) {
	input := `
local co = coroutine.create(function(a, b) return a + b end)
local before = coroutine.status(co)
local ok, sum = coroutine.resume(co, 40, 2)
local after = coroutine.status(co)
return before .. ":" .. tostring(ok) .. ":" .. sum .. ":" .. after
`
	testStringObject(t, testEval(t, input), "suspended:true:42:dead")
}

func TestResumeDeadCoroutine(t *testing.T) {
	input := `
local co = coroutine.create(function() end)
coroutine.resume(co)
local ok, message = coroutine.resume(co)
return message
`
	testStringObject(t, testEval(t, input), "cannot resume dead coroutine")
}

func TestYieldOutsideCoroutine(t *testing.T) {
	testErrorContains(t, testEval(t, "coroutine.yield(1)"), "attempt to yield from outside a coroutine")
}

func TestCoroutineWrap(t *testing.T) {
	input := `
local double = coroutine.wrap(function(n) return n * 2 end)
return double(21)
`
	testNumberObject(t, testEval(t, input), 42)
}

func TestMaxCallDepth(t *testing.T) {
	input := `
local function forever()
  return forever()
end
return forever()
`
	l := lexer.New(input)
	p := parser.New(l, input)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser error: %s", p.Errors()[0])
	}

	e := New(nil)
	e.Out = &bytes.Buffer{}
	e.SetMaxCallDepth(50)

	result := e.RunProgram(program, "test", input)
	testErrorContains(t, result, "maximum call depth 50 exceeded")
}

func TestPrintOutput(t *testing.T) {
	input := `
print("hello", 42, true, nil)
print()
`
	l := lexer.New(input)
	p := parser.New(l, input)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser error: %s", p.Errors()[0])
	}

	var out bytes.Buffer
	e := New(nil)
	e.Out = &out

	result := e.RunProgram(program, "test", input)
	if isError(result) {
		t.Fatalf("unexpected error: %s", result.Inspect())
	}

	expected := "hello\t42\ttrue\tnil\n\n"
	if out.String() != expected {
		t.Errorf("print output = %q, want %q", out.String(), expected)
	}
}

func TestErrorPositionsUseScriptName(t *testing.T) {
	input := "local x = 1\nreturn nil + x"
	l := lexer.New(input)
	p := parser.New(l, input)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parser error: %s", p.Errors()[0])
	}

	e := New(nil)
	result := e.RunProgram(program, "script.lua", input)
	err, ok := result.(*object.Error)
	if !ok {
		t.Fatalf("expected an error, got %T", result)
	}
	if !strings.HasPrefix(err.Message(), "script.lua:2:") {
		t.Errorf("error %q should start with script.lua:2:", err.Message())
	}
}

func TestErrorPositionInControlHeaders(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"local x = 1\nreturn nil + x", "test:2:"},
		{"local x = 1\nwhile nil + x do\nend", "test:2:"},
		{"local x = 1\nlocal y = 2\nif nil + x then\nend", "test:3:"},
		{"local x = 1\nfor i = 1, nil + x do\nend", "test:2:"},
	}

	for _, tt := range tests {
		result := testEval(t, tt.input)
		err, ok := result.(*object.Error)
		if !ok {
			t.Fatalf("input %q: expected an error, got %T", tt.input, result)
		}
		if !strings.HasPrefix(err.Message(), tt.want) {
			t.Errorf("input %q: error %q should start with %q", tt.input, err.Message(), tt.want)
		}
	}
}

func TestRequireWithoutLoader(t *testing.T) {
	testErrorContains(t, testEval(t, `require("anything")`), "module loading is not available")
}
