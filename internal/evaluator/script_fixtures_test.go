package evaluator

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"moss/internal/lexer"
	"moss/internal/object"
	"moss/internal/parser"
)

// scriptFixture is one end-to-end case from testdata/scripts.yaml. A case
// asserts on printed output, on the script's return value, on a raised
// error substring, or any combination.
type scriptFixture struct {
	Name   string `yaml:"name"`
	Script string `yaml:"script"`
	Output string `yaml:"output"`
	Result string `yaml:"result"`
	Error  string `yaml:"error"`
}

func TestScriptFixtures(t *testing.T) {
	data, err := os.ReadFile("testdata/scripts.yaml")
	if err != nil {
		t.Fatalf("reading fixtures: %s", err)
	}

	var fixtures []scriptFixture
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		t.Fatalf("parsing fixtures: %s", err)
	}
	if len(fixtures) == 0 {
		t.Fatal("no fixtures found in testdata/scripts.yaml")
	}

	for _, fixture := range fixtures {
		t.Run(fixture.Name, func(t *testing.T) {
			l := lexer.New(fixture.Script)
			p := parser.New(l, fixture.Script)
			program := p.ParseProgram()
			if len(p.Errors()) > 0 {
				t.Fatalf("parser error: %s", p.Errors()[0])
			}

			var out bytes.Buffer
			e := New(nil)
			e.Out = &out

			result := e.RunProgram(program, fixture.Name, fixture.Script)

			if fixture.Error != "" {
				runtimeErr, ok := result.(*object.Error)
				if !ok {
					t.Fatalf("expected an error, got=%T (%s)", result, result.Inspect())
				}
				if !strings.Contains(runtimeErr.Message(), fixture.Error) {
					t.Errorf("error %q does not contain %q", runtimeErr.Message(), fixture.Error)
				}
				return
			}

			if isError(result) {
				t.Fatalf("unexpected error: %s", result.Inspect())
			}
			if fixture.Output != "" && out.String() != fixture.Output {
				t.Errorf("output mismatch\ngot:  %q\nwant: %q", out.String(), fixture.Output)
			}
			if fixture.Result != "" && result.Inspect() != fixture.Result {
				t.Errorf("result = %q, want %q", result.Inspect(), fixture.Result)
			}
		})
	}
}
