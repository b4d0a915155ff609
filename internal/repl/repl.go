package repl

import (
	"bufio"
	"fmt"
	"io"

	"moss/internal/evaluator"
	"moss/internal/lexer"
	"moss/internal/object"
	"moss/internal/parser"
)

const PROMPT = ">> "

// Start runs the read-eval-print loop. One evaluator lives for the whole
// session, so globals and loaded modules persist across lines.
func Start(in io.Reader, out io.Writer, loader *evaluator.ModuleLoader) {
	scanner := bufio.NewScanner(in)
	e := evaluator.New(loader)
	e.Out = out

	for {
		fmt.Fprint(out, PROMPT)
		scanned := scanner.Scan()
		if !scanned {
			return
		}

		line := scanner.Text()

		// try the line as an expression first so `1 + 2` echoes its value,
		// then as a statement
		source := "return " + line
		l := lexer.New(source)
		p := parser.New(l, source)
		program := p.ParseProgram()
		if len(p.Errors()) != 0 {
			source = line
			l = lexer.New(source)
			p = parser.New(l, source)
			program = p.ParseProgram()
		}
		if len(p.Errors()) != 0 {
			printParserErrors(out, p.Errors())
			continue
		}

		result := e.RunProgram(program, "stdin", source)
		switch result := result.(type) {
		case *object.Error:
			io.WriteString(out, "error: "+result.Message()+"\n")
		case *object.Nil:
			// statements produce no value worth echoing
		default:
			io.WriteString(out, result.Inspect()+"\n")
		}
	}
}

func printParserErrors(out io.Writer, errors []string) {
	io.WriteString(out, " parser errors:\n")
	for _, msg := range errors {
		io.WriteString(out, "\t"+msg+"\n")
	}
}
