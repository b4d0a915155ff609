package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"moss/internal/evaluator"
	"moss/internal/lexer"
	"moss/internal/object"
	"moss/internal/parser"
	"moss/internal/repl"
	"moss/internal/util"
)

const DefaultRootPath = "."

var (
	// Version is stamped at build time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel string
	logFile  string
	// config vars
	rootPath string
	debugAST bool
	maxDepth int
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	// evaluator config
	flag.StringVar(&rootPath, "root", "", "Set the module search root for require()")
	flag.IntVar(&maxDepth, "max-depth", 0, "Maximum call depth before the interpreter aborts")
	// parser config
	flag.BoolVar(&debugAST, "debug-ast", false, "Render the AST as JSON and exit")
	// log config
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	flag.Parse()

	if version {
		printVersion()
		return
	}

	if help {
		printHelp()
		return
	}

	config, err := util.LoadConfiguration(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "moss: %v\n", err)
		os.Exit(1)
	}
	if rootPath != "" {
		config.RootPath = rootPath
	}
	if maxDepth > 0 {
		config.MaxCallDepth = maxDepth
	}
	config.DebugJsonAST = debugAST

	// flags win over moss.toml and MOSS_* for logging
	if logLevel == "" {
		logLevel = config.LogLevel
	}
	if logFile == "" {
		logFile = config.LogFile
	}
	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(logLevel),
	}
	logWriter := configureLogWriter()
	defaultLogger := slog.New(slog.NewJSONHandler(logWriter, loggerOptions))
	slog.SetDefault(defaultLogger)

	if flag.Arg(0) == "" {
		loader := evaluator.NewModuleLoader(config.SearchRoots(DefaultRootPath))
		repl.Start(os.Stdin, os.Stdout, loader)
		return
	}

	os.Exit(runFile(config, flag.Arg(0), flag.Args()[1:]))
}

func runFile(config *util.Configuration, filename string, scriptArgs []string) int {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "moss: cannot open %s: %v\n", filename, err)
		return 1
	}
	src := string(source)

	l := lexer.New(src)
	p := parser.New(l, src)
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		printParserErrors(filename, src, p.Errors())
		return 1
	}

	if config.DebugJsonAST {
		rendered, renderErr := parser.RenderASTAsJSON(program)
		if renderErr != nil {
			fmt.Fprintf(os.Stderr, "moss: %v\n", renderErr)
			return 1
		}
		fmt.Print(rendered)
		return 0
	}

	loader := evaluator.NewModuleLoader(config.SearchRoots(filepath.Dir(filename)))
	e := evaluator.New(loader)
	if config.MaxCallDepth > 0 {
		e.SetMaxCallDepth(config.MaxCallDepth)
	}
	defineArgTable(e, filename, scriptArgs)

	result := e.RunProgram(program, filename, src)
	if raised, ok := result.(*object.Error); ok {
		fmt.Fprintf(os.Stderr, "moss: %s\n", raised.Message())
		return 1
	}
	return 0
}

// defineArgTable exposes the script name at arg[0] and its arguments from
// arg[1] on, the conventional shape scripts expect.
func defineArgTable(e *evaluator.Evaluator, filename string, scriptArgs []string) {
	argTable := object.NewTable()
	_ = argTable.Set(&object.Number{Value: 0}, &object.String{Value: filename})
	for i, a := range scriptArgs {
		_ = argTable.Set(&object.Number{Value: float64(i + 1)}, &object.String{Value: a})
	}
	e.Globals().Define("arg", argTable)
}

func printParserErrors(filename, src string, errors []string) {
	fmt.Fprintf(os.Stderr, "moss: %s has %d syntax error(s)\n", filename, len(errors))
	for _, msg := range errors {
		fmt.Fprintf(os.Stderr, "\t%s\n", msg)

		var line, col int
		if _, err := fmt.Sscanf(msg, "[%d:%d]", &line, &col); err == nil {
			fmt.Fprintln(os.Stderr, util.GetContextLines(src, line, col))
		}
	}
}

func configureLogWriter() *os.File {
	var logWriter *os.File
	var err error
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
			return os.Stderr
		}
		logWriter, err = os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
			logWriter = os.Stderr
		}
	} else {
		logWriter = os.Stderr
	}
	return logWriter
}

func printVersion() {
	fmt.Printf("moss version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: moss [options] [filename [args...]]

Options:
  -root <path>       Set the module search root for require(). Default is the script's directory.
  -max-depth <n>     Maximum call depth before the interpreter aborts. Default is %d.
  -debug-ast         Render the AST as JSON and exit.
  -help              Display this help information and exit.
  -version           Display version information and exit.
  -log-level <level> Set the log level: debug, info, warn, error. Default is 'error'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.

Details:
Moss is a small embeddable scripting language. Run it with a filename to
execute a script, or with no arguments to start an interactive session.

Examples:
  moss                          Start the REPL
  moss script.lua               Execute the provided file
  moss script.lua arg1 arg2     Execute the file with command-line arguments
  moss -debug-ast script.lua    Dump the parsed AST as JSON

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, evaluator.DefaultMaxCallDepth, Version, BuildDate, Commit)
}

func logLevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
