// NBC CLI - loads an instruction listing and executes it on the engine.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/noodle-lang/nbc/db"
	"github.com/noodle-lang/nbc/manifest"
	"github.com/noodle-lang/nbc/matrix"
	"github.com/noodle-lang/nbc/telemetry"
	"github.com/noodle-lang/nbc/vm"
	"github.com/noodle-lang/nbc/vm/report"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	configDir := flag.String("config", ".", "Directory to search for nbc.toml")
	dbDriver := flag.String("db-driver", "", "Attach a database backend: sqlite or duckdb")
	dbDSN := flag.String("db-dsn", "", "Database DSN (empty sqlite DSN is in-memory)")
	withMatrix := flag.Bool("matrix", false, "Attach the matrix backend")
	reportPath := flag.String("report", "", "Write a CBOR execution report to this file")
	list := flag.Bool("list", false, "Print the program listing instead of executing")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nbc [options] program.nbc\n\n")
		fmt.Fprintf(os.Stderr, "Executes an NBC instruction listing.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  nbc prog.nbc                     # Run a program\n")
		fmt.Fprintf(os.Stderr, "  nbc -list prog.nbc               # Show its listing\n")
		fmt.Fprintf(os.Stderr, "  nbc -db-driver sqlite prog.nbc   # Run with an in-memory database\n")
		fmt.Fprintf(os.Stderr, "  nbc -matrix -report out.cbor prog.nbc\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := manifest.FindAndLoad(*configDir)
	if err != nil {
		fatalf("Error loading nbc.toml: %v", err)
	}
	if m == nil {
		m = manifest.Default()
	}

	verbosity := *m.Logging.Verbosity
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fatalf("Error opening program: %v", err)
	}
	program, err := ParseListing(f)
	f.Close()
	if err != nil {
		fatalf("Error parsing program: %v", err)
	}

	if *list {
		fmt.Print(vm.Disassemble(program))
		return
	}

	rt := vm.NewRuntime(m.RuntimeConfig())
	rt.SetTelemetry(telemetry.NewLogSink())

	driver := *dbDriver
	if driver == "" && *dbDSN != "" {
		driver = m.Database.Driver
	}
	if driver != "" {
		store, err := db.Open(driver, *dbDSN)
		if err != nil {
			fatalf("Error opening database: %v", err)
		}
		defer store.Close()
		rt.AttachDatabase(store)
	}
	if *withMatrix {
		rt.AttachMatrix(matrix.New())
	}

	res := rt.Execute(program)

	if *reportPath != "" {
		rep := report.Build(res, rt.StackTrace(), rt.Frames().ClosedFrames(), rt.Faults())
		data, err := report.Marshal(&rep)
		if err != nil {
			fatalf("Error encoding report: %v", err)
		}
		if err := os.WriteFile(*reportPath, data, 0o644); err != nil {
			fatalf("Error writing report: %v", err)
		}
	}

	fmt.Printf("state: %s\n", res.State)
	fmt.Printf("instructions: %d\n", res.Metrics.InstructionsExecuted)
	fmt.Printf("stack high water: %d\n", res.Metrics.StackHighWater)
	if res.Value != nil {
		fmt.Printf("result: %v\n", res.Value)
	}
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "execution failed: %v\n", res.Err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
