package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	clog "github.com/evanphx/ebpfcall/log"
	"github.com/evanphx/ebpfcall/probe"
	"github.com/spf13/pflag"
)

var (
	fConfig = pflag.StringP("config", "c", "", "scenario file describing regions and calls")
	fTrace  = pflag.BoolP("trace", "t", false, "log every translation and syscall")
)

func main() {
	cpuprofile := os.Getenv("CPUPROFILE")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		fmt.Printf("pprof: profiling started\n")
	}

	pflag.Parse()

	if *fConfig == "" {
		if pflag.NArg() == 0 {
			fmt.Fprintf(os.Stderr, "usage: sysprobe --config scenario.toml\n")
			pflag.PrintDefaults()
			os.Exit(2)
		}

		*fConfig = pflag.Arg(0)
	}

	if *fTrace {
		clog.EnableTrace()
	}

	sc, err := probe.Load(*fConfig)
	if err != nil {
		log.Fatal(err)
	}

	report, err := probe.Run(context.Background(), clog.L, sc, os.Stdout)

	if cpuprofile != "" {
		pprof.StopCPUProfile()
		fmt.Printf("pprof: profiling finished\n")
	}

	if err != nil {
		log.Fatal(err)
	}

	for _, o := range report.Outcomes {
		if o.Fault != nil {
			fmt.Printf("%3d %-22s fault: %s\n", o.Call, o.Name, o.Fault)
			continue
		}

		fmt.Printf("%3d %-22s %#x\n", o.Call, o.Name, o.Value)
	}
}
