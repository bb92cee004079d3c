// Dmmtool creates, inspects, exercises and truncates DMM sets.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `usage: dmmtool [flags] command args...

Command dmmtool manipulates Disk Memory Model sets: record arrays spread
over several files and accessed through memory-mapped windows. Each set
is named by its descriptor file.

Available commands are:

	create [-recordsize N] [-total N] [-blocklen N] [-offset N] desc
		Create an empty set, deleting any previous one.
	inspect desc
		Print the descriptor header and block layout.
	fill [-runs N] [-run N] [-max N] [-seed N] [-window BYTES] [-maxwindows N] [-parallel N] desc
		Write random runs of demo records, verify them and report
		window statistics. With -parallel, independent sets desc.0,
		desc.1, ... are filled concurrently.
	truncate desc
		Delete every backing file of the set.
`)
		flag.PrintDefaults()
		os.Exit(2)
	}
	log.AddFlags()
	flag.Parse()
	must.Func = log.Fatal

	if flag.NArg() == 0 {
		flag.Usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]
	var err error
	switch cmd {
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
		flag.Usage()
	case "create":
		err = create(args)
	case "inspect":
		err = inspect(args)
	case "fill":
		err = fill(args)
	case "truncate":
		err = truncate(args)
	}
	must.Nil(err, cmd)
}

// descArg parses the command's flags and returns its single descriptor
// argument.
func descArg(flags *flag.FlagSet, args []string) string {
	if err := flags.Parse(args); err != nil {
		log.Fatal(err)
	}
	if flags.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s: need exactly one descriptor path\n", flags.Name())
		flags.Usage()
		os.Exit(2)
	}
	return flags.Arg(0)
}
