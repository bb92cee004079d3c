package main

import (
	"flag"

	"github.com/grailbio/base/log"
	dmm "github.com/luhtfiimanal/go-dmm"
)

func truncate(args []string) error {
	flags := flag.NewFlagSet("dmmtool truncate", flag.ExitOnError)
	path := descArg(flags, args)
	reg, err := loadRegistry(path)
	if err != nil {
		return err
	}
	n := reg.Len()
	if err := reg.Close(); err != nil {
		return err
	}

	a, err := dmm.Open(path, reg.RecordSize(), dmm.ReadWrite, false, dmm.DefaultOptions())
	if err != nil {
		return err
	}
	if err := a.Truncate(); err != nil {
		a.Close()
		return err
	}
	log.Printf("truncated %s: removed %d block files", path, n)
	return a.Close()
}
