package main

import (
	"flag"

	"github.com/dustin/go-humanize"
	"github.com/grailbio/base/log"
	dmm "github.com/luhtfiimanal/go-dmm"
)

func create(args []string) error {
	var (
		flags      = flag.NewFlagSet("dmmtool create", flag.ExitOnError)
		recordSize = flags.Int("recordsize", 8, "record size in bytes")
		total      = flags.Int64("total", -1, "number of records; <= 0 creates an auto-extending set")
		blockLen   = flags.Int64("blocklen", 0, "records per block file; 0 fills a maximum-sized file")
		offset     = flags.Int64("offset", 0, "byte offset of the data inside each block file")
		maxFile    = flags.Int64("maxfile", dmm.DefaultMaxFileLength, "maximum size of a block file in bytes")
	)
	path := descArg(flags, args)

	opts := dmm.DefaultOptions()
	opts.TotalLength = *total
	opts.BlockLength = *blockLen
	opts.BlockOffset = *offset
	opts.MaxFileLength = *maxFile
	a, err := dmm.Create(path, *recordSize, opts)
	if err != nil {
		return err
	}
	log.Printf("created %s: %d blocks, capacity %s records of %d bytes (%s)",
		path, a.BlockCount(), humanize.Comma(a.Capacity()), a.RecordSize(),
		humanize.Bytes(uint64(a.Capacity())*uint64(a.RecordSize())))
	return a.Close()
}
