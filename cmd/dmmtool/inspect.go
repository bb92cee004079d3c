package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	dmm "github.com/luhtfiimanal/go-dmm"
)

// loadRegistry reads the descriptor at path, adopting its record size.
func loadRegistry(path string) (*dmm.Registry, error) {
	reg := dmm.NewRegistry(0)
	ok, err := reg.Load(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("no DMM set at %s", path))
	}
	return reg, nil
}

func inspect(args []string) error {
	flags := flag.NewFlagSet("dmmtool inspect", flag.ExitOnError)
	path := descArg(flags, args)
	reg, err := loadRegistry(path)
	if err != nil {
		return err
	}
	defer reg.Close()

	auto, autoLen, autoOffset := reg.AutoExtend()
	fmt.Printf("prefix:     %s\n", reg.Prefix())
	fmt.Printf("recordsize: %d\n", reg.RecordSize())
	fmt.Printf("size:       %s records\n", humanize.Comma(reg.Size()))
	fmt.Printf("capacity:   %s records\n", humanize.Comma(reg.Capacity()))
	if auto {
		fmt.Printf("autoextend: %d records per block at offset %d\n", autoLen, autoOffset)
	} else {
		fmt.Println("autoextend: off")
	}

	ctx := context.Background()
	rs := int64(reg.RecordSize())
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nblock\tbegin\tend\toffset\ton disk\tpath")
	var total uint64
	for i, b := range reg.Blocks() {
		// Files are created lazily, on first access.
		onDisk := "-"
		if info, err := file.Stat(ctx, b.Path); err == nil {
			total += uint64(info.Size())
			onDisk = humanize.Bytes(uint64(info.Size()))
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\n", i+1, b.Begin/rs, b.End()/rs, b.FileOffset, onDisk, b.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d blocks, %s on disk\n", reg.Len(), humanize.Bytes(total))
	return nil
}
