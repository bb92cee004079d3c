package dmm

import (
	"context"
	"fmt"

	"github.com/google/btree"
	"github.com/grailbio/base/errors"
	"github.com/luhtfiimanal/go-dmm/internal/kvconf"
)

// Descriptor file layout (flat "key = value" text, see internal/kvconf):
//
//	prefix, recordsize, arraysize (records), autoextend (0|1),
//	autoblocklen (records) and autooffset (bytes) when autoextend=1,
//	then for k = 1, 2, ...: "block <k> path", "block <k> offset" (bytes),
//	"block <k> begin" and "block <k> length" (records).

func isNotExist(err error) bool { return kvconf.IsNotExist(err) }

// Save writes the registry metadata to the descriptor file at path.
func (r *Registry) Save(path string) error {
	if path == "" {
		return errors.E(errors.Invalid, "dmm: save: empty descriptor path")
	}
	rs := int64(r.recordSize)
	err := kvconf.WriteFile(context.Background(), path, func(w *kvconf.Writer) {
		w.Comment("Disk Memory Model (DMM) Set file")
		w.Blank()
		w.Set("prefix", r.prefix)
		w.Set("recordsize", r.recordSize)
		w.Set("arraysize", r.size)
		w.Set("autoextend", boolInt(r.autoExtend))
		if r.autoExtend {
			w.Set("autoblocklen", r.autoBlockLen)
			w.Set("autooffset", r.autoOffset)
		}
		for k, b := range r.Blocks() {
			key := fmt.Sprintf("block %d ", k+1)
			w.Blank()
			w.Set(key+"path", b.Path)
			w.Set(key+"offset", b.FileOffset)
			w.Set(key+"begin", b.Begin/rs)
			w.Set(key+"length", b.Length/rs)
		}
	})
	if err != nil {
		return errors.E(err, fmt.Sprintf("dmm: save %s", path))
	}
	return nil
}

// Load replaces the registry state with the descriptor at path. It returns
// false and no error when the descriptor does not exist, so callers can fall
// back to Create. Malformed descriptors yield errors of kind
// errors.Integrity. On error the registry is left unchanged.
func (r *Registry) Load(path string) (bool, error) {
	cfg, err := kvconf.Load(context.Background(), path)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, errors.E(err, fmt.Sprintf("dmm: load %s", path))
	}
	if err := r.LoadConfig(cfg); err != nil {
		return false, errors.E(err, fmt.Sprintf("dmm: load %s", path))
	}
	return true, nil
}

// LoadConfig replaces the registry state with the one described by cfg.
// The registry's open files are closed first.
func (r *Registry) LoadConfig(cfg kvconf.Config) error {
	prefix, err := cfg.String("prefix")
	if err != nil {
		return err
	}
	recordSize, err := cfg.Int("recordsize")
	if err != nil {
		return err
	}
	if recordSize <= 0 {
		return errors.E(errors.Integrity, fmt.Sprintf("dmm: invalid record size %d", recordSize))
	}
	if r.recordSize != 0 && recordSize != r.recordSize {
		return errors.E(errors.Invalid,
			fmt.Sprintf("dmm: descriptor record size %d does not match %d", recordSize, r.recordSize))
	}
	size, err := cfg.Int64("arraysize")
	if err != nil {
		return err
	}
	autoExtend, err := cfg.Bool("autoextend")
	if err != nil {
		return err
	}
	autoBlockLen, autoOffset := r.maxFileLength/int64(recordSize), int64(0)
	if autoExtend {
		if autoBlockLen, err = cfg.Int64("autoblocklen"); err != nil {
			return err
		}
		if autoOffset, err = cfg.Int64("autooffset"); err != nil {
			return err
		}
		if autoBlockLen <= 0 || autoOffset < 0 {
			return errors.E(errors.Integrity,
				fmt.Sprintf("dmm: invalid auto-extension parameters (autoblocklen=%d, autooffset=%d)", autoBlockLen, autoOffset))
		}
	}

	rs := int64(recordSize)
	blocks := btree.New(8)
	var prev *Block
	for k := 1; ; k++ {
		key := fmt.Sprintf("block %d ", k)
		if !cfg.Has(key + "path") {
			break
		}
		b := &Block{Path: cfg[key+"path"]}
		var begin, length int64
		if b.FileOffset, err = cfg.Int64(key + "offset"); err != nil {
			return err
		}
		if begin, err = cfg.Int64(key + "begin"); err != nil {
			return err
		}
		if length, err = cfg.Int64(key + "length"); err != nil {
			return err
		}
		b.Begin, b.Length = begin*rs, length*rs
		if b.Begin < 0 || b.Length <= 0 || b.FileOffset < 0 {
			return errors.E(errors.Integrity, fmt.Sprintf("dmm: block %d: invalid extent", k))
		}
		if prev != nil && b.Begin < prev.End() {
			return errors.E(errors.Integrity, fmt.Sprintf("dmm: block %d overlaps or precedes block %d", k, k-1))
		}
		blocks.ReplaceOrInsert(b)
		prev = b
	}
	var capacity int64
	if prev != nil {
		capacity = prev.End()
	}
	if size < 0 || size*rs > capacity {
		return errors.E(errors.Integrity, fmt.Sprintf("dmm: array size %d exceeds capacity", size))
	}

	if err := r.closeFiles(); err != nil {
		return err
	}
	r.prefix = prefix
	r.recordSize = recordSize
	r.size = size
	r.autoExtend = autoExtend
	r.autoBlockLen = autoBlockLen
	r.autoOffset = autoOffset
	r.blocks = blocks
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
