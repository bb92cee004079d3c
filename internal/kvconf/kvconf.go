// Package kvconf reads and writes flat "key = value" configuration files.
//
// Each non-empty line holds one key and one value separated by the first
// '='. Keys may contain spaces ("block 1 path"); surrounding whitespace is
// trimmed. Lines whose key starts with '#' are comments. A value starting
// with '"' is unquoted. A key ending in "[]" is an array push: it is stored
// under the next free index, "key[0]", "key[1]", and so on.
//
// There is no process-wide configuration; every Config is an explicit
// snapshot and defaults are applied with Merge.
package kvconf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Config is a parsed configuration snapshot.
type Config map[string]string

// Parse reads a configuration from r. Syntax errors have kind
// errors.Integrity, like missing or malformed values.
func Parse(r io.Reader) (Config, error) {
	c := make(Config)
	next := make(map[string]int)
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for lnum := 1; scan.Scan(); lnum++ {
		line := strings.TrimSpace(scan.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("kvconf: line %d: missing '='", lnum))
		}
		key := strings.TrimSpace(line[:eq])
		if key == "" {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("kvconf: line %d: empty key", lnum))
		}
		if key[0] == '#' {
			continue
		}
		if strings.HasSuffix(key, "[]") && len(key) > 2 {
			base := key[:len(key)-2]
			i := next[base]
			for {
				key = fmt.Sprintf("%s[%d]", base, i)
				i++
				if _, ok := c[key]; !ok {
					break
				}
			}
			next[base] = i
		}
		value := strings.TrimSpace(line[eq+1:])
		if value == "" {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("kvconf: line %d: no value for key %q", lnum, key))
		}
		if value[0] == '"' {
			uq, err := strconv.Unquote(value)
			if err != nil {
				// unterminated quote: drop the delimiters we do have
				uq = strings.TrimSuffix(value[1:], `"`)
			}
			value = uq
		}
		c[key] = value
	}
	if err := scan.Err(); err != nil {
		return nil, errors.E(err, "kvconf: read")
	}
	return c, nil
}

// Load parses the configuration file at path. Any path supported by
// github.com/grailbio/base/file may be used. A missing file yields an error
// for which IsNotExist returns true.
func Load(ctx context.Context, path string) (Config, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(f.Reader(ctx))
	if cerr := f.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("kvconf: load %s", path))
	}
	return c, nil
}

// IsNotExist tells whether err reports a missing configuration file.
func IsNotExist(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(errors.NotExist, err) {
		return true
	}
	if e, ok := err.(*errors.Error); ok && e.Err != nil {
		return IsNotExist(e.Err)
	}
	return isOSNotExist(err)
}

// Has tells whether key is set.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// String returns the value for key, or an Integrity error when it is missing.
func (c Config) String(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", errors.E(errors.Integrity, fmt.Sprintf("kvconf: no %q key", key))
	}
	return v, nil
}

// Int64 returns the integer value for key.
func (c Config) Int64(key string) (int64, error) {
	v, err := c.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.E(errors.Integrity, fmt.Sprintf("kvconf: key %q: bad integer %q", key, v))
	}
	return n, nil
}

// Int returns the integer value for key.
func (c Config) Int(key string) (int, error) {
	n, err := c.Int64(key)
	return int(n), err
}

// Bool interprets integer values as booleans (non-zero is true); "true" and
// "false" are accepted as well.
func (c Config) Bool(key string) (bool, error) {
	v, err := c.String(key)
	if err != nil {
		return false, err
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b, nil
	}
	n, err := c.Int64(key)
	return n != 0, err
}

// Subset returns the keys beginning with prefix, optionally with the prefix
// stripped.
func (c Config) Subset(prefix string, strip bool) Config {
	sub := make(Config)
	for k, v := range c {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if strip {
			k = k[len(prefix):]
		}
		sub[k] = v
	}
	return sub
}

// Merge copies keys from defaults that are not set in c.
func (c Config) Merge(defaults Config) {
	for k, v := range defaults {
		if _, ok := c[k]; !ok {
			c[k] = v
		}
	}
}

// Keys returns the keys in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
