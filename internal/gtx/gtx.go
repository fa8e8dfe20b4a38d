// Package gtx implements the persisted record exchange container: a
// binary file carrying a symbol table plus each symbol's sparse tuple
// records. The write/read roundtrip is lossless for element labels,
// numeric values and the extended numeric sentinels, which live in a
// reserved double band and therefore serialize as ordinary floats.
//
// The payload is msgpack-framed behind a fixed magic header, so a reader
// can reject foreign files before decoding.
package gtx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/ctxlog"
)

// magic identifies a container file; version gates format evolution.
var magic = []byte("GTX1")

const version = 1

// file is the top-level msgpack document.
type file struct {
	Version int      `msgpack:"version"`
	Symbols []symbol `msgpack:"symbols"`
}

// symbol is one symbol-table entry with its records.
type symbol struct {
	Name    string   `msgpack:"name"`
	Kind    uint8    `msgpack:"kind"`
	Subtype uint8    `msgpack:"subtype,omitempty"`
	Domain  []string `msgpack:"domain"`
	Records []record `msgpack:"records"`
	// AliasOf names the target set for alias entries.
	AliasOf string `msgpack:"alias_of,omitempty"`
}

// record is one sparse tuple. Parameters carry one value; variables and
// equations carry the 5-field attribute vector; set records carry none.
type record struct {
	Keys   []string  `msgpack:"keys"`
	Values []float64 `msgpack:"values"`
}

// Write serializes every symbol of the container, in declaration order,
// to w.
func Write(ctx context.Context, c *algebra.Container, w io.Writer) error {
	logger := ctxlog.Maybe(ctx)

	doc := file{Version: version}
	for _, sym := range c.Symbols() {
		entry := symbol{Name: sym.Name(), Kind: uint8(sym.Kind())}
		for _, d := range sym.Domain() {
			entry.Domain = append(entry.Domain, d.Name())
		}
		switch s := sym.(type) {
		case *algebra.Set:
			for _, el := range s.Elements() {
				entry.Records = append(entry.Records, record{Keys: []string{el}})
			}
		case *algebra.Alias:
			entry.AliasOf = s.Target().Name()
		case *algebra.Parameter:
			for _, rec := range s.Records() {
				entry.Records = append(entry.Records, record{Keys: rec.Keys, Values: []float64{rec.Value}})
			}
		case *algebra.Variable:
			entry.Subtype = uint8(s.Type())
			for _, rec := range s.Records() {
				entry.Records = append(entry.Records, attrRecord(rec))
			}
		case *algebra.Equation:
			entry.Subtype = uint8(s.Type())
			for _, rec := range s.Records() {
				entry.Records = append(entry.Records, attrRecord(rec))
			}
		}
		doc.Symbols = append(doc.Symbols, entry)
	}

	if _, err := w.Write(magic); err != nil {
		return fmt.Errorf("writing container header: %w", err)
	}
	if err := msgpack.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encoding container: %w", err)
	}
	logger.Debug("Container serialized.", "symbols", len(doc.Symbols))
	return nil
}

func attrRecord(rec algebra.AttributeRecord) record {
	return record{
		Keys:   rec.Keys,
		Values: []float64{rec.Level, rec.Marginal, rec.Lower, rec.Upper, rec.Scale},
	}
}

// Read decodes a container file from r and declares its symbols into c.
// Declaration order is the file's symbol-table order, so domain sets
// always precede the symbols declared over them.
func Read(ctx context.Context, c *algebra.Container, r io.Reader) error {
	logger := ctxlog.Maybe(ctx)

	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return fmt.Errorf("reading container header: %w", err)
	}
	if !bytes.Equal(head, magic) {
		return fmt.Errorf("not a gtx container (bad magic %q)", head)
	}
	var doc file
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decoding container: %w", err)
	}
	if doc.Version != version {
		return fmt.Errorf("unsupported container version %d", doc.Version)
	}

	for _, entry := range doc.Symbols {
		if err := declareFromEntry(c, entry); err != nil {
			return fmt.Errorf("restoring symbol %q: %w", entry.Name, err)
		}
	}
	logger.Debug("Container restored.", "symbols", len(doc.Symbols))
	return nil
}

func declareFromEntry(c *algebra.Container, entry symbol) error {
	domain, err := lookupDomain(c, entry.Domain)
	if err != nil {
		return err
	}
	switch algebra.Kind(entry.Kind) {
	case algebra.KindSet:
		elements := make([]string, 0, len(entry.Records))
		for _, rec := range entry.Records {
			if len(rec.Keys) != 1 {
				return fmt.Errorf("set record carries %d keys, want 1", len(rec.Keys))
			}
			elements = append(elements, rec.Keys[0])
		}
		_, err := c.AddSet(entry.Name, domain, elements...)
		return err

	case algebra.KindAlias:
		target, ok := c.Symbol(entry.AliasOf)
		if !ok {
			return fmt.Errorf("alias target %q missing from symbol table", entry.AliasOf)
		}
		set, ok := target.(*algebra.Set)
		if !ok {
			return fmt.Errorf("alias target %q is not a set", entry.AliasOf)
		}
		_, err := c.AddAlias(entry.Name, set)
		return err

	case algebra.KindParameter:
		p, err := c.AddParameter(entry.Name, domain...)
		if err != nil {
			return err
		}
		rows := make([][]any, len(entry.Records))
		for i, rec := range entry.Records {
			rows[i] = tupleRow(rec.Keys, rec.Values)
		}
		if len(rows) == 0 {
			return nil
		}
		if p.Dim() == 0 {
			if len(entry.Records[0].Values) == 0 {
				return fmt.Errorf("scalar record carries no value")
			}
			return p.SetRecords(entry.Records[0].Values[0])
		}
		return p.SetRecords(rows)

	case algebra.KindVariable:
		v, err := c.AddVariable(entry.Name, algebra.VarType(entry.Subtype), domain...)
		if err != nil {
			return err
		}
		if len(entry.Records) == 0 {
			return nil
		}
		rows := make([][]any, len(entry.Records))
		for i, rec := range entry.Records {
			rows[i] = tupleRow(rec.Keys, rec.Values)
		}
		return v.SetRecords(rows)

	case algebra.KindEquation:
		q, err := c.AddEquation(entry.Name, algebra.EqType(entry.Subtype), domain...)
		if err != nil {
			return err
		}
		if len(entry.Records) == 0 {
			return nil
		}
		rows := make([][]any, len(entry.Records))
		for i, rec := range entry.Records {
			rows[i] = tupleRow(rec.Keys, rec.Values)
		}
		return q.SetRecords(rows)
	}
	return fmt.Errorf("unknown symbol kind %d", entry.Kind)
}

func tupleRow(keys []string, values []float64) []any {
	row := make([]any, 0, len(keys)+len(values))
	for _, k := range keys {
		row = append(row, k)
	}
	for _, v := range values {
		row = append(row, v)
	}
	return row
}

func lookupDomain(c *algebra.Container, names []string) ([]algebra.SetLike, error) {
	if len(names) == 0 {
		return nil, nil
	}
	domain := make([]algebra.SetLike, len(names))
	for i, name := range names {
		if name == "*" {
			domain[i] = c.Universe()
			continue
		}
		sym, ok := c.Symbol(name)
		if !ok {
			return nil, fmt.Errorf("domain set %q missing from symbol table", name)
		}
		sl, ok := sym.(algebra.SetLike)
		if !ok {
			return nil, fmt.Errorf("domain symbol %q is not a set", name)
		}
		domain[i] = sl
	}
	return domain, nil
}

// WriteFile writes the container to path.
func WriteFile(ctx context.Context, c *algebra.Container, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating container file: %w", err)
	}
	defer f.Close()
	return Write(ctx, c, f)
}

// ReadFile restores symbols from path into c.
func ReadFile(ctx context.Context, c *algebra.Container, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening container file: %w", err)
	}
	defer f.Close()
	return Read(ctx, c, f)
}
