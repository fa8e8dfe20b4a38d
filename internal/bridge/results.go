package bridge

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/optalg/internal/algebra"
)

// The engine reports results in a line-oriented form:
//
//	status <model-status> [<objective>]
//	rec <symbol>[(<label>,<label>...)] <value> [<value>...]
//
// Blank lines and lines starting with '#' are ignored. Everything else is
// a parse error: a malformed result stream means the engine run cannot be
// trusted.

// recLine captures "name" or "name(k1,k2,...)".
var recLine = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)(?:\((.*)\))?$`)

// parseResult decodes an engine result stream.
func parseResult(r io.Reader) (*Result, error) {
	res := &Result{Status: algebra.StatusUnknown}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "status":
			if len(fields) < 2 {
				return nil, fmt.Errorf("result line %d: status without a value", lineNo)
			}
			res.Status = statusFromWord(fields[1])
			if len(fields) >= 3 {
				obj, err := strconv.ParseFloat(fields[2], 64)
				if err != nil {
					return nil, fmt.Errorf("result line %d: bad objective %q: %w", lineNo, fields[2], err)
				}
				res.Objective = obj
				res.HasObj = true
			}
		case "rec":
			if len(fields) < 3 {
				return nil, fmt.Errorf("result line %d: record without values", lineNo)
			}
			rec, err := parseRecordRef(fields[1])
			if err != nil {
				return nil, fmt.Errorf("result line %d: %w", lineNo, err)
			}
			for _, f := range fields[2:] {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, fmt.Errorf("result line %d: bad value %q: %w", lineNo, f, err)
				}
				rec.Values = append(rec.Values, v)
			}
			res.Records = append(res.Records, rec)
		default:
			return nil, fmt.Errorf("result line %d: unknown directive %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading result stream: %w", err)
	}
	return res, nil
}

// parseRecordRef splits "name(k1,k2)" into symbol and key labels. Labels
// may be single-quoted when they contain syntax characters.
func parseRecordRef(ref string) (Record, error) {
	m := recLine.FindStringSubmatch(ref)
	if m == nil {
		return Record{}, fmt.Errorf("malformed record reference %q", ref)
	}
	rec := Record{Symbol: m[1]}
	if m[2] != "" {
		for _, part := range strings.Split(m[2], ",") {
			label := strings.TrimSpace(part)
			label = strings.Trim(label, "'")
			rec.Keys = append(rec.Keys, label)
		}
	}
	return rec, nil
}

func statusFromWord(word string) algebra.ModelStatus {
	switch strings.ToLower(word) {
	case "optimal":
		return algebra.StatusOptimal
	case "locally-optimal", "locallyoptimal":
		return algebra.StatusLocallyOptimal
	case "feasible":
		return algebra.StatusFeasible
	case "infeasible":
		return algebra.StatusInfeasible
	case "unbounded":
		return algebra.StatusUnbounded
	case "interrupted":
		return algebra.StatusInterrupted
	}
	return algebra.StatusUnknown
}
