// Package blockspec translates textual block specifications into concrete
// ordered sets of block numbers. The token grammar and the tip/reorg-buffer
// handling are ported from cryo's Rust block-spec parser; the zero value of
// that grammar (single number, A:B range, relative "-K:M"/"N:+K" forms, unit
// suffixes) is kept byte-for-byte compatible, with two additions this port
// adds on top: step-sampled ranges ("N:M:S") and evenly-sampled ranges
// ("N:M/K").
package blockspec

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
)

// TipProvider resolves the chain's current tip, used for "latest" and for
// the trailing reorg buffer.
type TipProvider interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// ResolveOptions controls alignment, chunk sizing and the reorg buffer
// applied after parsing.
type ResolveOptions struct {
	ChunkSize   uint64
	NChunks     uint64
	Align       bool
	ReorgBuffer uint64
	// ParquetColumn selects which column to read block numbers from when a
	// spec token is a path to an existing parquet file; defaults to
	// "block_number".
	ParquetColumn string
	// ReadParquetColumn, when non-nil, reads the unique values of a column
	// from a parquet file. This repository provides no implementation and
	// the CLI leaves it nil, so there a file-path argument resolves to an
	// InvalidQuery error.
	ReadParquetColumn func(path, column string) ([]uint64, error)
}

// Resolve turns the given block-spec arguments into the final, chunked
// block list: each argument is either an existing file path (parquet
// column input) or a whitespace-separated set of block tokens.
func Resolve(ctx context.Context, args []string, tip TipProvider, opts ResolveOptions) ([]*chunkpkg.Chunk, error) {
	var elements []*chunkpkg.Chunk
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			column := opts.ParquetColumn
			if column == "" {
				column = "block_number"
			}
			if idx := strings.LastIndex(arg, ":"); idx > 1 {
				column = arg[idx+1:]
				arg = arg[:idx]
			}
			if opts.ReadParquetColumn == nil {
				return nil, cryoerrors.NewInvalidQuery(nil, "no parquet reader configured to read block numbers from %q", arg)
			}
			numbers, err := opts.ReadParquetColumn(arg, column)
			if err != nil {
				return nil, cryoerrors.NewInvalidQuery(err, "reading block numbers from %q column %q", arg, column)
			}
			elements = append(elements, chunkpkg.NewNumbersChunk(numbers))
			continue
		}

		parsed, err := parseBlockInputs(ctx, arg, tip)
		if err != nil {
			return nil, err
		}
		elements = append(elements, parsed...)
	}

	chunks := chunkpkg.Partition(elements, chunkpkg.PartitionOptions{
		ChunkSize: opts.ChunkSize,
		NChunks:   opts.NChunks,
		Align:     opts.Align,
	}, nil)

	return applyReorgBuffer(ctx, chunks, tip, opts.ReorgBuffer)
}

func parseBlockInputs(ctx context.Context, input string, tip TipProvider) ([]*chunkpkg.Chunk, error) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, cryoerrors.NewInvalidQuery(nil, "empty block spec")
	}
	if len(parts) == 1 {
		c, err := parseBlockToken(ctx, parts[0], true, tip)
		if err != nil {
			return nil, err
		}
		return []*chunkpkg.Chunk{c}, nil
	}
	var chunks []*chunkpkg.Chunk
	for _, part := range parts {
		c, err := parseBlockToken(ctx, part, false, tip)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

type rangePosition int

const (
	rangeNone rangePosition = iota
	rangeFirst
	rangeLast
)

func parseBlockToken(ctx context.Context, s string, asRange bool, tip TipProvider) (*chunkpkg.Chunk, error) {
	s = strings.ReplaceAll(s, "_", "")

	if step, ok := splitStepToken(s); ok {
		return parseSteppedToken(ctx, step, tip)
	}
	if sample, ok := splitSampleToken(s); ok {
		return parseSampledToken(ctx, sample, tip)
	}

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		block, err := parseBlockNumber(ctx, parts[0], rangeNone, tip)
		if err != nil {
			return nil, err
		}
		return chunkpkg.NewNumbersChunk([]uint64{block}), nil
	case 2:
		first, second := parts[0], parts[1]
		var start, end uint64
		var err error
		switch {
		case strings.HasPrefix(first, "-"):
			end, err = parseBlockNumber(ctx, second, rangeLast, tip)
			if err != nil {
				return nil, err
			}
			delta, perr := strconv.ParseUint(first[1:], 10, 64)
			if perr != nil {
				return nil, cryoerrors.NewInvalidQuery(perr, "invalid start offset %q", first)
			}
			if delta > end {
				return nil, cryoerrors.NewInvalidQuery(nil, "start block underflow in %q", s)
			}
			start = end - delta
		case strings.HasPrefix(second, "+"):
			start, err = parseBlockNumber(ctx, first, rangeFirst, tip)
			if err != nil {
				return nil, err
			}
			delta, perr := strconv.ParseUint(second[1:], 10, 64)
			if perr != nil {
				return nil, cryoerrors.NewInvalidQuery(perr, "invalid end offset %q", second)
			}
			end = start + delta
		default:
			start, err = parseBlockNumber(ctx, first, rangeFirst, tip)
			if err != nil {
				return nil, err
			}
			end, err = parseBlockNumber(ctx, second, rangeLast, tip)
			if err != nil {
				return nil, err
			}
		}
		if end <= start {
			return nil, cryoerrors.NewInvalidQuery(nil, "end block must be greater than start block in %q", s)
		}
		if asRange {
			return chunkpkg.NewRangeChunk(start, end), nil
		}
		numbers := make([]uint64, 0, end-start+1)
		for b := start; b <= end; b++ {
			numbers = append(numbers, b)
		}
		return chunkpkg.NewNumbersChunk(numbers), nil
	default:
		return nil, cryoerrors.NewInvalidQuery(nil, "blocks must be in format block_number or start_block:end_block, got %q", s)
	}
}

// splitStepToken recognizes "N:M:S" (step), distinct from the 2-part forms
// handled above.
func splitStepToken(s string) ([3]string, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return [3]string{}, false
	}
	return [3]string{parts[0], parts[1], parts[2]}, true
}

func parseSteppedToken(ctx context.Context, parts [3]string, tip TipProvider) (*chunkpkg.Chunk, error) {
	start, err := parseBlockNumber(ctx, parts[0], rangeFirst, tip)
	if err != nil {
		return nil, err
	}
	end, err := parseBlockNumber(ctx, parts[1], rangeLast, tip)
	if err != nil {
		return nil, err
	}
	step, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil || step == 0 {
		return nil, cryoerrors.NewInvalidQuery(err, "invalid step %q", parts[2])
	}
	if end <= start {
		return nil, cryoerrors.NewInvalidQuery(nil, "end block must be greater than start block in step spec")
	}
	var numbers []uint64
	for b := start; b <= end; b += step {
		numbers = append(numbers, b)
	}
	return chunkpkg.NewNumbersChunk(numbers), nil
}

// splitSampleToken recognizes "N:M/K" (K evenly spaced samples).
func splitSampleToken(s string) ([2]string, bool) {
	rangePart, countPart, ok := strings.Cut(s, "/")
	if !ok {
		return [2]string{}, false
	}
	if !strings.Contains(rangePart, ":") {
		return [2]string{}, false
	}
	return [2]string{rangePart, countPart}, true
}

func parseSampledToken(ctx context.Context, parts [2]string, tip TipProvider) (*chunkpkg.Chunk, error) {
	rangeParts := strings.Split(parts[0], ":")
	if len(rangeParts) != 2 {
		return nil, cryoerrors.NewInvalidQuery(nil, "invalid sampled range %q", parts[0])
	}
	start, err := parseBlockNumber(ctx, rangeParts[0], rangeFirst, tip)
	if err != nil {
		return nil, err
	}
	end, err := parseBlockNumber(ctx, rangeParts[1], rangeLast, tip)
	if err != nil {
		return nil, err
	}
	k, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || k == 0 {
		return nil, cryoerrors.NewInvalidQuery(err, "invalid sample count %q", parts[1])
	}
	if end <= start {
		return nil, cryoerrors.NewInvalidQuery(nil, "end block must be greater than start block in sampled spec")
	}
	if k == 1 {
		return chunkpkg.NewNumbersChunk([]uint64{start}), nil
	}
	span := end - start
	numbers := make([]uint64, 0, k)
	for i := uint64(0); i < k; i++ {
		numbers = append(numbers, start+(span*i)/(k-1))
	}
	return chunkpkg.NewNumbersChunk(numbers), nil
}

func parseBlockNumber(ctx context.Context, ref string, pos rangePosition, tip TipProvider) (uint64, error) {
	switch {
	case ref == "latest":
		if tip == nil {
			return 0, cryoerrors.NewInvalidQuery(nil, "\"latest\" requires a connected node")
		}
		n, err := tip.LatestBlockNumber(ctx)
		if err != nil {
			return 0, cryoerrors.NewNetworkUnavailable(err, "retrieving latest block number")
		}
		return n, nil
	case ref == "" && pos == rangeFirst:
		return 0, nil
	case ref == "" && pos == rangeLast:
		if tip == nil {
			return 0, cryoerrors.NewInvalidQuery(nil, "open-ended range requires a connected node")
		}
		n, err := tip.LatestBlockNumber(ctx)
		if err != nil {
			return 0, cryoerrors.NewNetworkUnavailable(err, "retrieving latest block number")
		}
		return n, nil
	case ref == "":
		return 0, cryoerrors.NewInvalidQuery(nil, "invalid empty block reference")
	case strings.HasSuffix(ref, "B") || strings.HasSuffix(ref, "b"):
		return parseSuffixed(ref, 1e9)
	case strings.HasSuffix(ref, "M") || strings.HasSuffix(ref, "m"):
		return parseSuffixed(ref, 1e6)
	case strings.HasSuffix(ref, "K") || strings.HasSuffix(ref, "k"):
		return parseSuffixed(ref, 1e3)
	default:
		f, err := strconv.ParseFloat(ref, 64)
		if err != nil {
			return 0, cryoerrors.NewInvalidQuery(err, "invalid block reference %q", ref)
		}
		return uint64(f), nil
	}
}

func parseSuffixed(ref string, multiplier float64) (uint64, error) {
	f, err := strconv.ParseFloat(ref[:len(ref)-1], 64)
	if err != nil {
		return 0, cryoerrors.NewInvalidQuery(err, "invalid block reference %q", ref)
	}
	return uint64(multiplier * f), nil
}

func applyReorgBuffer(ctx context.Context, chunks []*chunkpkg.Chunk, tip TipProvider, reorgBuffer uint64) ([]*chunkpkg.Chunk, error) {
	if reorgBuffer == 0 {
		return chunks, nil
	}
	if tip == nil {
		return nil, cryoerrors.NewInvalidQuery(nil, "reorg buffer requires a connected node")
	}
	latest, err := tip.LatestBlockNumber(ctx)
	if err != nil {
		return nil, cryoerrors.NewNetworkUnavailable(errors.Wrap(err, "applying reorg buffer"), "")
	}
	if reorgBuffer > latest {
		return nil, nil
	}
	maxAllowed := latest - reorgBuffer
	var out []*chunkpkg.Chunk
	for _, c := range chunks {
		if c.MaxBlock() <= maxAllowed {
			out = append(out, c)
		}
	}
	return out, nil
}
