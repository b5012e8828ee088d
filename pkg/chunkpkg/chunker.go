package chunkpkg

import "go.uber.org/zap"

// PartitionOptions controls how resolved block-spec elements are turned
// into the final ordered chunk list.
type PartitionOptions struct {
	// ChunkSize is the maximum number of blocks per output chunk.
	ChunkSize uint64
	// NChunks, when non-zero, takes precedence over ChunkSize.
	NChunks uint64
	// Align rounds chunk boundaries to multiples of ChunkSize, dropping
	// any chunk left empty by the rounding.
	Align bool
}

// Partition applies alignment and size/count splitting to each resolved
// block-spec element independently and concatenates the results in order,
// mirroring postprocess_block_chunks: align first, then split by n_chunks
// (if set, it wins the tie-break) else chunk_size.
func Partition(elements []*Chunk, opts PartitionOptions, logger *zap.Logger) []*Chunk {
	var out []*Chunk
	for _, el := range elements {
		working := el
		if opts.Align {
			aligned, ok := working.Align(opts.ChunkSize)
			if !ok {
				if logger != nil {
					logger.Sugar().Warnw("dropping chunk shorter than one alignment unit",
						"min_block", working.MinBlock(), "max_block", working.MaxBlock(), "chunk_size", opts.ChunkSize)
				}
				continue
			}
			working = aligned
		}
		switch {
		case opts.NChunks > 0:
			out = append(out, working.SubchunkByCount(opts.NChunks)...)
		case opts.ChunkSize > 0:
			out = append(out, working.SubchunkBySize(opts.ChunkSize)...)
		default:
			out = append(out, working)
		}
	}
	return out
}

// StubWidth returns the zero-padding width needed so that every chunk's
// Stub() aligns on the widest MaxBlock in the list.
func StubWidth(chunks []*Chunk) int {
	if len(chunks) == 0 {
		return 1
	}
	max := MaxBlockOf(chunks)
	width := 1
	for max >= 10 {
		max /= 10
		width++
	}
	if width < 8 {
		width = 8
	}
	return width
}
