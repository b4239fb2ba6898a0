package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/NodePath81/tlsping/internal/util"
)

// FillerByte is the payload content. The payload exists only to generate
// load; the server is not expected to interpret it.
const FillerByte = 'A'

const fillerBlock = 64 * 1024

// filler is reused for every write so memory stays bounded whatever the
// chunk size.
var filler = func() []byte {
	b := make([]byte, fillerBlock)
	for i := range b {
		b[i] = FillerByte
	}
	return b
}()

var ErrChunkSize = errors.New("chunk size must be > 0")

// writeFiller writes n filler bytes in fixed-size blocks.
func writeFiller(w io.Writer, n int64) error {
	for n > 0 {
		block := filler[:min(n, fillerBlock)]
		written, err := w.Write(block)
		n -= int64(written)
		if err != nil {
			return err
		}
	}
	return nil
}

// ChunkCount returns how many connections a payload of total bytes needs
// when each carries at most chunk bytes. A zero total needs none.
func ChunkCount(total, chunk int64) (int64, error) {
	if total <= 0 {
		return 0, nil
	}
	if chunk <= 0 {
		return 0, ErrChunkSize
	}
	n := total / chunk
	if total%chunk != 0 {
		n++
	}
	return n, nil
}

// Attempt performs one probe attempt. Without payload it is a single
// SendAndRead; otherwise every chunk travels on its own connection, in
// order, the last one carrying the remainder, and the first failing chunk
// ends the attempt.
func Attempt(ctx context.Context, target Target, dataBytes, chunkBytes int64, logger util.Logger) Result {
	start := time.Now()
	if dataBytes <= 0 {
		res := SendAndRead(ctx, target, 0)
		res.Elapsed = time.Since(start)
		return res
	}

	count, err := ChunkCount(dataBytes, chunkBytes)
	if err != nil {
		return Result{Err: err, Elapsed: time.Since(start)}
	}

	var out Result
	remaining := dataBytes
	for i := int64(1); remaining > 0; i++ {
		size := min(remaining, chunkBytes)
		res := SendAndRead(ctx, target, size)
		out.Stage = res.Stage
		if res.TCP != nil {
			out.TCP = res.TCP
		}
		if res.Err != nil {
			out.Err = fmt.Errorf("chunk %d/%d: %w", i, count, res.Err)
			break
		}
		out.BytesRead = res.BytesRead
		out.BytesSent += res.BytesSent
		out.Chunks++
		remaining -= size
		logger.Debug("chunk sent",
			"chunk", i,
			"chunks", count,
			"bytes", size,
			"read", res.BytesRead,
			"elapsed", res.Elapsed)
	}
	out.Elapsed = time.Since(start)
	return out
}
