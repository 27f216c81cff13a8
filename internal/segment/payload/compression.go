package payload

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/yocto/internal/errs"
)

// Codec selects the block compression of a payload segment.
type Codec uint8

const (
	// CodecNone stores payloads in a plain indexed list.
	CodecNone Codec = 0
	// CodecLZ4 compresses chunks with LZ4 block compression (fast).
	CodecLZ4 Codec = 1
	// CodecZstd compresses chunks with zstd (better ratio).
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// ParseCodec maps a codec name to its Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "none":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return CodecNone, fmt.Errorf("%w: unknown payload codec %q", errs.ErrMalformed, name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compressChunk compresses data with codec. It reports stored=true and
// returns data itself when compression saves less than 10%.
func compressChunk(data []byte, codec Codec) (out []byte, stored bool, err error) {
	if len(data) == 0 {
		return data, true, nil
	}

	var compressed []byte
	switch codec {
	case CodecLZ4:
		compressed = make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, compressed, nil)
		if err != nil {
			return nil, false, err
		}
		// n == 0 means incompressible
		compressed = compressed[:n]
	case CodecZstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, false, fmt.Errorf("%w: payload codec %s", errs.ErrFormat, codec)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return data, true, nil
	}
	return compressed, false, nil
}

// decompressChunk inflates a compressed chunk into exactly rawSize bytes.
func decompressChunk(data []byte, codec Codec, rawSize int) ([]byte, error) {
	result := make([]byte, rawSize)

	switch codec {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(data, result)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4 chunk: %w", errs.ErrCorrupt, err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("%w: lz4 chunk inflated to %d bytes, want %d", errs.ErrCorrupt, n, rawSize)
		}
		return result, nil

	case CodecZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(data, result[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: zstd chunk: %w", errs.ErrCorrupt, err)
		}
		if len(decoded) != rawSize {
			return nil, fmt.Errorf("%w: zstd chunk inflated to %d bytes, want %d", errs.ErrCorrupt, len(decoded), rawSize)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: payload codec %s", errs.ErrFormat, codec)
	}
}
