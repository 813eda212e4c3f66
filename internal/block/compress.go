package block

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	strataerrors "github.com/nilotpaldev/strata/pkg/errors"
	"github.com/nilotpaldev/strata/pkg/options"
)

// compress encodes src under the named compression kind. CompressionNone
// returns src unchanged. CompressionLZ4 is mapped onto s2's block framing —
// see DESIGN.md's Open Question on LZ4 — since the retrieval pack's
// dependency surface carries klauspost/compress (zstd/s2/flate) but no LZ4
// binding.
func compress(kind options.Compression, src []byte) ([]byte, error) {
	switch kind {
	case options.CompressionNone:
		return src, nil

	case options.CompressionLZ4:
		return s2.Encode(nil, src), nil

	case options.CompressionMiniz:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, strataerrors.NewDeserializeError(err, "miniz_writer")
		}
		if _, err := w.Write(src); err != nil {
			return nil, strataerrors.NewDeserializeError(err, "miniz_write")
		}
		if err := w.Close(); err != nil {
			return nil, strataerrors.NewDeserializeError(err, "miniz_close")
		}
		return buf.Bytes(), nil

	case options.CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, strataerrors.NewDeserializeError(err, "zstd_writer")
		}
		defer enc.Close()
		return enc.EncodeAll(src, nil), nil

	default:
		return nil, strataerrors.NewSerializeError(nil, "compression_kind").
			WithDetail("kind", kind)
	}
}

// decompress inflates src, which was compressed under kind, expecting
// exactly uncompressedSize bytes of output.
func decompress(kind options.Compression, src []byte, uncompressedSize int) ([]byte, error) {
	switch kind {
	case options.CompressionNone:
		return src, nil

	case options.CompressionLZ4:
		dst := make([]byte, 0, uncompressedSize)
		out, err := s2.Decode(dst, src)
		if err != nil {
			return nil, strataerrors.NewDecompressError(err, "lz4")
		}
		return out, nil

	case options.CompressionMiniz:
		r := flate.NewReader(bytes.NewReader(src))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, strataerrors.NewDecompressError(err, "miniz")
		}
		return out, nil

	case options.CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, strataerrors.NewDecompressError(err, "zstd")
		}
		defer dec.Close()
		out, err := dec.DecodeAll(src, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, strataerrors.NewDecompressError(err, "zstd")
		}
		return out, nil

	default:
		return nil, strataerrors.NewDecompressError(nil, "unknown").
			WithDetail("kind", kind)
	}
}
