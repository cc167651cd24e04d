package keyindex

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

const (
	blobVersion  = 1
	encodingNone = ""
	encodingZstd = "zstd"

	// maxPackedSize caps the decompressed size of a packed key list.
	maxPackedSize = 256 << 20
)

// envelope is the serialized form of a bucket index.
type envelope struct {
	Version  int      `cbor:"v"`
	Encoding string   `cbor:"enc"`
	Keys     []string `cbor:"keys,omitempty"`
	Packed   []byte   `cbor:"packed,omitempty"`
}

var (
	encMode     cbor.EncMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("keyindex: CBOR encoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("keyindex: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPackedSize))
	if err != nil {
		panic("keyindex: zstd decoder initialization failed: " + err.Error())
	}
}

// encodeBlob serializes records. Lists longer than threshold are packed and
// compressed; a threshold <= 0 disables compression.
func encodeBlob(records []Record, threshold int) ([]byte, error) {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Compound()
	}

	env := envelope{Version: blobVersion, Encoding: encodingNone, Keys: keys}
	if threshold > 0 && len(keys) > threshold {
		raw, err := encMode.Marshal(keys)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key list: %w", err)
		}
		env = envelope{
			Version:  blobVersion,
			Encoding: encodingZstd,
			Packed:   zstdEncoder.EncodeAll(raw, nil),
		}
	}

	data, err := encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	return data, nil
}

// decodeBlob parses a blob produced by encodeBlob.
func decodeBlob(data []byte) ([]Record, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	if env.Version != blobVersion {
		return nil, fmt.Errorf("unsupported index version %d", env.Version)
	}

	keys := env.Keys
	switch env.Encoding {
	case encodingNone:
	case encodingZstd:
		raw, err := zstdDecoder.DecodeAll(env.Packed, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress key list: %w", err)
		}
		keys = nil
		if err := cbor.Unmarshal(raw, &keys); err != nil {
			return nil, fmt.Errorf("failed to decode key list: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported index encoding %q", env.Encoding)
	}

	records := make([]Record, len(keys))
	for i, k := range keys {
		records[i] = recordFromCompound(k)
	}
	return records, nil
}
