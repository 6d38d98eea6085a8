package toolchain

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"unicode/utf16"
)

// Java object serialization stream constants used by the kapt apoptions format
const (
	streamMagic     = 0xACED
	streamVersion   = 5
	tcBlockData     = 0x77
	tcBlockDataLong = 0x7A
	maxBlockSize    = 1024
	maxUTFLength    = 65535
)

// EncodeAPOptions encodes processor options the way kapt expects its
// apoptions plugin option: a Java object stream holding writeInt(size)
// followed by writeUTF(key), writeUTF(value) pairs, Base64 encoded. Keys are
// written in sorted order so the encoding is deterministic.
func EncodeAPOptions(options map[string]string) (string, error) {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload bytes.Buffer
	binary.Write(&payload, binary.BigEndian, int32(len(options)))
	for _, k := range keys {
		if err := writeUTF(&payload, k); err != nil {
			return "", err
		}
		if err := writeUTF(&payload, options[k]); err != nil {
			return "", err
		}
	}

	var stream bytes.Buffer
	binary.Write(&stream, binary.BigEndian, uint16(streamMagic))
	binary.Write(&stream, binary.BigEndian, uint16(streamVersion))

	data := payload.Bytes()
	for len(data) > 0 {
		n := len(data)
		if n > maxBlockSize {
			n = maxBlockSize
		}
		if n <= 0xFF {
			stream.WriteByte(tcBlockData)
			stream.WriteByte(byte(n))
		} else {
			stream.WriteByte(tcBlockDataLong)
			binary.Write(&stream, binary.BigEndian, int32(n))
		}
		stream.Write(data[:n])
		data = data[n:]
	}

	return base64.StdEncoding.EncodeToString(stream.Bytes()), nil
}

// DecodeAPOptions reverses EncodeAPOptions
func DecodeAPOptions(encoded string) (map[string]string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAPOptions, err)
	}
	if len(raw) < 4 || binary.BigEndian.Uint16(raw) != streamMagic || binary.BigEndian.Uint16(raw[2:]) != streamVersion {
		return nil, fmt.Errorf("%w: bad stream header", ErrInvalidAPOptions)
	}

	var payload bytes.Buffer
	rest := raw[4:]
	for len(rest) > 0 {
		var n int
		switch rest[0] {
		case tcBlockData:
			if len(rest) < 2 {
				return nil, fmt.Errorf("%w: truncated block header", ErrInvalidAPOptions)
			}
			n = int(rest[1])
			rest = rest[2:]
		case tcBlockDataLong:
			if len(rest) < 5 {
				return nil, fmt.Errorf("%w: truncated block header", ErrInvalidAPOptions)
			}
			n = int(int32(binary.BigEndian.Uint32(rest[1:])))
			rest = rest[5:]
		default:
			return nil, fmt.Errorf("%w: unexpected type code 0x%02x", ErrInvalidAPOptions, rest[0])
		}
		if n < 0 || n > len(rest) {
			return nil, fmt.Errorf("%w: truncated block", ErrInvalidAPOptions)
		}
		payload.Write(rest[:n])
		rest = rest[n:]
	}

	r := bytes.NewReader(payload.Bytes())
	var size int32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAPOptions, err)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size", ErrInvalidAPOptions)
	}

	options := make(map[string]string, size)
	for i := int32(0); i < size; i++ {
		k, err := readUTF(r)
		if err != nil {
			return nil, err
		}
		v, err := readUTF(r)
		if err != nil {
			return nil, err
		}
		options[k] = v
	}
	return options, nil
}

// writeUTF writes a length-prefixed modified UTF-8 string
func writeUTF(buf *bytes.Buffer, s string) error {
	encoded := encodeModifiedUTF8(s)
	if len(encoded) > maxUTFLength {
		return fmt.Errorf("%w: %d bytes", ErrOptionTooLong, len(encoded))
	}
	binary.Write(buf, binary.BigEndian, uint16(len(encoded)))
	buf.Write(encoded)
	return nil
}

func readUTF(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAPOptions, err)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", fmt.Errorf("%w: truncated string: %v", ErrInvalidAPOptions, err)
	}
	return decodeModifiedUTF8(data)
}

// encodeModifiedUTF8 applies Java's DataOutput encoding: NUL as two bytes and
// supplementary characters as two three-byte surrogates
func encodeModifiedUTF8(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, byte(0xC0|(u>>6)), byte(0x80|(u&0x3F)))
		default:
			out = append(out, byte(0xE0|(u>>12)), byte(0x80|((u>>6)&0x3F)), byte(0x80|(u&0x3F)))
		}
	}
	return out
}

func decodeModifiedUTF8(data []byte) (string, error) {
	units := make([]uint16, 0, len(data))
	for i := 0; i < len(data); {
		b := data[i]
		switch {
		case b < 0x80:
			units = append(units, uint16(b))
			i++
		case b&0xE0 == 0xC0:
			if i+1 >= len(data) {
				return "", fmt.Errorf("%w: truncated character", ErrInvalidAPOptions)
			}
			units = append(units, uint16(b&0x1F)<<6|uint16(data[i+1]&0x3F))
			i += 2
		case b&0xF0 == 0xE0:
			if i+2 >= len(data) {
				return "", fmt.Errorf("%w: truncated character", ErrInvalidAPOptions)
			}
			units = append(units, uint16(b&0x0F)<<12|uint16(data[i+1]&0x3F)<<6|uint16(data[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("%w: malformed byte 0x%02x", ErrInvalidAPOptions, b)
		}
	}
	return string(utf16.Decode(units)), nil
}
