// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/protocol.go
// Summary: Framed wire codec for the compositor connection.
// Usage: Conn implementations frame every message with this header; the
// engine only ever sees decoded messages.

package protocol

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

const (
	magic      uint32 = 0x57594c01 // "WYL\x01"
	headerSize        = 20
)

// Flag bits for the header Flags byte.
const (
	FlagChecksum uint8 = 0x01
)

// Version is the protocol version implemented by this package.
const Version uint8 = 0

// Header describes the fixed portion of every frame exchanged with the
// compositor.
type Header struct {
	Version    uint8
	Type       MessageType
	Flags      uint8
	Reserved   uint8
	Serial     uint32
	PayloadLen uint32
	Checksum   uint32
}

var (
	ErrInvalidMagic     = errors.New("protocol: invalid magic")
	ErrUnsupportedVer   = errors.New("protocol: unsupported version")
	ErrShortPayload     = errors.New("protocol: payload shorter than declared length")
	ErrChecksumMismatch = errors.New("protocol: checksum mismatch")
	ErrUnknownMessage   = errors.New("protocol: unknown message type")
)

// WriteFrame serialises the header and payload to the provided writer. The
// payload slice is written as-is; callers retain ownership of the buffer.
func WriteFrame(w io.Writer, hdr Header, payload []byte) error {
	hdr.PayloadLen = uint32(len(payload))

	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:], magic)
	buf[4] = hdr.Version
	buf[5] = byte(hdr.Type)
	buf[6] = hdr.Flags
	buf[7] = hdr.Reserved
	binary.LittleEndian.PutUint32(buf[8:12], hdr.Serial)
	binary.LittleEndian.PutUint32(buf[12:16], hdr.PayloadLen)

	checksum := hdr.Checksum
	if hdr.Flags&FlagChecksum != 0 {
		crc := crc32.NewIEEE()
		_, _ = crc.Write(buf[4:16])
		if len(payload) > 0 {
			_, _ = crc.Write(payload)
		}
		checksum = crc.Sum32()
	}
	binary.LittleEndian.PutUint32(buf[16:20], checksum)

	if _, err := w.Write(buf); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads a header and payload from r. The returned payload points
// to a freshly allocated slice sized to the declared payload length.
func ReadFrame(r io.Reader) (Header, []byte, error) {
	var hdr Header
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return hdr, nil, err
	}

	if binary.LittleEndian.Uint32(buf[0:4]) != magic {
		return hdr, nil, ErrInvalidMagic
	}

	hdr.Version = buf[4]
	hdr.Type = MessageType(buf[5])
	hdr.Flags = buf[6]
	hdr.Reserved = buf[7]
	hdr.Serial = binary.LittleEndian.Uint32(buf[8:12])
	hdr.PayloadLen = binary.LittleEndian.Uint32(buf[12:16])
	hdr.Checksum = binary.LittleEndian.Uint32(buf[16:20])

	if hdr.Version != Version {
		return hdr, nil, ErrUnsupportedVer
	}

	payload := make([]byte, hdr.PayloadLen)
	if hdr.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return hdr, nil, ErrShortPayload
			}
			return hdr, nil, err
		}
	}

	if hdr.Flags&FlagChecksum != 0 {
		crc := crc32.NewIEEE()
		_, _ = crc.Write(buf[4:16])
		if len(payload) > 0 {
			_, _ = crc.Write(payload)
		}
		if crc.Sum32() != hdr.Checksum {
			return hdr, nil, ErrChecksumMismatch
		}
	}

	return hdr, payload, nil
}

// WriteMessage encodes m and frames it with a checksummed header.
func WriteMessage(w io.Writer, serial uint32, m Message) error {
	payload, err := m.encode()
	if err != nil {
		return err
	}
	hdr := Header{
		Version: Version,
		Type:    m.MessageType(),
		Flags:   FlagChecksum,
		Serial:  serial,
	}
	return WriteFrame(w, hdr, payload)
}

// ReadMessage reads one frame and decodes its payload into a typed message.
func ReadMessage(r io.Reader) (Header, Message, error) {
	hdr, payload, err := ReadFrame(r)
	if err != nil {
		return hdr, nil, err
	}
	m, err := Decode(hdr.Type, payload)
	return hdr, m, err
}
