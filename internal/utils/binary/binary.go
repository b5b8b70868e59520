// internal/utils/binary/binary.go
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrShortBuffer возвращается при чтении за границей данных аккаунта.
var ErrShortBuffer = errors.New("account data too short")

// maxStringLen ограничивает длину borsh-строки, чтобы битые данные не приводили к огромной аллокации.
const maxStringLen = 10 * 1024

// Reader последовательно читает little-endian / borsh поля из данных аккаунта.
// После первой ошибки все последующие чтения возвращают нулевые значения, ошибка доступна через Err.
type Reader struct {
	data   []byte
	offset int
	err    error
}

// NewReader создаёт Reader, начинающий чтение с offset.
func NewReader(data []byte, offset int) *Reader {
	return &Reader{data: data, offset: offset}
}

// Err возвращает первую ошибку чтения.
func (r *Reader) Err() error {
	return r.err
}

// Offset возвращает текущую позицию.
func (r *Reader) Offset() int {
	return r.offset
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.offset+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.offset, len(r.data))
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

// ReadUint8 reads a uint8 (byte)
func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadBool reads a boolean (0 = false, non-zero = true)
func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadUint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadPubKey reads a Solana public key
func (r *Reader) ReadPubKey() solana.PublicKey {
	b := r.take(32)
	if b == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

// ReadString reads a borsh string: u32 length followed by UTF-8 bytes
func (r *Reader) ReadString() string {
	n := r.ReadUint32()
	if r.err == nil && n > maxStringLen {
		r.err = fmt.Errorf("string length %d exceeds limit", n)
		return ""
	}
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// ReadOptionUint64 reads a borsh Option<u64>
func (r *Reader) ReadOptionUint64() (uint64, bool) {
	if !r.ReadBool() {
		return 0, false
	}
	return r.ReadUint64(), r.err == nil
}
