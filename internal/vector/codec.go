package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Limits on header fields read back from an embeddings file.
const (
	MaxDimensions = 1 << 16
	MaxIDLength   = 1 << 12

	// rows preallocated before any row has been read
	initialRowCap = 1024
)

// ErrCorruptEmbeddings is returned when an embeddings file header or row
// length is out of range.
var ErrCorruptEmbeddings = errors.New("corrupt embeddings file")

// Embedding is one stored row: the record ID it belongs to and its vector.
type Embedding struct {
	ID     string
	Vector []float32
}

// WriteFile stores embeddings at path. Format: dimension (4), n (4), then per
// row: idLen (4), id bytes, vector (dimension*4 bytes), all little endian.
func WriteFile(path string, rows []Embedding) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create embeddings dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create embeddings file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := Encode(w, rows); err != nil {
		return err
	}
	return w.Flush()
}

// Encode writes rows in the embeddings file format.
func Encode(w io.Writer, rows []Embedding) error {
	dim := 0
	if len(rows) > 0 {
		dim = len(rows[0].Vector)
	}
	if dim > MaxDimensions {
		return fmt.Errorf("%w: %d values exceed %d", ErrDimensionMismatch, dim, MaxDimensions)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dim)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(rows))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, row := range rows {
		if len(row.Vector) != dim {
			return fmt.Errorf("%w: row %d has %d values, expected %d", ErrDimensionMismatch, i, len(row.Vector), dim)
		}
		id := []byte(row.ID)
		if len(id) > MaxIDLength {
			return fmt.Errorf("row %d: id is %d bytes, limit %d", i, len(id), MaxIDLength)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := w.Write(id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(Float32sToBytes(row.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// ReadFile loads embeddings written by WriteFile.
func ReadFile(path string) ([]Embedding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embeddings file: %w", err)
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// Decode reads rows in the embeddings file format.
func Decode(r io.Reader) ([]Embedding, error) {
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	switch {
	case dim > MaxDimensions:
		return nil, fmt.Errorf("%w: %d dimensions", ErrCorruptEmbeddings, dim)
	case dim == 0 && n > 0:
		return nil, fmt.Errorf("%w: %d rows with zero dimensions", ErrCorruptEmbeddings, n)
	}
	// n is untrusted until the rows are actually read.
	rows := make([]Embedding, 0, min(n, initialRowCap))
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("read row %d id len: %w", i, err)
		}
		if idLen > MaxIDLength {
			return nil, fmt.Errorf("%w: row %d id length %d", ErrCorruptEmbeddings, i, idLen)
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		rows = append(rows, Embedding{ID: string(id), Vector: BytesToFloat32s(buf)})
	}
	return rows, nil
}

// Float32sToBytes encodes a vector as little-endian float32 bytes.
func Float32sToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

// BytesToFloat32s decodes little-endian float32 bytes into a new slice.
func BytesToFloat32s(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
