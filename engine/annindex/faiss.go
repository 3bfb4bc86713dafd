package annindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	fourccFlatL2 = "IxF2"
	fourccFlatIP = "IxFI"
	fourccIDMap  = "IxMp"
	fourccIDMap2 = "IxM2"

	headerDummy = 1 << 20
	// maxValues bounds allocations driven by counts read from disk.
	maxValues = 1 << 31
)

var le = binary.LittleEndian

// header mirrors the fields written before every index body.
type header struct {
	Dim       int32
	NTotal    int64
	Dummy1    int64
	Dummy2    int64
	IsTrained uint8
	Metric    int32
}

// Load reads an index file from disk.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("annindex: open %s: %w", path, err)
	}
	defer f.Close()

	ix, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("annindex: read %s: %w", path, err)
	}
	return ix, nil
}

// Read decodes an index from r.
func Read(r io.Reader) (*Index, error) {
	fourcc, err := readFourcc(r)
	if err != nil {
		return nil, err
	}
	switch fourcc {
	case fourccFlatL2, fourccFlatIP:
		return readFlat(r, fourcc)
	case fourccIDMap, fourccIDMap2:
		return readIDMap(r)
	default:
		return nil, fmt.Errorf("annindex: unsupported index type %q", fourcc)
	}
}

func readFourcc(r io.Reader) (string, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", fmt.Errorf("annindex: read index type: %w", err)
	}
	return string(b[:]), nil
}

func readHeader(r io.Reader) (header, error) {
	var h header
	if err := binary.Read(r, le, &h); err != nil {
		return h, fmt.Errorf("annindex: read header: %w", err)
	}
	if h.Dim <= 0 {
		return h, fmt.Errorf("annindex: invalid dimension %d", h.Dim)
	}
	if h.NTotal < 0 {
		return h, fmt.Errorf("annindex: invalid vector count %d", h.NTotal)
	}
	if h.Metric > 1 {
		var arg float32
		if err := binary.Read(r, le, &arg); err != nil {
			return h, fmt.Errorf("annindex: read metric argument: %w", err)
		}
	}
	if !Metric(h.Metric).valid() {
		return h, fmt.Errorf("annindex: unsupported metric %s", Metric(h.Metric))
	}
	return h, nil
}

func readFlat(r io.Reader, fourcc string) (*Index, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	want := MetricL2
	if fourcc == fourccFlatIP {
		want = MetricInnerProduct
	}
	if Metric(h.Metric) != want {
		return nil, fmt.Errorf("annindex: %s index declares metric %s", fourcc, Metric(h.Metric))
	}

	var count uint64
	if err := binary.Read(r, le, &count); err != nil {
		return nil, fmt.Errorf("annindex: read code count: %w", err)
	}
	if count != uint64(h.NTotal)*uint64(h.Dim) {
		return nil, fmt.Errorf("annindex: code count %d does not match %d vectors of dim %d", count, h.NTotal, h.Dim)
	}
	if count > maxValues {
		return nil, fmt.Errorf("annindex: code count %d too large", count)
	}
	raw := make([]byte, count*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("annindex: read codes: %w", err)
	}

	dim := int(h.Dim)
	ix := &Index{dim: dim, metric: want, vectors: make([][]float32, h.NTotal)}
	for i := range ix.vectors {
		v := make([]float32, dim)
		for j := range v {
			off := (i*dim + j) * 4
			v[j] = math.Float32frombits(le.Uint32(raw[off:]))
		}
		ix.vectors[i] = v
	}
	return ix, nil
}

func readIDMap(r io.Reader) (*Index, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	fourcc, err := readFourcc(r)
	if err != nil {
		return nil, err
	}
	if fourcc != fourccFlatL2 && fourcc != fourccFlatIP {
		return nil, fmt.Errorf("annindex: unsupported id-mapped index type %q", fourcc)
	}
	ix, err := readFlat(r, fourcc)
	if err != nil {
		return nil, err
	}
	if int64(ix.Len()) != h.NTotal || ix.dim != int(h.Dim) {
		return nil, errors.New("annindex: id map header does not match wrapped index")
	}

	var count uint64
	if err := binary.Read(r, le, &count); err != nil {
		return nil, fmt.Errorf("annindex: read id count: %w", err)
	}
	if count != uint64(ix.Len()) {
		return nil, fmt.Errorf("annindex: id count %d does not match %d vectors", count, ix.Len())
	}
	ids := make([]int64, count)
	if err := binary.Read(r, le, ids); err != nil {
		return nil, fmt.Errorf("annindex: read ids: %w", err)
	}
	ix.ids = ids
	return ix, nil
}

// Write encodes the index to w. Indexes with explicit ids are written as an
// id map wrapping a flat index.
func (ix *Index) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if ix.ids != nil {
		if _, err := bw.WriteString(fourccIDMap); err != nil {
			return err
		}
		if err := ix.writeHeader(bw); err != nil {
			return err
		}
	}
	if err := ix.writeFlat(bw); err != nil {
		return err
	}
	if ix.ids != nil {
		if err := binary.Write(bw, le, uint64(len(ix.ids))); err != nil {
			return err
		}
		if err := binary.Write(bw, le, ix.ids); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save writes the index to a file.
func (ix *Index) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("annindex: create %s: %w", path, err)
	}
	if err := ix.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("annindex: write %s: %w", path, err)
	}
	return f.Close()
}

func (ix *Index) writeHeader(w io.Writer) error {
	return binary.Write(w, le, header{
		Dim:       int32(ix.dim),
		NTotal:    int64(len(ix.vectors)),
		Dummy1:    headerDummy,
		Dummy2:    headerDummy,
		IsTrained: 1,
		Metric:    int32(ix.metric),
	})
}

func (ix *Index) writeFlat(w io.Writer) error {
	fourcc := fourccFlatL2
	if ix.metric == MetricInnerProduct {
		fourcc = fourccFlatIP
	}
	if _, err := io.WriteString(w, fourcc); err != nil {
		return err
	}
	if err := ix.writeHeader(w); err != nil {
		return err
	}
	if err := binary.Write(w, le, uint64(len(ix.vectors)*ix.dim)); err != nil {
		return err
	}
	for _, v := range ix.vectors {
		if err := binary.Write(w, le, v); err != nil {
			return err
		}
	}
	return nil
}
