package convert

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

const npyAlignment = 64

type npyArray interface {
	[]float32 | []int32
}

func npyDescr(data any) string {
	switch data.(type) {
	case []float32:
		return "<f4"
	case []int32:
		return "<i4"
	}
	panic(fmt.Sprintf("unsupported npy element type %T", data))
}

func npyShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, dim := range shape {
		parts[i] = fmt.Sprint(dim)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// npyHeader builds a version 1.0 header padded so the data starts on a
// 64-byte boundary.
func npyHeader(descr string, shape []int) []byte {
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, npyShape(shape))
	prefix := len(npyMagic) + 2 + 2
	padding := npyAlignment - (prefix+len(dict)+1)%npyAlignment
	if padding == npyAlignment {
		padding = 0
	}
	dict += strings.Repeat(" ", padding) + "\n"

	header := make([]byte, 0, prefix+len(dict))
	header = append(header, npyMagic...)
	header = append(header, 1, 0)
	header = binary.LittleEndian.AppendUint16(header, uint16(len(dict)))
	return append(header, dict...)
}

// writeNpy writes data in C order with the given shape.
func writeNpy[T npyArray](w io.Writer, shape []int, data T) error {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	if n != len(data) {
		return fmt.Errorf("shape %v does not match %d elements", shape, len(data))
	}
	if _, err := w.Write(npyHeader(npyDescr(data), shape)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

func saveNpy[T npyArray](path string, shape []int, data T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	buffered := bufio.NewWriter(file)
	err = writeNpy(buffered, shape, data)
	if err == nil {
		err = buffered.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
