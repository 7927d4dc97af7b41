package transport

import (
	"io"

	"github.com/tanq16/rangefetch/internal/utils"
)

// copyRange streams body into w and checks the byte count against the
// requested range.
func copyRange(body io.Reader, w io.Writer, start, end int64) error {
	expected := end - start + 1
	buffer := make([]byte, utils.CopyBufferSize)
	var received int64
	for {
		bytesRead, err := body.Read(buffer)
		if bytesRead > 0 {
			if _, writeErr := w.Write(buffer[:bytesRead]); writeErr != nil {
				return writeErr
			}
			received += int64(bytesRead)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	if received != expected {
		return &SizeMismatchError{Expected: expected, Received: received}
	}
	return nil
}
