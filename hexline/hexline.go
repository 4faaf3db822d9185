// Package hexline prints binary data as pairs of lines: the printable
// characters on top and the hex bytes underneath.
package hexline

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// DefaultWidth is the number of bytes per line pair.
const DefaultWidth = 32

// Write dumps `length` bytes of `contents` starting at `offset`.
//
// Every line pair is prefixed with its absolute offset.  A short source is not
// an error; the dump simply ends early.
func Write(out io.Writer, contents io.ReaderAt, offset int64, length int64, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}

	buffer := make([]byte, width)
	for position := offset; position < offset+length; position += int64(width) {
		lineLength := int64(width)
		if remaining := offset + length - position; remaining < lineLength {
			lineLength = remaining
		}

		bytesRead, err := contents.ReadAt(buffer[0:lineLength], position)
		if err != nil && err != io.EOF {
			log.Errorf("Could not read at offset %d: %v", position, err)
			return err
		}
		if bytesRead == 0 {
			log.Debugf("Reached the end of the data at offset %d.", position)
			break
		}

		writeLines(out, position, buffer[0:bytesRead])

		if err == io.EOF {
			break
		}
	}
	return nil
}

func writeLines(out io.Writer, position int64, data []byte) {
	for line := 0; line < 2; line++ {
		fmt.Fprintf(out, "0x%08x: ", position)
		for _, currentByte := range data {
			switch line {
			case 0:
				if currentByte < ' ' || currentByte > '~' {
					fmt.Fprint(out, "..")
				} else {
					fmt.Fprintf(out, " %c", currentByte)
				}
			case 1:
				fmt.Fprintf(out, "%02x", currentByte)
			}
		}
		fmt.Fprint(out, "\n")
	}
}
