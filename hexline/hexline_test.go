package hexline

import (
	"bytes"
	"strings"
	"testing"
)

func TestWrite(t *testing.T) {
	contents := bytes.NewReader([]byte("\x00\x00\x01\xBAHello"))

	var buffer bytes.Buffer
	if err := Write(&buffer, contents, 0, 9, 4); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := strings.Join([]string{
		"0x00000000: ........",
		"0x00000000: 000001ba",
		"0x00000004:  H e l l",
		"0x00000004: 48656c6c",
		"0x00000008:  o",
		"0x00000008: 6f",
		"",
	}, "\n")
	if buffer.String() != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, buffer.String())
	}
}

func TestWriteShortSource(t *testing.T) {
	contents := bytes.NewReader([]byte("abcdef"))

	var buffer bytes.Buffer
	if err := Write(&buffer, contents, 4, 100, 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := "0x00000004:  e f\n0x00000004: 6566\n"
	if buffer.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buffer.String())
	}
}
