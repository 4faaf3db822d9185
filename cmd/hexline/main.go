package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tekkamanendless/nvr-segment-extractor/hexline"

	log "github.com/sirupsen/logrus"
)

func main() {
	offset := flag.Int64("offset", 0, "The byte offset to start at.")
	byteLimit := flag.Int64("byte-limit", 0, "The number of bytes to read.  If this is 0, then the rest of the file will be read.")
	width := flag.Int("width", hexline.DefaultWidth, "The number of bytes per line.")

	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Printf("Missing filename.\n")
		os.Exit(1)
	}
	if len(flag.Args()) > 1 {
		fmt.Printf("Too many arguments.\n")
		os.Exit(1)
	}
	filename := flag.Args()[0]

	log.Infof("Offset: %d", *offset)
	log.Infof("Byte limit: %d", *byteLimit)
	log.Infof("Filename: %s", filename)

	handle, err := os.Open(filename)
	if err != nil {
		fmt.Printf("Could not open file '%s': %v\n", filename, err)
		os.Exit(1)
	}
	defer handle.Close()

	length := *byteLimit
	if length <= 0 {
		fileInfo, err := handle.Stat()
		if err != nil {
			fmt.Printf("Could not stat file '%s': %v\n", filename, err)
			os.Exit(1)
		}
		length = fileInfo.Size() - *offset
	}

	err = hexline.Write(os.Stdout, handle, *offset, length, *width)
	if err != nil {
		fmt.Printf("Could not read file: %v\n", err)
		os.Exit(1)
	}
}
