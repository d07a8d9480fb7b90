package main

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// consoleEncoding resolves the --encoding flag. A nil encoding means UTF-8
// passthrough.
func consoleEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "cp437", "ibm437":
		// The code page of the kernel's VGA text console.
		return charmap.CodePage437, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q (want utf-8 or cp437)", name)
	}
}

// consoleWriter wraps w so that text is transcoded to the console encoding.
// The returned close func flushes the transcoder and must be called.
func consoleWriter(w io.Writer) (io.Writer, func() error, error) {
	enc, err := consoleEncoding(encodingName)
	if err != nil {
		return nil, nil, err
	}
	if enc == nil {
		return w, func() error { return nil }, nil
	}
	tw := encoding.ReplaceUnsupported(enc.NewEncoder()).Writer(w)
	closeFn := func() error {
		if c, ok := tw.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
	return tw, closeFn, nil
}
