package main

import (
	"flag"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/thimc/ledit/linebuf"
)

var (
	promptFlag   = flag.String("p", "", "use `string` as the command prompt")
	suppressFlag = flag.Bool("s", false, "suppress diagnostics")
	debugFlag    = flag.Bool("d", false, "write debug traces to stderr")
	nowrapFlag   = flag.Bool("w", false, "do not wrap searches around the end of the buffer")
	binaryFlag   = flag.Bool("b", false, "do not append a missing final newline on write")
)

func main() {
	flag.Parse()
	if *debugFlag {
		log.SetOutput(os.Stderr)
		linebuf.SetLogOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	opts := []Option{
		WithPrompt(*promptFlag),
		WithSilent(*suppressFlag),
		WithWrap(!*nowrapFlag),
		WithBinary(*binaryFlag),
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		opts = append(opts, WithWidth(w))
	}
	if flag.NArg() > 0 {
		opts = append(opts, WithFile(flag.Arg(0)))
	}
	os.Exit(NewEditor(opts...).Run())
}
