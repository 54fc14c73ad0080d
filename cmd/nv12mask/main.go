// Command nv12mask applies a mask configuration to a raw NV12 file, one
// frame at a time.
//
//	nv12mask -in capture.nv12 -out masked.nv12 -width 1280 -height 720 -mask "0:0,200:0,200:100,0:100"
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/logging"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/mask"
)

func main() {
	in := flag.String("in", "", "Input raw NV12 file (required, - for stdin)")
	out := flag.String("out", "", "Output file (required, - for stdout)")
	width := flag.Int("width", 0, "Frame width in pixels (even)")
	height := flag.Int("height", 0, "Frame height in pixels (even)")
	maskText := flag.String("mask", "", "Mask configuration, e.g. 0:0,100:0,100:100;...")
	maskFile := flag.String("mask-file", "", "Read the mask configuration from a file instead")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log := logging.New(level)

	if *in == "" || *out == "" {
		fmt.Fprintf(os.Stderr, "Error: -in and -out are required\n\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	geometry, err := mask.NewGeometry(*width, *height)
	if err != nil {
		log.Fatal().Err(err).Int("width", *width).Int("height", *height).Msg("invalid geometry")
	}

	text := *maskText
	if *maskFile != "" {
		data, err := os.ReadFile(*maskFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read mask file")
		}
		text = strings.TrimSpace(string(data))
	}
	set := mask.Decode(text)

	if err := run(*in, *out, geometry, set, log); err != nil {
		log.Fatal().Err(err).Msg("masking failed")
	}
}

func run(inPath, outPath string, g mask.Geometry, set mask.MaskSet, log zerolog.Logger) error {
	var r io.Reader = os.Stdin
	if inPath != "-" {
		f, err := os.Open(inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var w io.Writer = os.Stdout
	var outFile *os.File
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		outFile = f
		w = f
	}

	bw := bufio.NewWriter(w)
	frames, err := maskStream(bufio.NewReader(r), bw, g, set)
	if flushErr := bw.Flush(); err == nil {
		err = flushErr
	}
	if outFile != nil {
		if closeErr := outFile.Close(); err == nil {
			err = closeErr
		}
	}

	log.Info().
		Int("frames", frames).
		Str("geometry", g.String()).
		Int("polygons", len(set)).
		Msg("masking finished")
	return err
}

// maskStream masks consecutive frames from r into w. A trailing partial
// frame is an error.
func maskStream(r io.Reader, w io.Writer, g mask.Geometry, set mask.MaskSet) (int, error) {
	buf := make([]byte, g.FrameSize())
	frames := 0
	for {
		_, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("frame %d: %w", frames, err)
		}

		if err := mask.Apply(g, set, buf); err != nil {
			return frames, fmt.Errorf("frame %d: %w", frames, err)
		}
		if _, err := w.Write(buf); err != nil {
			return frames, err
		}
		frames++
	}
}
