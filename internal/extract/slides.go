package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slideEntryRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// SlideDecoder extracts text from .pptx slide decks. A pptx file is a zip
// archive whose slides live at ppt/slides/slideN.xml; visible text is carried
// in <a:t> runs. Slides are read in numeric order and text blocks joined with
// newlines.
type SlideDecoder struct{}

func NewSlideDecoder() *SlideDecoder { return &SlideDecoder{} }

func (d *SlideDecoder) Decode(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("slidedecoder: not a pptx archive: %w", err)
	}

	type slideEntry struct {
		num  int
		file *zip.File
	}
	var slides []slideEntry
	for _, f := range zr.File {
		m := slideEntryRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		slides = append(slides, slideEntry{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var blocks []string
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		texts, err := slideTextRuns(s.file)
		if err != nil {
			return "", fmt.Errorf("slidedecoder: slide %d: %w", s.num, err)
		}
		blocks = append(blocks, texts...)
	}
	return strings.Join(blocks, "\n"), nil
}

func slideTextRuns(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var runs []string
	inTextRun := false
	var current strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
				current.Reset()
			}
		case xml.CharData:
			if inTextRun {
				current.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" && inTextRun {
				inTextRun = false
				if s := current.String(); s != "" {
					runs = append(runs, s)
				}
			}
		}
	}
	return runs, nil
}
