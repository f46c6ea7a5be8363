package svo

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// xzMagic are the first bytes of an xz stream, used to detect a compressed
// artifact on read without relying on a file extension.
var xzMagic = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}

// OpenArtifact opens an SVO file for streaming read, transparently
// decompressing it if it begins with the xz magic header.
func OpenArtifact(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("svo: open %s: %w", path, err)
	}

	br := bufio.NewReader(f)
	header, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("svo: peek %s: %w", path, err)
	}

	if len(header) == len(xzMagic) && bytesEqual(header, xzMagic) {
		xr, err := xz.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("svo: xz header in %s: %w", path, err)
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: xr, Closer: f}, nil
	}

	return struct {
		io.Reader
		io.Closer
	}{Reader: br, Closer: f}, nil
}

// CreateArtifact creates an SVO output file, xz-compressing the stream when
// compress is true.
func CreateArtifact(path string, compress bool) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("svo: create %s: %w", path, err)
	}
	if !compress {
		return f, nil
	}

	xw, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("svo: xz writer for %s: %w", path, err)
	}
	return &xzWriteCloser{w: xw, f: f}, nil
}

type xzWriteCloser struct {
	w *xz.Writer
	f *os.File
}

func (x *xzWriteCloser) Write(p []byte) (int, error) { return x.w.Write(p) }

func (x *xzWriteCloser) Close() error {
	if err := x.w.Close(); err != nil {
		x.f.Close()
		return err
	}
	return x.f.Close()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
