package pixelframe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/bodgit/pixelframe/catalog"
	"github.com/bodgit/pixelframe/ppm"
	"github.com/bodgit/pixelframe/preview"
)

// ErrNoCatalog is returned when the catalog is needed but was not opened
var ErrNoCatalog = errors.New("no catalog configured")

// Codec runs the encode and decode pipelines over files
type Codec struct {
	catalog *catalog.Catalog
	logger  *log.Logger
}

// New returns a Codec. If cat is non-nil every container written is
// recorded in it.
func New(cat *catalog.Catalog, logger *log.Logger) *Codec {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Codec{
		catalog: cat,
		logger:  logger,
	}
}

func readFile(file string) ([]byte, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return b, nil
}

// writeFile replaces file with b. The data is written to a temporary file in
// the same directory which is only renamed into place once complete.
func writeFile(file string, b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating %s: %w", file, err)
	}
	tmp := f.Name()

	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", file, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", file, err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("setting mode of %s: %w", file, err)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s into place: %w", file, err)
	}

	return nil
}

// EncodeFile encodes the contents of in into the container out
func (c *Codec) EncodeFile(in, out string, opts *EncodeOptions) error {
	payload, err := readFile(in)
	if err != nil {
		return err
	}

	e, err := encode(payload, opts)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", in, err)
	}

	if err := writeFile(out, e.container); err != nil {
		return err
	}

	c.logger.Printf("Encoded \"%s\" (%d bytes) into \"%s\" (%dx%d, flags 0x%02x)\n", in, len(payload), out, e.canvas.Width, e.canvas.Height, e.header.Flags)

	if c.catalog == nil {
		return nil
	}

	path, err := filepath.Abs(out)
	if err != nil {
		return err
	}

	return c.catalog.Record(catalog.Entry{
		Path:     path,
		Digest:   catalog.Digest(e.container),
		Width:    e.canvas.Width,
		Height:   e.canvas.Height,
		Size:     int64(len(e.container)),
		Flags:    e.header.Flags,
		Length:   e.header.Length,
		Checksum: e.header.Checksum,
		Signed:   opts != nil && opts.SigningKey != nil,
	})
}

// DecodeFile decodes the container in into the payload file out. Nothing is
// written unless the payload was recovered.
func (c *Codec) DecodeFile(in, out string, opts *DecodeOptions) error {
	b, err := readFile(in)
	if err != nil {
		return err
	}

	payload, err := Decode(b, opts)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", in, err)
	}

	if err := writeFile(out, payload); err != nil {
		return err
	}

	c.logger.Printf("Decoded \"%s\" into \"%s\" (%d bytes)\n", in, out, len(payload))

	return nil
}

// PreviewFile renders the container in as the GIF out
func (c *Codec) PreviewFile(in, out string, opts *preview.Options) error {
	b, err := readFile(in)
	if err != nil {
		return err
	}

	m, _, err := ppm.Unwrap(b)
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}

	w := new(bytes.Buffer)
	if err := preview.Encode(w, m, opts); err != nil {
		return err
	}

	return writeFile(out, w.Bytes())
}

// Identify looks up the container file in the catalog, returning nil if it
// was not recorded
func (c *Codec) Identify(file string) (*catalog.Entry, error) {
	if c.catalog == nil {
		return nil, ErrNoCatalog
	}

	b, err := readFile(file)
	if err != nil {
		return nil, err
	}

	return c.catalog.Lookup(catalog.Digest(b))
}

// Entries lists every container recorded in the catalog
func (c *Codec) Entries() ([]catalog.Entry, error) {
	if c.catalog == nil {
		return nil, ErrNoCatalog
	}
	return c.catalog.List()
}
