package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/bodgit/pixelframe"
	"github.com/bodgit/pixelframe/canvas"
	"github.com/bodgit/pixelframe/catalog"
	"github.com/bodgit/pixelframe/frame"
	"github.com/bodgit/pixelframe/ppm"
	"github.com/bodgit/pixelframe/preview"
	"github.com/bodgit/pixelframe/sign"
	"github.com/urfave/cli/v2"
)

const (
	exitUsage   = 1
	exitCorrupt = 2
	exitIO      = 3
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

var errUsage = errors.New("usage error")

func exitCode(err error) int {
	switch {
	case errors.Is(err, frame.ErrCorrupted),
		errors.Is(err, frame.ErrTruncated),
		errors.Is(err, ppm.ErrMalformed),
		errors.Is(err, sign.ErrBadSignature),
		errors.Is(err, sign.ErrUnsigned):
		return exitCorrupt
	case errors.Is(err, errUsage),
		errors.Is(err, canvas.ErrInvalidWidth),
		errors.Is(err, sign.ErrInvalidKey),
		errors.Is(err, preview.ErrInvalidOptions),
		errors.Is(err, pixelframe.ErrNoCatalog):
		return exitUsage
	default:
		return exitIO
	}
}

func fail(err error) error {
	return cli.Exit(err, exitCode(err))
}

func usage(c *cli.Context, format string, a ...interface{}) error {
	_ = cli.ShowCommandHelp(c, c.Command.Name)
	return fail(fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, a...)))
}

// newCodec returns a Codec for the command along with a function to release
// it, opening the catalog if one was configured.
func newCodec(c *cli.Context) (*pixelframe.Codec, func(), error) {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(c.App.ErrWriter)
	}

	if c.String("db") == "" {
		return pixelframe.New(nil, logger), func() {}, nil
	}

	cat, err := catalog.Open(c.String("db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening catalog %s: %w", c.String("db"), err)
	}

	return pixelframe.New(cat, logger), func() { cat.Close() }, nil
}

func encodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "width",
			EnvVars: []string{"PIXELFRAME_WIDTH"},
			Value:   pixelframe.DefaultWidth,
			Usage:   "canvas width in pixels",
		},
		&cli.BoolFlag{
			Name:  "repeat-header",
			Usage: "store a redundant copy of the frame header",
		},
		&cli.StringFlag{
			Name:  "compress",
			Value: frame.None.String(),
			Usage: "payload compression: none, lz4 or zstd",
		},
		&cli.StringFlag{
			Name:  "sign",
			Usage: "sign the canvas with the secret key in `FILE`",
		},
	}
}

func encodeOptions(c *cli.Context) (*pixelframe.EncodeOptions, error) {
	if c.Int("width") < 1 {
		return nil, usage(c, "width must be at least 1, got %d", c.Int("width"))
	}

	compression, err := frame.ParseCompression(c.String("compress"))
	if err != nil {
		return nil, usage(c, "%v", err)
	}

	opts := &pixelframe.EncodeOptions{
		Width:       c.Int("width"),
		Redundant:   c.Bool("repeat-header"),
		Compression: compression,
	}

	if file := c.String("sign"); file != "" {
		if opts.SigningKey, err = sign.LoadSecretKey(file); err != nil {
			return nil, fail(err)
		}
	}

	return opts, nil
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()

	app.Name = "pixelframe"
	app.Usage = "Pack arbitrary files into the pixels of a PPM image"
	app.Version = "1.0.0"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.HideHelpCommand = true
	app.ExitErrHandler = func(*cli.Context, error) {}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"PIXELFRAME_DB"},
			Usage:   "record containers in the catalog at `PATH`",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Action = func(c *cli.Context) error {
		_ = cli.ShowAppHelp(c)
		if c.NArg() > 0 {
			return fail(fmt.Errorf("%w: unknown command %q", errUsage, c.Args().First()))
		}
		return fail(fmt.Errorf("%w: no command given", errUsage))
	}

	app.Commands = []*cli.Command{
		{
			Name:      "encode",
			Usage:     "Encode a file into a PPM image",
			ArgsUsage: "INPUT OUTPUT",
			Flags:     encodeFlags(),
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return usage(c, "expected 2 arguments, got %d", c.NArg())
				}

				opts, err := encodeOptions(c)
				if err != nil {
					return err
				}

				codec, done, err := newCodec(c)
				if err != nil {
					return fail(err)
				}
				defer done()

				if err := codec.EncodeFile(c.Args().Get(0), c.Args().Get(1), opts); err != nil {
					return fail(err)
				}

				return nil
			},
		},
		{
			Name:      "decode",
			Usage:     "Recover a file from a PPM image",
			ArgsUsage: "INPUT OUTPUT",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "verify",
					Usage: "require a signature made by the public key in `FILE`",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return usage(c, "expected 2 arguments, got %d", c.NArg())
				}

				opts := new(pixelframe.DecodeOptions)
				if file := c.String("verify"); file != "" {
					key, err := sign.LoadPublicKey(file)
					if err != nil {
						return fail(err)
					}
					opts.VerifyKey = key
				}

				codec, done, err := newCodec(c)
				if err != nil {
					return fail(err)
				}
				defer done()

				if err := codec.DecodeFile(c.Args().Get(0), c.Args().Get(1), opts); err != nil {
					return fail(err)
				}

				return nil
			},
		},
		{
			Name:      "batch",
			Usage:     "Encode every file below a directory",
			ArgsUsage: "DIRECTORY",
			Flags:     encodeFlags(),
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return usage(c, "expected 1 argument, got %d", c.NArg())
				}

				opts, err := encodeOptions(c)
				if err != nil {
					return err
				}

				codec, done, err := newCodec(c)
				if err != nil {
					return fail(err)
				}
				defer done()

				if err := codec.Batch(c.Args().First(), opts); err != nil {
					return fail(err)
				}

				return nil
			},
		},
		{
			Name:      "keygen",
			Usage:     "Generate an Ed25519 keypair for signing",
			ArgsUsage: "SECRET PUBLIC",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return usage(c, "expected 2 arguments, got %d", c.NArg())
				}

				public, private, err := sign.GenerateKey()
				if err != nil {
					return fail(err)
				}

				if err := sign.SaveKeypair(c.Args().Get(0), c.Args().Get(1), public, private); err != nil {
					return fail(err)
				}

				return nil
			},
		},
		{
			Name:      "preview",
			Usage:     "Render a PPM image as a GIF",
			ArgsUsage: "INPUT OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "scale",
					Value: 1,
					Usage: "enlarge each pixel by this factor",
				},
				&cli.IntFlag{
					Name:  "colors",
					Value: 256,
					Usage: "number of palette colors",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return usage(c, "expected 2 arguments, got %d", c.NArg())
				}

				codec, done, err := newCodec(c)
				if err != nil {
					return fail(err)
				}
				defer done()

				if err := codec.PreviewFile(c.Args().Get(0), c.Args().Get(1), &preview.Options{
					NumColors: c.Int("colors"),
					Scale:     c.Int("scale"),
				}); err != nil {
					return fail(err)
				}

				return nil
			},
		},
		{
			Name:  "catalog",
			Usage: "List the containers recorded in the catalog",
			Action: func(c *cli.Context) error {
				codec, done, err := newCodec(c)
				if err != nil {
					return fail(err)
				}
				defer done()

				entries, err := codec.Entries()
				if err != nil {
					return fail(err)
				}

				w := tabwriter.NewWriter(c.App.Writer, 0, 8, 1, ' ', 0)
				for _, e := range entries {
					printEntry(w, &e)
				}
				return w.Flush()
			},
		},
		{
			Name:      "identify",
			Usage:     "Look up a PPM image in the catalog",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return usage(c, "expected 1 argument, got %d", c.NArg())
				}

				codec, done, err := newCodec(c)
				if err != nil {
					return fail(err)
				}
				defer done()

				e, err := codec.Identify(c.Args().First())
				if err != nil {
					return fail(err)
				}
				if e == nil {
					return cli.Exit(fmt.Sprintf("%s: not in catalog", c.Args().First()), exitUsage)
				}

				w := tabwriter.NewWriter(c.App.Writer, 0, 8, 1, ' ', 0)
				printEntry(w, e)
				return w.Flush()
			},
		},
	}

	return app
}

func printEntry(w io.Writer, e *catalog.Entry) {
	signed := ""
	if e.Signed {
		signed = "signed"
	}
	fmt.Fprintf(w, "%s\t%dx%d\t%d\tflags=0x%02x\tlength=%d\tcrc=%08x\t%s\t%s\n", e.Path, e.Width, e.Height, e.Size, e.Flags, e.Length, e.Checksum, e.Digest[:16], signed)
}

func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)

	err := app.Run(reorderArgs(app, args))
	if err == nil {
		return 0
	}

	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := ec.Error(); msg != "" {
			fmt.Fprintf(stderr, "%s: %s\n", app.Name, msg)
		}
		return ec.ExitCode()
	}

	fmt.Fprintf(stderr, "%s: %v\n", app.Name, err)
	return exitUsage
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
