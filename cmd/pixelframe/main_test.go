package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/pixelframe"
	"github.com/bodgit/pixelframe/canvas"
	"github.com/bodgit/pixelframe/frame"
	"github.com/bodgit/pixelframe/ppm"
	"github.com/bodgit/pixelframe/preview"
	"github.com/bodgit/pixelframe/sign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := run(append([]string{"pixelframe"}, args...), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

// clearEnv unsets any configuration inherited from the environment
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PIXELFRAME_DB", "PIXELFRAME_WIDTH"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeInput(t *testing.T, dir, name string, b []byte) string {
	t.Helper()
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, b, 0644))
	return file
}

func TestRoundTrip(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	payload := bytes.Repeat([]byte("hello world\n"), 10)
	in := writeInput(t, dir, "in.txt", payload)
	enc := filepath.Join(dir, "out.ppm")
	out := filepath.Join(dir, "out.txt")

	code, _, stderr := runCommand(t, "encode", "--repeat-header", in, enc)
	require.Equal(t, 0, code, stderr)

	b, err := os.ReadFile(enc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("P6\n256 1\n255\n")))

	code, _, stderr = runCommand(t, "decode", enc, out)
	require.Equal(t, 0, code, stderr)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFlagsAfterArguments(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	payload := bytes.Repeat([]byte{0xaa}, 500)
	in := writeInput(t, dir, "in", payload)
	enc := filepath.Join(dir, "in.ppm")
	out := filepath.Join(dir, "out")

	code, _, stderr := runCommand(t, "encode", in, enc, "--width", "8", "--repeat-header", "--compress=zstd")
	require.Equal(t, 0, code, stderr)

	b, err := os.ReadFile(enc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("P6\n8 ")))

	code, _, stderr = runCommand(t, "decode", enc, out, "-v")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "Decoded")

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	db := filepath.Join(dir, "catalog.db")
	code, _, stderr = runCommand(t, "encode", in, enc, "--db", db)
	require.Equal(t, 0, code, stderr)
	code, stdout, stderr := runCommand(t, "identify", enc, "--db="+db)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, filepath.Base(enc))
}

func TestDecodeFailures(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()

	b, err := pixelframe.Encode([]byte("some payload"), nil)
	require.NoError(t, err)
	b[len(b)-256*3+5] ^= 0xff

	tables := []struct {
		name  string
		input []byte
		code  int
	}{
		{"corrupted", b, exitCorrupt},
		{"not P6", []byte("P3\n1 1\n255\n0 0 0\n"), exitCorrupt},
		{"short canvas", []byte("P6\n2 2\n255\n\x00\x00"), exitCorrupt},
		{"empty", []byte{}, exitCorrupt},
	}

	for i, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			in := writeInput(t, dir, fmt.Sprintf("in%d.ppm", i), table.input)
			out := filepath.Join(dir, fmt.Sprintf("out%d", i))

			code, _, stderr := runCommand(t, "decode", in, out)
			assert.Equal(t, table.code, code)
			assert.NotEmpty(t, stderr)
			assert.NoFileExists(t, out)
		})
	}

	code, _, _ := runCommand(t, "decode", filepath.Join(dir, "missing.ppm"), filepath.Join(dir, "out"))
	assert.Equal(t, exitIO, code)
	assert.NoFileExists(t, filepath.Join(dir, "out"))
}

func TestUsage(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	in := writeInput(t, dir, "in", []byte("data"))
	out := filepath.Join(dir, "out.ppm")

	b, err := pixelframe.Encode([]byte("data"), nil)
	require.NoError(t, err)
	enc := writeInput(t, dir, "in.ppm", b)

	tables := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"missing arguments", []string{"encode", in}},
		{"too many arguments", []string{"decode", in, out, out}},
		{"zero width", []string{"encode", "--width", "0", in, out}},
		{"negative width", []string{"encode", in, out, "--width=-3"}},
		{"bad width", []string{"encode", "--width", "abc", in, out}},
		{"huge width", []string{"encode", "--width", "4611686018427387903", in, out}},
		{"unknown compression", []string{"encode", "--compress", "gzip", in, out}},
		{"unknown flag", []string{"encode", "--frobnicate", in, out}},
		{"bad scale", []string{"preview", "--scale", "0", enc, out}},
		{"bad colors", []string{"preview", enc, out, "--colors", "1000"}},
		{"identify without catalog", []string{"identify", in}},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			code, _, _ := runCommand(t, table.args...)
			assert.Equal(t, exitUsage, code)
			assert.NoFileExists(t, out)
		})
	}
}

func TestEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PIXELFRAME_WIDTH", "4")

	dir := t.TempDir()
	in := writeInput(t, dir, "in", make([]byte, 100))
	out := filepath.Join(dir, "out.ppm")

	code, _, stderr := runCommand(t, "encode", in, out)
	require.Equal(t, 0, code, stderr)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	// 13 + 100 bytes at 12 bytes per row
	assert.True(t, bytes.HasPrefix(b, []byte("P6\n4 10\n255\n")))
}

func TestSignVerify(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	secret := filepath.Join(dir, "key")
	public := filepath.Join(dir, "key.pub")
	otherSecret := filepath.Join(dir, "other")
	otherPublic := filepath.Join(dir, "other.pub")

	code, _, stderr := runCommand(t, "keygen", secret, public)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCommand(t, "keygen", otherSecret, otherPublic)
	require.Equal(t, 0, code, stderr)

	payload := []byte("signed payload")
	in := writeInput(t, dir, "in", payload)
	enc := filepath.Join(dir, "in.ppm")
	unsigned := filepath.Join(dir, "unsigned.ppm")
	out := filepath.Join(dir, "out")

	code, _, stderr = runCommand(t, "encode", "--sign", secret, in, enc)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCommand(t, "encode", in, unsigned)
	require.Equal(t, 0, code, stderr)

	code, _, stderr = runCommand(t, "decode", enc, out, "--verify", public)
	require.Equal(t, 0, code, stderr)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, os.Remove(out))

	// A signed container still decodes without verification
	code, _, stderr = runCommand(t, "decode", enc, out)
	require.Equal(t, 0, code, stderr)
	require.NoError(t, os.Remove(out))

	code, _, _ = runCommand(t, "decode", "--verify", otherPublic, enc, out)
	assert.Equal(t, exitCorrupt, code)
	assert.NoFileExists(t, out)

	code, _, _ = runCommand(t, "decode", "--verify", public, unsigned, out)
	assert.Equal(t, exitCorrupt, code)
	assert.NoFileExists(t, out)

	// The payload is not a key
	code, _, _ = runCommand(t, "encode", "--sign", in, in, enc)
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCommand(t, "encode", "--sign", filepath.Join(dir, "missing"), in, enc)
	assert.Equal(t, exitIO, code)
}

func TestCatalog(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	db := filepath.Join(dir, "catalog.db")
	in := writeInput(t, dir, "in", []byte("catalogued"))
	enc := filepath.Join(dir, "in.ppm")

	code, _, stderr := runCommand(t, "--db", db, "encode", in, enc, "--repeat-header", "--compress", "lz4")
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runCommand(t, "--db", db, "identify", enc)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, filepath.Base(enc))
	assert.Contains(t, stdout, "flags=0x03")

	code, stdout, stderr = runCommand(t, "--db", db, "catalog")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, filepath.Base(enc))

	code, _, _ = runCommand(t, "--db", db, "identify", in)
	assert.Equal(t, exitUsage, code)

	t.Setenv("PIXELFRAME_DB", db)
	code, stdout, stderr = runCommand(t, "catalog")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, filepath.Base(enc))
}

func TestBatchAndPreview(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	writeInput(t, dir, "a", []byte("first"))
	writeInput(t, dir, "b", bytes.Repeat([]byte("second"), 100))

	code, _, stderr := runCommand(t, "-v", "batch", dir, "--width", "16")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "Encoded")

	for _, name := range []string{"a", "b"} {
		assert.FileExists(t, filepath.Join(dir, name+pixelframe.Extension))
	}

	out := filepath.Join(dir, "b.gif")
	code, _, stderr = runCommand(t, "preview", filepath.Join(dir, "b.ppm"), out, "--scale", "3")
	require.Equal(t, 0, code, stderr)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := gif.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Width)

	code, _, _ = runCommand(t, "batch", filepath.Join(dir, "missing"))
	assert.Equal(t, exitIO, code)
}

func TestExitCode(t *testing.T) {
	tables := []struct {
		err  error
		code int
	}{
		{frame.ErrCorrupted, exitCorrupt},
		{fmt.Errorf("decoding x: %w", frame.ErrTruncated), exitCorrupt},
		{fmt.Errorf("reading x: %w", ppm.ErrMalformed), exitCorrupt},
		{sign.ErrBadSignature, exitCorrupt},
		{sign.ErrUnsigned, exitCorrupt},
		{errUsage, exitUsage},
		{canvas.ErrInvalidWidth, exitUsage},
		{sign.ErrInvalidKey, exitUsage},
		{pixelframe.ErrNoCatalog, exitUsage},
		{fmt.Errorf("%w: scale 0", preview.ErrInvalidOptions), exitUsage},
		{fmt.Errorf("reading x: %w", os.ErrNotExist), exitIO},
		{errors.New("disk on fire"), exitIO},
	}

	for _, table := range tables {
		t.Run(table.err.Error(), func(t *testing.T) {
			assert.Equal(t, table.code, exitCode(table.err))
		})
	}
}

func TestReorderArgs(t *testing.T) {
	app := newApp(new(bytes.Buffer), new(bytes.Buffer))

	tables := []struct {
		name string
		args []string
		want []string
	}{
		{
			"empty",
			[]string{"pixelframe"},
			[]string{"pixelframe"},
		},
		{
			"already ordered",
			[]string{"pixelframe", "encode", "--width", "8", "in", "out"},
			[]string{"pixelframe", "encode", "--width", "8", "in", "out"},
		},
		{
			"trailing flags",
			[]string{"pixelframe", "encode", "in", "out", "--width", "8", "--repeat-header"},
			[]string{"pixelframe", "encode", "--width", "8", "--repeat-header", "in", "out"},
		},
		{
			"interleaved",
			[]string{"pixelframe", "encode", "in", "--repeat-header", "out", "--compress=lz4"},
			[]string{"pixelframe", "encode", "--repeat-header", "--compress=lz4", "in", "out"},
		},
		{
			"global flags",
			[]string{"pixelframe", "--db", "x.db", "-v", "decode", "in", "out", "--verify", "key"},
			[]string{"pixelframe", "--db", "x.db", "-v", "decode", "--verify", "key", "in", "out"},
		},
		{
			"global flag after command",
			[]string{"pixelframe", "encode", "in", "out", "-v", "--width", "8"},
			[]string{"pixelframe", "-v", "encode", "--width", "8", "in", "out"},
		},
		{
			"global flag with value after command",
			[]string{"pixelframe", "-v", "catalog", "--db", "x.db"},
			[]string{"pixelframe", "-v", "--db", "x.db", "catalog"},
		},
		{
			"inline global flag after command",
			[]string{"pixelframe", "identify", "file", "--db=x.db"},
			[]string{"pixelframe", "--db=x.db", "identify", "file"},
		},
		{
			"unknown flag",
			[]string{"pixelframe", "encode", "in", "--frobnicate", "out"},
			[]string{"pixelframe", "encode", "--frobnicate", "in", "out"},
		},
		{
			"terminator",
			[]string{"pixelframe", "decode", "in", "--", "--out"},
			[]string{"pixelframe", "decode", "in", "--", "--out"},
		},
		{
			"stdin",
			[]string{"pixelframe", "decode", "-", "out"},
			[]string{"pixelframe", "decode", "-", "out"},
		},
		{
			"unknown command",
			[]string{"pixelframe", "frobnicate", "in", "--width", "8"},
			[]string{"pixelframe", "frobnicate", "in", "--width", "8"},
		},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.Equal(t, table.want, reorderArgs(app, table.args))
		})
	}
}
