package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfx.cafe/gfx/imgconv/lib/batch"
)

func TestConvert(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 5, 5))))
	src := filepath.Join(dir, "square.png")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	out := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"convert", "--format", "tiff", "--workers", "1", "--out", out, src})
	require.NoError(t, rootCmd.Execute(), stderr.String())

	assert.Contains(t, stdout.String(), "1 converted, 0 failed")

	f, err := os.Open(filepath.Join(out, "square.tiff"))
	require.NoError(t, err)
	defer f.Close()

	config, name, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "tiff", name)
	assert.Equal(t, 5, config.Width)
}

func TestConvert_SameBaseName(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	for _, sub := range []string{"a", "b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, sub, "pic.png"), buf.Bytes(), 0o644))
	}
	out := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{
		"convert", "-f", "bmp", "-o", out,
		filepath.Join(dir, "a", "pic.png"),
		filepath.Join(dir, "b", "pic.png"),
	})
	require.NoError(t, rootCmd.Execute(), stderr.String())

	assert.FileExists(t, filepath.Join(out, "pic.bmp"))
	assert.FileExists(t, filepath.Join(out, "pic-1.bmp"))
}

func TestOutputPaths(t *testing.T) {
	ok := func(source, name string) batch.Item {
		return batch.Item{Source: source, FileName: name, Status: batch.StatusSuccess}
	}

	items := []batch.Item{
		ok("x/a.png", "x/a.jpg"),
		ok("y/a.png", "y/a.jpg"),
		{Source: "z/a.png", FileName: "z/a.png", Status: batch.StatusError},
		ok("x/a.gif", "x/a.jpg"),
		ok("w/b.jpg", "w/b.jpg"),
	}

	assert.Equal(t, []string{
		filepath.Join("out", "a.jpg"),
		filepath.Join("out", "a-1.jpg"),
		"",
		filepath.Join("out", "a-2.jpg"),
		filepath.Join("out", "b.jpg"),
	}, outputPaths(items, "out"))

	assert.Equal(t, []string{
		filepath.Join("x", "a.jpg"),
		filepath.Join("y", "a.jpg"),
		"",
		filepath.Join("x", "a-1.jpg"),
		// never overwrite the input itself
		filepath.Join("w", "b-1.jpg"),
	}, outputPaths(items, ""))
}

func TestConvert_Failures(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o644))
	skipped := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(skipped, []byte("hello"), 0o644))

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"convert", "-f", "jpg", bad, skipped})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, errFailed)

	assert.Contains(t, stderr.String(), "skipped "+skipped)
	assert.Contains(t, stderr.String(), bad+": error")
	assert.Contains(t, stdout.String(), "0 converted, 1 failed")
}
