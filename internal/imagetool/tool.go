// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagetool decodes HEIC/HEIF through an external ImageMagick
// binary. The image is piped through stdin and read back as PNG on stdout,
// so no temporary files are involved.
package imagetool

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strings"
)

const (
	binMagick  = "magick"
	binConvert = "convert"
)

// Tool is an external decoder. It satisfies heic.ToolDecoder.
type Tool interface {
	// Name returns the binary name ("magick" or "convert").
	Name() string

	// Available reports whether the binary exists on PATH and can decode
	// HEIC input.
	Available() bool

	// Decode pipes r through the tool and decodes the PNG it produces.
	Decode(r io.Reader) (image.Image, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(name string, args ...string) ([]byte, error)
	RunPiped(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

func (o *osExecutor) RunPiped(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// tool implements Tool for one ImageMagick binary. ImageMagick 7 ships
// "magick"; version 6 ships "convert". Both accept the same
// coder-prefixed stdin/stdout arguments.
type tool struct {
	bin  string
	exec executor
}

func (t *tool) Name() string { return t.bin }

func (t *tool) Available() bool {
	if _, err := t.exec.LookPath(t.bin); err != nil {
		return false
	}
	out, err := t.exec.Output(t.bin, "-list", "format")
	if err != nil {
		return false
	}
	return supportsHEIC(out)
}

func (t *tool) Decode(r io.Reader) (image.Image, error) {
	var stdout, stderr bytes.Buffer
	args := []string{"heic:-", "png:-"}
	if err := t.exec.RunPiped(t.bin, args, r, &stdout, &stderr); err != nil {
		return nil, fmt.Errorf("running %s: %w: %s", t.bin, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s produced empty output", t.bin)
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("reading %s output: %w", t.bin, err)
	}
	return img, nil
}

// supportsHEIC scans "-list format" output for a HEIC coder with read
// support. Lines look like "     HEIC  HEIC      rw+   High Efficiency Image Format".
func supportsHEIC(list []byte) bool {
	for _, line := range strings.Split(string(list), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		name := strings.TrimSuffix(fields[0], "*")
		if !strings.EqualFold(name, "HEIC") {
			continue
		}
		return strings.Contains(fields[2], "r")
	}
	return false
}

func newMagickTool(exec executor) *tool {
	return &tool{bin: binMagick, exec: exec}
}

func newConvertTool(exec executor) *tool {
	return &tool{bin: binConvert, exec: exec}
}

var defaultExec = &osExecutor{}

// Detect tries "magick" first and falls back to "convert". It returns an
// error if neither binary is present with HEIC read support.
func Detect() (Tool, error) {
	return detect(defaultExec)
}

func detect(exec executor) (Tool, error) {
	magick := newMagickTool(exec)
	if magick.Available() {
		return magick, nil
	}

	convert := newConvertTool(exec)
	if convert.Available() {
		return convert, nil
	}

	return nil, fmt.Errorf(
		"no HEIC-capable ImageMagick found: neither %s nor %s available with HEIC support",
		binMagick, binConvert,
	)
}
