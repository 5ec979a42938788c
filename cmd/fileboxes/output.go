package main

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/newthinker/fileboxes/internal/codec"
	"github.com/newthinker/fileboxes/internal/core"
	"github.com/newthinker/fileboxes/internal/format"
	"gopkg.in/yaml.v3"
)

// Output formats for structured values.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// inputKind maps the --kind flag to a kind; "auto" resolves the same way
// reads do, from the extension and then the content.
func inputKind(flag string) core.Kind {
	if flag == "auto" {
		return ""
	}
	return core.Kind(flag)
}

// writeValue prints v to w. Structured values use output (json or yaml);
// images are encoded to imagePath when set, otherwise summarized.
func writeValue(w io.Writer, registry *codec.Registry, v core.Value, output, imagePath string) error {
	switch val := v.(type) {
	case core.Structured:
		return writeStructured(w, val, output)

	case core.Text:
		_, err := io.WriteString(w, string(val))
		return err

	case *core.Config:
		c, err := registry.Lookup(core.KindConfig)
		if err != nil {
			return err
		}
		data, err := c.Encode(val)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case core.Image:
		if imagePath == "" {
			_, err := fmt.Fprintln(w, describeImage(val))
			return err
		}
		c, err := registry.Lookup(core.KindImage)
		if err != nil {
			return err
		}
		data, err := c.Encode(val)
		if err != nil {
			return err
		}
		if err := os.WriteFile(imagePath, data, 0644); err != nil {
			return fmt.Errorf("writing image: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s -> %s\n", describeImage(val), imagePath)
		return err
	}
	return core.WrapError(core.ErrUnsupportedType, fmt.Errorf("%T", v))
}

func writeStructured(w io.Writer, v core.Structured, output string) error {
	switch output {
	case outputJSON, "":
		data, err := codec.NewJSON(codec.ComplexHook()).Marshal(v.Data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case outputYAML:
		data, err := codec.ComplexHook().PreEncode(v.Data)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output %q (want json or yaml)", output)
}

func describeImage(v core.Image) string {
	imgFormat := v.Format
	if imgFormat == "" {
		imgFormat = format.DefaultImageFormat
	}
	var b image.Rectangle
	if v.Image != nil {
		b = v.Image.Bounds()
	}
	return fmt.Sprintf("image/%s %dx%d", imgFormat, b.Dx(), b.Dy())
}
