package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/nmatsuoka/go-quadtiles/archive"
	"github.com/nmatsuoka/go-quadtiles/mb"
	"github.com/nmatsuoka/go-quadtiles/tile"
	"github.com/nmatsuoka/go-quadtiles/xyz"
)

type convertCmd struct {
	inputFormat  string
	inputPath    string
	outputFormat string
	outputPath   string
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between tile storage formats" }
func (c *convertCmd) Usage() string {
	return "tilearchive convert -i <path> -o <path> [-if <format> | -of <format>]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, quadtiles, cubic, xyz)")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, quadtiles, cubic, xyz)")
}

func tileTypeForFormat(format string) archive.TileType {
	switch format {
	case "pbf":
		return archive.TileTypePbf
	case "png":
		return archive.TileTypePng
	case "jpg":
		return archive.TileTypeJpeg
	case "webp":
		return archive.TileTypeWebp
	case "avif":
		return archive.TileTypeAvif
	default:
		return archive.TileTypeUnknown
	}
}

// buildMetadataBlob folds an mbtiles metadata table's "json" row (if any)
// together with its bounds/center rows into the single opaque JSON blob an
// archive stores in its metadata region.
func buildMetadataBlob(metadata map[string]string) ([]byte, error) {
	blob := map[string]any{}
	if raw, ok := metadata["json"]; ok {
		if err := json.Unmarshal([]byte(raw), &blob); err != nil {
			return nil, err
		}
	}
	for _, key := range []string{"bounds", "center", "minzoom", "maxzoom", "name", "description", "attribution"} {
		if value, ok := metadata[key]; ok {
			blob[key] = value
		}
	}
	if len(blob) == 0 {
		return nil, nil
	}
	return json.Marshal(blob)
}

func (c *convertCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	inputFormat := deduceFormat(c.inputFormat, c.inputPath)
	outputFormat := deduceFormat(c.outputFormat, c.outputPath)

	if inputFormat == "cubic" || outputFormat == "cubic" {
		if inputFormat != "cubic" || outputFormat != "cubic" {
			log.Println("cubic archives can only be converted to or from another cubic archive")
			return subcommands.ExitFailure
		}
		return c.convertCubic()
	}

	var err error
	var reader tile.Visitor
	switch inputFormat {
	case "mbtiles":
		reader, err = mb.NewReader(c.inputPath)
	case "quadtiles":
		var r archive.Reader
		r, err = archive.NewFileReader(c.inputPath)
		if err == nil {
			reader = r
		}
	case "xyz", "":
		reader, err = xyz.NewReader(c.inputPath)
	default:
		log.Printf("invalid input format: %q", c.inputFormat)
		return subcommands.ExitFailure
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	var headerInfo archive.HeaderInfo
	var jsonMetadata []byte
	if inputFormat == "mbtiles" && outputFormat == "quadtiles" {
		metadata, err := reader.(*mb.Reader).ReadMetadata()
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		headerInfo.TileType = tileTypeForFormat(metadata["format"])
		jsonMetadata, err = buildMetadataBlob(metadata)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
	}

	var writer tile.Writer
	switch outputFormat {
	case "mbtiles":
		writer, err = mb.NewWriter(c.outputPath, mb.WithLogger(logrus.StandardLogger()))
	case "quadtiles":
		var w archive.Writer
		w, err = archive.NewFileWriter(c.outputPath, false,
			archive.WithMetadata(jsonMetadata),
			archive.WithHeaderInfo(headerInfo),
			archive.WithLogger(logrus.StandardLogger()),
		)
		if err == nil {
			writer = w
		}
	case "xyz", "":
		writer, err = xyz.NewWriter(c.outputPath)
	default:
		log.Printf("invalid output format: %q", c.outputFormat)
		return subcommands.ExitFailure
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := writer.(io.Closer); ok {
		defer closer.Close()
	}

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	err = reader.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		err := writer.WriteTile(tileID, tileData)
		bar.Add(1)
		return err
	})
	bar.Finish()
	fmt.Println()

	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	if err := writer.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

func (c *convertCmd) convertCubic() subcommands.ExitStatus {
	reader, err := archive.NewFileReader(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer reader.Close()

	metadata, err := reader.ReadMetadata()
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	writer, err := archive.NewFileWriter(c.outputPath, true,
		archive.WithMetadata(metadata),
		archive.WithHeaderInfo(reader.HeaderInfo()),
		archive.WithLogger(logrus.StandardLogger()),
	)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer writer.Close()

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	err = reader.VisitTiles(func(id tile.ID, data []byte) error {
		err := writer.WriteTile(id, data)
		bar.Add(1)
		return err
	})
	bar.Finish()
	fmt.Println()

	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	if err := writer.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
