package main

import (
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bodgit/bitvid"
	"github.com/bodgit/bitvid/container"
	"github.com/bodgit/bitvid/frame"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func openDB(c *cli.Context) (*bitvid.AssetDB, error) {
	if c.String("db") == "" {
		return nil, nil
	}
	return bitvid.OpenAssetDB(c.String("db"))
}

// ramp maps pixel values to characters for terminal dumps, darkest first.
const ramp = " .:-=+*#%@"

func dumpFrame(w io.Writer, f *frame.Bitmap) {
	max := uint8(1<<f.Depth() - 1)
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			i := int(f.At(x, y)) * (len(ramp) - 1) / int(max)
			fmt.Fprintf(w, "%c", ramp[i])
		}
		fmt.Fprintln(w)
	}
}

func main() {
	app := cli.NewApp()

	app.Name = "bitvid"
	app.Usage = "bit-depth video encoder for embedded displays"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"BITVID_DB"},
			Usage:   "path to asset catalog database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "encode",
			Usage:     "Encode a directory of numbered frames into a container",
			ArgsUsage: "DIR",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   "out.biv",
					Usage:   "output container path",
				},
				&cli.IntFlag{
					Name:  "height",
					Value: 64,
					Usage: "video height in pixels",
				},
				&cli.IntFlag{
					Name:  "width",
					Usage: "video width in pixels (default: derive from aspect ratio)",
				},
				&cli.IntFlag{
					Name:  "depth",
					Value: 1,
					Usage: "bits per pixel (1, 2, 4 or 8)",
				},
				&cli.BoolFlag{
					Name:  "dither",
					Usage: "use Floyd-Steinberg dithering instead of a fixed threshold",
				},
				&cli.IntFlag{
					Name:  "threshold",
					Usage: "1-bit luminance threshold (default 128)",
				},
				&cli.IntFlag{
					Name:  "skip-first",
					Usage: "skip the first N source frames",
				},
				&cli.IntFlag{
					Name:  "n-frames",
					Usage: "encode at most N frames",
				},
				&cli.IntFlag{
					Name:  "frame-rate-div",
					Value: 1,
					Usage: "keep every Nth source frame",
				},
				&cli.BoolFlag{
					Name:  "compress",
					Usage: "zstd-wrap the container on disk",
				},
				&cli.IntFlag{
					Name:  "jobs",
					Usage: "parallel encode workers (default: all CPUs)",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				db, err := openDB(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				if db != nil {
					defer db.Close()
				}

				m := bitvid.New(db, newLogger(c))

				stats, err := m.Encode(c.Args().First(), bitvid.EncodeOptions{
					Output:       c.String("output"),
					Height:       c.Int("height"),
					Width:        c.Int("width"),
					Depth:        c.Int("depth"),
					Dither:       c.Bool("dither"),
					Threshold:    c.Int("threshold"),
					SkipFirst:    c.Int("skip-first"),
					NFrames:      c.Int("n-frames"),
					FrameRateDiv: c.Int("frame-rate-div"),
					Compress:     c.Bool("compress"),
					Jobs:         c.Int("jobs"),
				})
				if err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Printf("%d frames (%d full, %d delta), %d bytes, %.1f%% of raw\n",
					stats.Frames, stats.FullRecords, stats.DeltaRecords,
					stats.EncodedBytes, stats.Ratio()*100)

				return nil
			},
		},
		{
			Name:      "info",
			Usage:     "Describe a container and its records",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				buf, err := bitvid.ReadContainer(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}

				header, records, err := container.Records(buf)
				if err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Printf("%dx%d, %d bpp, %d frames, frame rate divisor %d\n",
					header.Width, header.Height, header.Depth,
					header.FrameCount, header.FrameRateDiv)

				var full, delta, payload int
				for _, r := range records {
					if r.Tag == container.TagDelta {
						delta++
					} else {
						full++
					}
					payload += r.PayloadLen
				}
				fmt.Printf("%d full, %d delta, %d payload bytes\n", full, delta, payload)

				return nil
			},
		},
		{
			Name:      "dump",
			Usage:     "Decode a container and print each frame as text",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				buf, err := bitvid.ReadContainer(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}

				r, err := container.NewReader(buf)
				if err != nil {
					return cli.Exit(err, 1)
				}

				for i := 0; ; i++ {
					f, err := r.NextFrame()
					if err == io.EOF {
						break
					}
					if err != nil {
						return cli.Exit(err, 1)
					}
					fmt.Printf("frame %d\n", i)
					dumpFrame(os.Stdout, f)
				}

				return nil
			},
		},
		{
			Name:  "db",
			Usage: "Asset catalog operations",
			Subcommands: []*cli.Command{
				{
					Name:  "ls",
					Usage: "List cataloged containers",
					Action: func(c *cli.Context) error {
						db, err := openDB(c)
						if err != nil {
							return cli.Exit(err, 1)
						}
						if db == nil {
							return cli.Exit("no catalog database given", 1)
						}
						defer db.Close()

						assets, err := db.List()
						if err != nil {
							return cli.Exit(err, 1)
						}

						for _, a := range assets {
							fmt.Printf("%s %s %dx%d@%d %d frames %d bytes\n",
								a.CRC, a.Path, a.Width, a.Height, a.Depth, a.Frames, a.Size)
						}

						return nil
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
