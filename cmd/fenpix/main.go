package main

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/fenpix/internal/app"
	"github.com/park285/fenpix/internal/config"
	"github.com/park285/fenpix/internal/irisfast"
	"github.com/park285/fenpix/internal/obslog"
	"github.com/park285/fenpix/internal/render"
	svcboard "github.com/park285/fenpix/internal/service/board"
	"go.uber.org/zap"
)

const helpMessage = `Usage: fenpix [options] <fen> <output-file>
Options:
    --upscale=<n>       Integer scale factor (default: FENPIX_UPSCALE or 1)
    --strict            Reject malformed boards instead of drawing what parses
    --base64            Base64 output
    --assets=<dir>      Asset directory with board.png, board.yaml and pieces/
    --svg-pieces=<dir>  Directory of wP.svg ... bK.svg piece drawings
    --svg-size=<px>     Raster size for SVG pieces (default: 16)
    --from-file=<csv>   Parse CSV file <fen>,<output-file>
    --send-room=<room>  Also post each board to an Iris chat room
    --help              Show this message
Positional arguments:
    <fen>               FEN record (only the first field is mandatory)
    <output-file>       Output file name or "-" for the stdout
`

type options struct {
	upscale    int
	strict     bool
	strictSet  bool
	base64     bool
	assetsDir  string
	svgPieces  string
	svgSize    int
	fromFile   string
	sendRoom   string
	fen        string
	outputFile string
	help       bool
}

type job struct {
	fen    string
	output string
}

func parseCmdLine(args []string) (opts *options, err error) {
	opts = &options{}
	if len(args) == 0 {
		opts.help = true
		return opts, nil
	}

	for ; len(args) > 0 && strings.HasPrefix(args[0], "--"); args = args[1:] {
		option, value, hasValue := strings.Cut(args[0], "=")
		needValue := func() error {
			if !hasValue || value == "" {
				return fmt.Errorf("missing value for option %q", option)
			}
			return nil
		}
		switch option {
		case "--upscale", "--svg-size":
			if err := needValue(); err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid value for option %q", option)
			}
			if option == "--upscale" {
				opts.upscale = n
			} else {
				opts.svgSize = n
			}
		case "--strict":
			opts.strict, opts.strictSet = true, true
		case "--base64":
			opts.base64 = true
		case "--assets", "--svg-pieces", "--from-file", "--send-room":
			if err := needValue(); err != nil {
				return nil, err
			}
			switch option {
			case "--assets":
				opts.assetsDir = value
			case "--svg-pieces":
				opts.svgPieces = value
			case "--from-file":
				opts.fromFile = value
			case "--send-room":
				opts.sendRoom = value
			}
		case "--help":
			opts.help = true
			return opts, nil
		default:
			return nil, fmt.Errorf("unrecognized option: %q", option)
		}
	}

	if opts.fromFile != "" {
		return opts, nil
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("<fen> is required")
	} else if len(args) < 2 {
		return nil, fmt.Errorf("<output-file> is required")
	}
	opts.fen = args[0]
	opts.outputFile = args[1]
	return opts, nil
}

// apply layers command-line choices over the environment configuration.
func (o *options) apply(cfg *config.AppConfig) {
	if o.upscale > 0 {
		cfg.DefaultUpscale = o.upscale
		if cfg.MaxUpscale < o.upscale {
			cfg.MaxUpscale = o.upscale
		}
	}
	if o.strictSet {
		cfg.Strict = o.strict
	}
	if o.assetsDir != "" {
		cfg.AssetsDir = o.assetsDir
	}
	if o.svgPieces != "" {
		cfg.SVGPiecesDir = o.svgPieces
	}
	if o.svgSize > 0 {
		cfg.SVGPieceSize = o.svgSize
	}
}

func (o *options) jobs() ([]job, error) {
	if o.fromFile == "" {
		return []job{{fen: o.fen, output: o.outputFile}}, nil
	}
	records, err := readCsvFile(o.fromFile)
	if err != nil {
		return nil, err
	}
	out := make([]job, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s line %d: want <fen>,<output-file>", o.fromFile, i+1)
		}
		out = append(out, job{fen: rec[0], output: rec[1]})
	}
	return out, nil
}

func readCsvFile(filePath string) ([][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read input file %s: %w", filePath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s as CSV: %w", filePath, err)
	}
	return records, nil
}

func run(ctx context.Context, opts *options, cfg *config.AppConfig, stdout io.Writer, logger *zap.Logger) error {
	opts.apply(cfg)
	jobs, err := opts.jobs()
	if err != nil {
		return err
	}

	deps, err := app.New(ctx, cfg, "cli", logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	var egress irisfast.Egress
	if opts.sendRoom != "" {
		if cfg.IrisBaseURL == "" {
			return errors.New("--send-room needs IRIS_BASE_URL")
		}
		client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(cfg.IrisHeaders), irisfast.WithRetry(3))
		if egress, err = irisfast.NewEgress(irisfast.ModeHTTP, client, nil, logger); err != nil {
			return err
		}
	}

	for _, j := range jobs {
		res, err := deps.Service.Render(ctx, svcboard.Request{FEN: j.fen, Upscale: cfg.DefaultUpscale, Source: "cli"})
		if err != nil {
			return fmt.Errorf("%s: %w", j.output, err)
		}
		if err := writeOutput(j.output, res.PNG, opts.base64, stdout); err != nil {
			return err
		}
		if egress != nil {
			if err := irisfast.SendPNG(ctx, egress, opts.sendRoom, res.PNG); err != nil {
				return fmt.Errorf("send to %s: %w", opts.sendRoom, err)
			}
		}
	}
	return nil
}

func writeOutput(path string, png []byte, asBase64 bool, stdout io.Writer) error {
	data := png
	if asBase64 {
		data = []byte(base64.StdEncoding.EncodeToString(png))
	}
	if path == "-" {
		if _, err := stdout.Write(data); err != nil {
			return &render.OutputError{Op: "write", Path: path, Err: err}
		}
		return nil
	}
	return render.WriteFile(path, data)
}

func main() {
	opts, err := parseCmdLine(os.Args[1:])
	check(err)
	if opts.help {
		fmt.Print(helpMessage)
		os.Exit(0)
	}

	check(obslog.InitFromEnv())
	defer obslog.Sync()

	cfg, err := config.Load()
	check(err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := run(ctx, opts, cfg, os.Stdout, obslog.L()); err != nil {
		obslog.Sync()
		check(err)
	}
}

func check(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
