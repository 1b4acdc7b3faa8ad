// Command tintharm harmonizes a melody offline and prints the voices, or
// writes them as JSON or a Standard MIDI File.
//
//	tintharm -melody "E4:2 D4 C4" -key C -t below:1,above:1 -out fratres.mid
//	tintharm -musicxml cantus.xml -preset mirror-canon -out canon.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/Conceptual-Machines/tintharm-api/internal/config"
	"github.com/Conceptual-Machines/tintharm-api/internal/export"
	"github.com/Conceptual-Machines/tintharm-api/internal/models"
	"github.com/Conceptual-Machines/tintharm-api/internal/notation"
	"github.com/Conceptual-Machines/tintharm-api/internal/presets"
	"github.com/Conceptual-Machines/tintharm-api/internal/services"
)

var errUsage = errors.New("exactly one of -melody or -musicxml is required")

type options struct {
	melody    string
	musicxml  string
	key       string
	mode      string
	structure string
	parallel  string
	tvoices   string
	bind      string
	preset    string
	title     string
	tempo     float64
	out       string
	list      bool
}

func main() {
	// .env is optional for the CLI
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tintharm:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("tintharm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.melody, "melody", "", `melody as "NAME[:BEATS] ...", e.g. "E4:2 D4 r C4"`)
	fs.StringVar(&o.musicxml, "musicxml", "", "path to a single-part MusicXML file")
	fs.StringVar(&o.key, "key", "", "tonic (estimated from the melody when empty)")
	fs.StringVar(&o.mode, "mode", "", "mode: major, minor, dorian, ...")
	fs.StringVar(&o.structure, "structure", "", "none | retrograde | mirror:AXIS | combo:AXIS | transposition:up|down:STEP:COUNT")
	fs.StringVar(&o.parallel, "parallel", "", "parallel voice offsets in semitones, e.g. -9,3")
	fs.StringVar(&o.tvoices, "t", "", "T-voices, e.g. below:1,above:2")
	fs.StringVar(&o.bind, "bind", "", "bind pattern applied to every T-voice, e.g. 10")
	fs.StringVar(&o.preset, "preset", "", "named preset (see -presets)")
	fs.StringVar(&o.title, "title", "", "title written to MIDI and JSON output")
	fs.Float64Var(&o.tempo, "tempo", 0, "MIDI tempo in BPM (default 120)")
	fs.StringVar(&o.out, "out", "", "output file (.mid or .json); prints a table when empty")
	fs.BoolVar(&o.list, "presets", false, "list presets and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if !o.list && (o.melody == "") == (o.musicxml == "") {
		return o, errUsage
	}
	return o, nil
}

func run(args []string, stdout io.Writer) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg := config.Load()
	catalog, err := presets.Load(cfg.PresetsFile)
	if err != nil {
		return err
	}
	if o.list {
		return printPresets(stdout, catalog)
	}

	score, err := readScore(o)
	if err != nil {
		return err
	}
	offsets, err := services.ParseOffsets(o.parallel)
	if err != nil {
		return err
	}
	tvoices, err := services.ParseTVoices(o.tvoices, o.bind)
	if err != nil {
		return err
	}

	svc := services.NewHarmonizationService(cfg, catalog, nil, nil, nil)
	in := services.InputFromScore(score, models.HarmonizeOptions{
		Key:             o.key,
		Mode:            o.mode,
		Structure:       o.structure,
		ParallelOffsets: offsets,
		TVoices:         tvoices,
		Preset:          o.preset,
		Title:           o.title,
	}, "")

	out, err := svc.Harmonize(context.Background(), in)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(o.out)); {
	case o.out == "":
		return printTable(stdout, out.Response)
	case ext == ".mid" || ext == ".midi":
		opts := export.Options{Title: in.Options.Title, Tempo: o.tempo, TimeSignature: score.TimeSignature}
		data, err := svc.RenderMIDI(context.Background(), out.Result.All(), out.Result.Rhythm, opts)
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.out, data, 0o644); err != nil {
			return err
		}
	case ext == ".json":
		data, err := json.MarshalIndent(out.Response, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.out, append(data, '\n'), 0o644); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported output extension %q (want .mid or .json)", ext)
	}

	fmt.Fprintf(stdout, "wrote %s (%s %s, %d voices, %d notes, %d warnings)\n",
		o.out, out.Response.Key, out.Response.Mode, len(out.Response.Voices), out.Response.Length, len(out.Response.Warnings))
	return nil
}

func readScore(o options) (notation.Score, error) {
	if o.melody != "" {
		return notation.ParseText(o.melody)
	}
	f, err := os.Open(o.musicxml)
	if err != nil {
		return notation.Score{}, err
	}
	defer f.Close()
	return notation.ParseMusicXML(f)
}

// printTable writes one row per time step and one column per voice.
func printTable(w io.Writer, resp models.HarmonizeResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"#", "beats"}
	for _, v := range resp.Voices {
		header = append(header, v.Label)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for i := 0; i < resp.Length; i++ {
		row := []string{strconv.Itoa(i), strconv.FormatFloat(resp.Rhythm[i], 'f', -1, 64)}
		for _, v := range resp.Voices {
			note := v.Notes[i]
			if note == "" {
				note = "-"
			}
			row = append(row, note)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	estimated := ""
	if resp.KeyEstimated {
		estimated = " (estimated)"
	}
	fmt.Fprintf(w, "\nkey: %s %s%s  structure: %s\n", resp.Key, resp.Mode, estimated, resp.Structure)
	for _, warn := range resp.Warnings {
		fmt.Fprintf(w, "warning: %s[%d] %s: %s\n", warn.Stage, warn.Index, warn.Note, warn.Message)
	}
	return nil
}

func printPresets(w io.Writer, catalog *presets.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "name\tstructure\tdescription")
	for _, p := range catalog.List() {
		structure := p.Structure
		if structure == "" {
			structure = "none"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, structure, p.Description)
	}
	return tw.Flush()
}
