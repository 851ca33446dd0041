// Package report writes a missing-episode report in the configured format.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/missingtv/missingtv/internal/missing"
)

// Output formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var ErrUnknownFormat = errors.New("unknown report format")

// Renderer writes reports to an output stream.
type Renderer struct {
	out    io.Writer
	format string
}

// NewRenderer creates a renderer for one of the Format constants.
func NewRenderer(out io.Writer, format string) (*Renderer, error) {
	switch format {
	case FormatText, FormatTable, FormatJSON, FormatYAML:
	case "":
		format = FormatText
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &Renderer{out: out, format: format}, nil
}

// Render writes the report.
func (r *Renderer) Render(rep *missing.Report) error {
	switch r.format {
	case FormatTable:
		return r.renderTable(rep)
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	default:
		return r.renderText(rep)
	}
}

// FormatLine returns the text form of one missing episode.
func FormatLine(ep *missing.Episode) string {
	return fmt.Sprintf("%s S%02d E%02d - %s", ep.ShowTitle, ep.SeasonNumber, ep.EpisodeNumber, ep.Title)
}

func (r *Renderer) renderText(rep *missing.Report) error {
	for _, ep := range rep.Episodes() {
		if _, err := fmt.Fprintln(r.out, FormatLine(ep)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderTable(rep *missing.Report) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Show", "Season", "Episode", "Title", "Aired"})

	for _, ep := range rep.Episodes() {
		tw.AppendRow(table.Row{
			ep.ShowTitle,
			strconv.Itoa(ep.SeasonNumber),
			strconv.Itoa(ep.EpisodeNumber),
			ep.Title,
			ep.FirstAired,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	_, err := fmt.Fprintln(r.out, tw.Render())
	return err
}
