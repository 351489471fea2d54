// Command canvasctl prints the live room directory and server totals of a
// running sketch rooms server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/manpreetbhatti/sketchrooms/internal/api"
	"github.com/manpreetbhatti/sketchrooms/internal/protocol"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	Server string `envconfig:"CANVAS_SERVER" default:"http://localhost:3000"`
	// CANVAS_COLOURS enables coloured section headers
	Colours bool          `envconfig:"CANVAS_COLOURS" default:"true"`
	Timeout time.Duration `envconfig:"CANVAS_TIMEOUT" default:"5s"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "canvasctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	client := &http.Client{Timeout: cfg.Timeout}

	command := "rooms"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "rooms":
		var rooms []protocol.RoomSummary
		if err := fetch(client, cfg.Server+"/api/rooms", &rooms); err != nil {
			return err
		}
		header(out, cfg, fmt.Sprintf("Rooms (%d)", len(rooms)))
		renderRooms(out, rooms)
	case "stats":
		var stats api.StatsResponse
		if err := fetch(client, cfg.Server+"/api/stats", &stats); err != nil {
			return err
		}
		header(out, cfg, "Server stats")
		renderStats(out, stats)
	default:
		return fmt.Errorf("unknown command %q, expected rooms or stats", command)
	}
	return nil
}

func fetch(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func header(out io.Writer, cfg Config, title string) {
	line := fmt.Sprintf("  ====== %s ======", title)
	if cfg.Colours {
		line = color.New(color.BgBlack, color.FgGreen).Render(line)
	}
	fmt.Fprintln(out, line)
}

func newTable(out io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

func renderRooms(out io.Writer, rooms []protocol.RoomSummary) {
	table := newTable(out, []string{"Room", "Users", "Capacity", "Full", "Created"})
	for _, r := range rooms {
		table.Append([]string{
			r.RoomID,
			strconv.Itoa(r.UserCount),
			strconv.Itoa(r.MaxUsers),
			strconv.FormatBool(r.IsFull),
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	table.Render()
}

func renderStats(out io.Writer, stats api.StatsResponse) {
	table := newTable(out, []string{"Metric", "Value"})
	table.Append([]string{"Active rooms", strconv.Itoa(stats.ActiveRooms)})
	table.Append([]string{"Active users", strconv.Itoa(stats.ActiveUsers)})
	table.Append([]string{"Active sessions", strconv.Itoa(stats.ActiveSessions)})
	if stats.Journal != nil {
		table.Append([]string{"Rooms created", strconv.Itoa(stats.Journal.RoomsCreated)})
		table.Append([]string{"Rooms closed", strconv.Itoa(stats.Journal.RoomsClosed)})
		table.Append([]string{"Joins", strconv.Itoa(stats.Journal.Joins)})
	}
	table.Render()
}
