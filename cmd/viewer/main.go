// Command viewer is a read-only operator console: it polls the server's
// rooms and stats endpoints and renders them as tables.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/Sirco-web/ttls/domain"
	"github.com/Sirco-web/ttls/observability"
	"github.com/Sirco-web/ttls/runtime"
)

type Config struct {
	ServerURL string `env:"VIEWER_SERVER_URL,default=http://localhost:8080"`
	Colours   bool   `env:"VIEWER_COLOURS,default=true"`
}

type roomsResponse struct {
	Rooms []runtime.RoomInfo `json:"rooms"`
}

func main() {
	watch := flag.Duration("watch", 0, "refresh interval; 0 renders once and exits")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	for {
		if err := render(client, config); err != nil {
			log.Fatalf("Viewer error: %v", err)
		}
		if *watch <= 0 {
			return
		}
		time.Sleep(*watch)
	}
}

func render(client *http.Client, config Config) error {
	var rooms roomsResponse
	if err := fetch(client, config.ServerURL+"/api/rooms", &rooms); err != nil {
		return err
	}
	var stats observability.Stats
	if err := fetch(client, config.ServerURL+"/api/stats", &stats); err != nil {
		return err
	}

	header := fmt.Sprintf("  ====== %s | %d room(s), %d client(s) ======", config.ServerURL, stats.Rooms, stats.Clients)
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	renderRooms(rooms.Rooms)
	renderStats(stats)
	return nil
}

func renderRooms(rooms []runtime.RoomInfo) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Members", "Count", "Created"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, r := range rooms {
		names := lo.Map(r.Users, func(u domain.Member, _ int) string { return u.Name })
		table.Append([]string{
			r.Room,
			strings.Join(names, ", "),
			strconv.Itoa(r.Count),
			r.CreatedAt.Local().Format("15:04:05"),
		})
	}
	table.Render()
}

func renderStats(stats observability.Stats) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	rows := [][]string{
		{"rooms created", strconv.FormatUint(stats.RoomsCreated, 10)},
		{"joins", strconv.FormatUint(stats.Joins, 10)},
		{"messages sent", strconv.FormatUint(stats.MessagesSent, 10)},
		{"events broadcast", strconv.FormatUint(stats.EventsBroadcast, 10)},
		{"polls parked", strconv.FormatUint(stats.PollsParked, 10)},
		{"polls timed out", strconv.FormatUint(stats.PollsTimedOut, 10)},
		{"clients evicted", strconv.FormatUint(stats.ClientsEvicted, 10)},
		{"rss", fmt.Sprintf("%.1f MB", float64(stats.RSSBytes)/1024/1024)},
		{"cpu", fmt.Sprintf("%.1f%%", stats.CPUPercent)},
		{"sampled at", stats.SampledAt},
	}
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

func fetch(client *http.Client, url string, dst any) error {
	res, err := client.Get(url)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(dst)
}
