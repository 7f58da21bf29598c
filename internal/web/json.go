package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dogwatch/internal/frames"
	"github.com/sweeney/dogwatch/internal/history"
)

// FrameJSON is one entry in the /api/frames listing.
type FrameJSON struct {
	Name string `json:"name"`
	Time string `json:"time"`
	URL  string `json:"url"`
}

// HealthJSON is the /healthz payload.
type HealthJSON struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// frameTimeLayout matches the filename convention, so the listing and the
// files on disk read the same.
const frameTimeLayout = "2006-01-02 15:04:05"

func formatFrames(records []frames.Record) []byte {
	list := make([]FrameJSON, 0, len(records))
	for _, rec := range records {
		list = append(list, FrameJSON{
			Name: rec.Name,
			Time: rec.Taken.Format(frameTimeLayout),
			URL:  "/frames/" + rec.Name,
		})
	}

	data, _ := json.MarshalIndent(list, "", "  ")
	return data
}

func formatSightings(sightings []history.Sighting) []byte {
	if sightings == nil {
		sightings = []history.Sighting{}
	}

	data, _ := json.MarshalIndent(sightings, "", "  ")
	return data
}

func formatHealth(uptime time.Duration) []byte {
	data, _ := json.MarshalIndent(HealthJSON{
		Status:        "ok",
		UptimeSeconds: uptime.Truncate(time.Second).Seconds(),
	}, "", "  ")
	return data
}
