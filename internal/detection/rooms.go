package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Room is an enclosed area of background bounded by linework.
type Room struct {
	Bounds geometry.Rect  `json:"bounds"`
	Center geometry.Point `json:"center"`
	// Area is the number of background pixels inside the room.
	Area       int     `json:"area"`
	Confidence float64 `json:"confidence"`
}

// RoomOptions bounds the rooms DetectRooms reports.
type RoomOptions struct {
	MinArea int
	// MinFill is the smallest fraction of its bounding box a room may fill.
	// It rejects slivers and the thin channels between double walls.
	MinFill float64
}

// DefaultRoomOptions suits plans rasterized at about 96 DPI.
func DefaultRoomOptions() RoomOptions {
	return RoomOptions{MinArea: 2500, MinFill: 0.5}
}

// DetectRooms flood-fills the background of m and returns the enclosed
// regions, largest first. Regions touching the image border are outside
// the building and are skipped. Pass a mask from Seal so doorways do not
// join neighbouring rooms.
func DetectRooms(m *Mask, opts RoomOptions) []Room {
	if opts.MinArea <= 0 {
		opts = DefaultRoomOptions()
	}

	var rooms []Room
	for _, c := range m.components(false, false) {
		if c.pixels < opts.MinArea || c.touchesBorder(m.W, m.H) {
			continue
		}
		b := c.bounds()
		fill := float64(c.pixels) / geometry.Area(b)
		if fill < opts.MinFill {
			continue
		}
		rooms = append(rooms, Room{
			Bounds:     b,
			Center:     b.Center(),
			Area:       c.pixels,
			Confidence: math.Round(math.Min(fill, 1)*1000) / 1000,
		})
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Area > rooms[j].Area
	})
	return rooms
}
