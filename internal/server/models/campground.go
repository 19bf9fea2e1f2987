package models

import "time"

// Point is a GeoJSON point; Coordinates are [longitude, latitude].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func NewPoint(lng, lat float64) Point {
	return Point{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p Point) Lng() float64 { return p.Coordinates[0] }
func (p Point) Lat() float64 { return p.Coordinates[1] }

// Image is a hosted picture. Filename is the image host's storage key.
type Image struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type Campground struct {
	ID          string
	Title       string
	Price       float64
	Description string
	Location    string
	Geometry    Point
	Images      []Image
	AuthorID    string
	AuthorName  string
	Reviews     []Review
	CreatedAt   time.Time
}

// OwnerID is the author set at creation; it is never reassigned.
func (c *Campground) OwnerID() string { return c.AuthorID }
