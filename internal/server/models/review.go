package models

import "time"

type Review struct {
	ID           string
	CampgroundID string
	Body         string
	Rating       int
	AuthorID     string
	AuthorName   string
	CreatedAt    time.Time
}

func (r *Review) OwnerID() string { return r.AuthorID }
