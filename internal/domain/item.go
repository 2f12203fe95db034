package domain

import "time"

// Item statuses. Lost and found are both "open"; resolved is terminal.
const (
	StatusLost     = "lost"
	StatusFound    = "found"
	StatusResolved = "resolved"
)

// Item is the lost/found record tracked through its lifecycle.
// ReporterEmail is immutable once set and is the sole authority for resolving the item.
type Item struct {
	ItemID        string     `json:"id" dynamodbav:"item_id"`
	Name          string     `json:"name" dynamodbav:"name"`
	Description   string     `json:"description" dynamodbav:"description"`
	Location      string     `json:"location" dynamodbav:"location"`
	Status        string     `json:"status" dynamodbav:"status"`
	PhotoKey      string     `json:"photo_key,omitempty" dynamodbav:"photo_key"`
	PhotoURL      string     `json:"photo_url,omitempty" dynamodbav:"photo_url"`
	ReporterName  string     `json:"reporter_name" dynamodbav:"reporter_name"`
	ReporterEmail string     `json:"reporter_email" dynamodbav:"reporter_email"`
	Sightings     []Sighting `json:"sightings" dynamodbav:"sightings"`
	Claims        []Claim    `json:"claims" dynamodbav:"claims"`
	CreatedAt     time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Open reports whether the item still accepts sightings and claims.
func (i *Item) Open() bool { return i.Status != StatusResolved }

// Sighting is an append-only "I saw this item" report from a community member.
type Sighting struct {
	Name        string    `json:"name" dynamodbav:"name"`
	Contact     string    `json:"contact" dynamodbav:"contact"`
	Details     string    `json:"details" dynamodbav:"details"`
	Email       string    `json:"email" dynamodbav:"email"`
	SubmittedAt time.Time `json:"submitted_at" dynamodbav:"submitted_at"`
}

// Claim is an append-only ownership claim from a community member.
type Claim struct {
	Name        string    `json:"name" dynamodbav:"name"`
	Contact     string    `json:"contact" dynamodbav:"contact"`
	Details     string    `json:"details" dynamodbav:"details"`
	Email       string    `json:"email" dynamodbav:"email"`
	SubmittedAt time.Time `json:"submitted_at" dynamodbav:"submitted_at"`
}

type CreateItemRequest struct {
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description" validate:"required"`
	Location      string `json:"location" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=lost found"`
	ReporterName  string `json:"reporter_name" validate:"required"`
	ReporterEmail string `json:"reporter_email" validate:"required,email"`
	PhotoName     string `json:"photo_name"`
	PhotoBase64   string `json:"photo_base64"`
}

type SightingRequest struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact" validate:"required"`
	Details string `json:"details" validate:"required"`
	Email   string `json:"email" validate:"required"`
}

type ClaimRequest struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact" validate:"required"`
	Details string `json:"details" validate:"required"`
	Email   string `json:"email" validate:"required"`
}

type ResolveRequest struct {
	Email string `json:"email" validate:"required,email"`
}
