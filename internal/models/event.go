package models

import "time"

// Address is the structured location of an event.
type Address struct {
	ID                  int64  `json:"id"`
	Country             string `json:"country"`
	Province            string `json:"province"`
	City                string `json:"city"`
	Barangay            string `json:"barangay"`
	HouseBuildingNumber string `json:"house_building_number"`
	CountryCode         string `json:"country_code"`
	ProvinceCode        string `json:"province_code"`
	CityCode            string `json:"city_code"`
	BarangayCode        string `json:"barangay_code"`
}

// Event is an organization-hosted gathering that accounts RSVP to.
// AutoAccept events move RSVPs straight to joined.
type Event struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Title          string    `json:"title"`
	EventDate      time.Time `json:"event_date"`
	AddressID      int64     `json:"-"`
	Description    *string   `json:"description,omitempty"`
	Image          *int64    `json:"-"` // resource id
	AutoAccept     bool      `json:"auto_accept"`
	CreatedAt      time.Time `json:"created_date"`
	ModifiedAt     time.Time `json:"last_modified_date"`
}
