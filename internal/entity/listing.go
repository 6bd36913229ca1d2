package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Placeholders stored when an optional listing field cannot be read.
const (
	TitleUnavailable   = "Título não disponível"
	AddressUnavailable = "Endereço não disponível"
)

// ListingRecord is one validated listing scraped from a result page.
// AreaSqm and PriceBRL are always positive.
type ListingRecord struct {
	SequenceID  int64   `json:"id"`
	Title       string  `json:"titulo"`
	Address     string  `json:"endereco"`
	AreaSqm     float64 `json:"area_m2"`
	PriceBRL    float64 `json:"preco_real"`
	PricePerSqm float64 `json:"preco_m2"`
	ListingURL  string  `json:"link"`
	PageNumber  int     `json:"pagina"`
	CollectedOn Date    `json:"data_coleta"`
	Locality    string  `json:"localidade"`
	Region      string  `json:"estado"`
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
