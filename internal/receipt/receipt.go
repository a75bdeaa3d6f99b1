// Package receipt renders booking receipts as PDF documents.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// Render returns a one-page A4 receipt for b. The flight must be populated.
func Render(b *model.Booking) ([]byte, error) {
	if b == nil || b.Flight == nil {
		return nil, errors.New("receipt: booking with flight required")
	}
	f := b.Flight

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking receipt "+b.PNR, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"PNR          : " + b.PNR,
		"Status       : " + b.Status,
		"Booked at    : " + b.BookingTime.UTC().Format("2006-01-02 15:04 MST"),
		"Flight       : " + safe(f.FlightNumber, "-") + " " + safe(f.Airline.Name, ""),
		"Route        : " + route(f),
		"Departure    : " + f.DepartureTime.UTC().Format(time.RFC1123),
		"Payment ref  : " + b.PaymentReference,
	}
	if b.CancelledAt != nil {
		lines = append(lines, "Cancelled at : "+b.CancelledAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passengers:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for i, p := range b.Passengers {
		pdf.Cell(0, 6, fmt.Sprintf("%d) %s, %d, %s", i+1, p.Name, p.Age, p.Gender))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	snap := b.PriceSnapshot
	pdf.Cell(0, 6, fmt.Sprintf("Price per seat: %.2f %s", snap.DynamicPrice, b.Currency))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %.2f %s", b.TotalFare, b.Currency))
	pdf.Ln(12)

	if snap.Fallback {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "Priced at the base fare because the pricing service was unavailable.", "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func route(f *model.Flight) string {
	return safe(f.DepartureAirport.Code, "?") + " -> " + safe(f.ArrivalAirport.Code, "?")
}

func safe(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
