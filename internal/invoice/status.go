package invoice

import "fmt"

// Status is a closed set: Draft, Sent, Paid, Overdue.
type Status interface {
	Label() string
	// Variant is the badge style used when listing invoices.
	Variant() string
	invoiceStatus()
}

type (
	Draft   struct{}
	Sent    struct{}
	Paid    struct{}
	Overdue struct{}
)

func (Draft) Label() string   { return "Draft" }
func (Sent) Label() string    { return "Sent" }
func (Paid) Label() string    { return "Paid" }
func (Overdue) Label() string { return "Overdue" }

func (Draft) Variant() string   { return "secondary" }
func (Sent) Variant() string    { return "default" }
func (Paid) Variant() string    { return "outline" }
func (Overdue) Variant() string { return "destructive" }

func (Draft) invoiceStatus()   {}
func (Sent) invoiceStatus()    {}
func (Paid) invoiceStatus()    {}
func (Overdue) invoiceStatus() {}

// ParseStatus maps a stored label back to its status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "Draft":
		return Draft{}, nil
	case "Sent":
		return Sent{}, nil
	case "Paid":
		return Paid{}, nil
	case "Overdue":
		return Overdue{}, nil
	}
	return nil, fmt.Errorf("invalid invoice status %q", s)
}

// IsOpen reports whether payment is still expected.
func IsOpen(s Status) bool {
	switch s.(type) {
	case Sent, Overdue:
		return true
	case Draft, Paid:
		return false
	}
	return false
}
