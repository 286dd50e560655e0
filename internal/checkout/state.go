// Package checkout drives a user from the cart to a placed order. A Machine
// walks the Shipping, Payment and Review steps and a Submitter writes the
// order once the user confirms it.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/domain"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/pkg/request"
)

type Step string

const (
	StepShipping Step = "shipping"
	StepPayment  Step = "payment"
	StepReview   Step = "review"
)

func (s Step) String() string {
	return string(s)
}

// State is a copy of the machine at one point in time.
type State struct {
	Step            Step
	DeliveryMethod  domain.DeliveryMethod
	PaymentMethod   domain.PaymentMethod
	ShippingAddress domain.ShippingAddress
	IsProcessing    bool
	LastError       string
}

// Machine is not safe for concurrent use. Callers serialize access.
type Machine struct {
	state    State
	validate *validator.Validate
}

func NewMachine(session backend.Session) *Machine {
	return &Machine{
		state: State{
			Step:            StepShipping,
			DeliveryMethod:  domain.DeliveryShipping,
			ShippingAddress: PrefillAddress(session),
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func attribute(profile map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(profile[k]); v != "" {
			return v
		}
	}
	return ""
}

// PrefillAddress builds the initial address from stored profile attributes.
// Missing attributes stay empty.
func PrefillAddress(session backend.Session) domain.ShippingAddress {
	profile := session.Profile
	firstName := attribute(profile, "first_name")
	lastName := attribute(profile, "last_name")
	if firstName == "" && lastName == "" {
		if fields := strings.Fields(attribute(profile, "full_name")); len(fields) > 0 {
			firstName = fields[0]
			lastName = strings.Join(fields[1:], " ")
		}
	}
	if firstName == "" {
		firstName, _, _ = strings.Cut(session.Email, "@")
	}
	country := attribute(profile, "country")
	if country == "" {
		country = domain.DefaultCountryCode
	}
	return domain.ShippingAddress{
		FirstName:    firstName,
		LastName:     lastName,
		AddressLine1: attribute(profile, "street_address", "street", "address_street"),
		AddressLine2: attribute(profile, "apartment", "apt", "address_apt"),
		City:         attribute(profile, "city"),
		State:        attribute(profile, "state"),
		PostalCode:   attribute(profile, "postal_code", "zip"),
		CountryCode:  country,
		Phone:        attribute(profile, "phone"),
	}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) illegal(action string) error {
	return fmt.Errorf("failed %s in step=%s with error=%w", action, m.state.Step, inErrors.ErrIllegalTransition)
}

// SubmitShipping moves Shipping to Payment. Pickup needs no address.
func (m *Machine) SubmitShipping(c context.Context, req request.Shipping) error {
	if m.state.Step != StepShipping || m.state.IsProcessing {
		return m.illegal("submitting shipping")
	}
	if err := m.validate.StructCtx(c, req); err != nil {
		return fmt.Errorf("failed validating shipping with error=%w", err)
	}
	m.state.DeliveryMethod = req.DeliveryMethod
	if req.DeliveryMethod == domain.DeliveryShipping {
		m.state.ShippingAddress = req.Address()
	} else {
		address := req.Address()
		if address.FirstName == "" && address.LastName == "" {
			address.FirstName = m.state.ShippingAddress.FirstName
			address.LastName = m.state.ShippingAddress.LastName
		}
		if address.Phone == "" {
			address.Phone = m.state.ShippingAddress.Phone
		}
		m.state.ShippingAddress = domain.StoreAddress(address)
	}
	m.state.LastError = ""
	m.state.Step = StepPayment
	return nil
}

// SubmitPayment moves Payment to Review. Card fields are checked and
// discarded.
func (m *Machine) SubmitPayment(c context.Context, req request.Payment) error {
	if m.state.Step != StepPayment || m.state.IsProcessing {
		return m.illegal("submitting payment")
	}
	if err := m.validate.StructCtx(c, req); err != nil {
		return fmt.Errorf("failed validating payment with error=%w", err)
	}
	m.state.PaymentMethod = req.PaymentMethod
	m.state.LastError = ""
	m.state.Step = StepReview
	return nil
}

func (m *Machine) Back() error {
	if m.state.IsProcessing {
		return m.illegal("going back")
	}
	switch m.state.Step {
	case StepPayment:
		m.state.Step = StepShipping
	case StepReview:
		m.state.Step = StepPayment
	default:
		return m.illegal("going back")
	}
	m.state.LastError = ""
	return nil
}

// BeginSubmission locks the machine for one order submission.
func (m *Machine) BeginSubmission() error {
	if m.state.IsProcessing {
		return fmt.Errorf("failed placing order with error=%w", inErrors.ErrSubmissionInProgress)
	}
	if m.state.Step != StepReview {
		return m.illegal("placing order")
	}
	m.state.IsProcessing = true
	m.state.LastError = ""
	return nil
}

// EndSubmission unlocks the machine. A failed submission stays in Review.
func (m *Machine) EndSubmission(err error) {
	m.state.IsProcessing = false
	if err != nil {
		m.state.LastError = err.Error()
	}
}
