// README: Console session for a single bus reader: passenger taps and admin card operations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"farebox/internal/modules/admin"
	"farebox/internal/modules/journey"
	"farebox/internal/modules/ledger"
	"farebox/internal/modules/location"
	"farebox/internal/reader"
	"farebox/internal/types"
)

type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
}

type Kiosk struct {
	input   LineSource
	tags    *reader.Reader
	out     io.Writer
	journey *journey.Service
	ledger  *ledger.Service
	admin   *admin.Service
}

// Run serves prompts until the input is exhausted or ctx is done.
func (k *Kiosk) Run(ctx context.Context) error {
	for {
		action, err := k.ask(ctx, "1. for Passenger, 2. for Admin officer: ")
		if err != nil {
			if errors.Is(err, location.ErrSourceClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		switch action {
		case "1":
			k.passenger(ctx)
		case "2":
			k.adminSession(ctx)
		default:
			k.say("Invalid input. Please choose '1' if Passenger or '2' Administrator")
		}
	}
}

func (k *Kiosk) passenger(ctx context.Context) {
	id, ok := k.readTag(ctx)
	if !ok {
		return
	}
	j, err := k.journey.Tap(ctx, id)
	switch {
	case err == nil && j.State == journey.StateInProgress:
		name := k.riderName(ctx, id)
		k.say("Starting your journey, %s! Tap again at your destination.", name)
		k.say("Location saved: (%.6f, %.6f)", j.Start.Lat, j.Start.Lng)
	case err == nil:
		k.say("Distance traveled: %.2f km, Fare: Rs. %d", j.DistanceKm, j.Fare)
		k.say("Journey completed. Thank you for traveling!")
		k.say("New balance: Rs. %d", j.Balance)
	case errors.Is(err, ledger.ErrNotFound):
		k.say("User data not found. Please register your card.")
	case j != nil && j.AbortReason == journey.ReasonInsufficientFunds:
		k.say("Insufficient balance to complete the journey. Fare: Rs. %d", j.Fare)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		k.say("Insufficient balance to start journey.")
	case errors.Is(err, location.ErrNoFix):
		k.say("Error retrieving GPS location. Please tap again.")
	case errors.Is(err, journey.ErrDuplicateTap):
		k.say("Card already read. Remove the card and tap again.")
	default:
		log.Printf("kiosk tap rider=%s err=%v", string(id), err)
		k.say("Something went wrong. Please try again.")
	}
}

func (k *Kiosk) adminSession(ctx context.Context) {
	adminID, ok := k.readTag(ctx)
	if !ok {
		return
	}
	if !k.admin.IsAdmin(adminID) {
		k.say("Access denied.")
		return
	}
	k.say("Welcome, Admin verified!")
	action, err := k.ask(ctx, "1. Recharge card, 2. Update user details, 3. Register new user: ")
	if err != nil {
		return
	}
	switch action {
	case "1":
		k.recharge(ctx, adminID)
	case "2":
		k.updateProfile(ctx, adminID)
	case "3":
		k.register(ctx, adminID)
	default:
		k.say("Invalid action. Please try again.")
	}
}

func (k *Kiosk) recharge(ctx context.Context, adminID types.ID) {
	id, ok := k.readTag(ctx)
	if !ok {
		return
	}
	r, err := k.ledger.Get(ctx, id)
	if err != nil {
		k.reportAdminError(err)
		return
	}
	k.say("Current Balance: Rs. %d", r.Balance)
	amount, err := k.ask(ctx, "Enter amount to recharge: Rs. ")
	if err != nil {
		return
	}
	balance, err := k.admin.Recharge(ctx, admin.RechargeCommand{AdminID: adminID, RiderID: id, Amount: amount})
	if err != nil {
		k.reportAdminError(err)
		return
	}
	k.say("Recharged %s. New balance: Rs. %d", string(id), balance)
}

func (k *Kiosk) updateProfile(ctx context.Context, adminID types.ID) {
	id, ok := k.readTag(ctx)
	if !ok {
		return
	}
	r, err := k.ledger.Get(ctx, id)
	if err != nil {
		k.reportAdminError(err)
		return
	}
	name, err := k.ask(ctx, fmt.Sprintf("Enter new name (current: %s): ", r.Name))
	if err != nil {
		return
	}
	phone, err := k.ask(ctx, fmt.Sprintf("Enter new phone (current: %s): ", r.Phone))
	if err != nil {
		return
	}
	if err := k.admin.UpdateProfile(ctx, admin.ProfileCommand{AdminID: adminID, RiderID: id, Name: name, Phone: phone}); err != nil {
		k.reportAdminError(err)
		return
	}
	k.say("User details updated for %s.", string(id))
}

func (k *Kiosk) register(ctx context.Context, adminID types.ID) {
	id, ok := k.readTag(ctx)
	if !ok {
		return
	}
	name, err := k.ask(ctx, "Enter user name: ")
	if err != nil {
		return
	}
	phone, err := k.ask(ctx, "Enter user phone number: ")
	if err != nil {
		return
	}
	if _, err := k.admin.Register(ctx, admin.RegisterCommand{AdminID: adminID, RiderID: id, Name: name, Phone: phone}); err != nil {
		k.reportAdminError(err)
		return
	}
	k.say("Registered %s with balance Rs. 0.", string(id))
}

func (k *Kiosk) reportAdminError(err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		k.say("No user found with that RFID ID.")
	case errors.Is(err, ledger.ErrAlreadyExists):
		k.say("This card is already registered.")
	case errors.Is(err, admin.ErrInvalidInput):
		k.say("Invalid input: %v", err)
	default:
		log.Printf("kiosk admin err=%v", err)
		k.say("Something went wrong. Please try again.")
	}
}

func (k *Kiosk) readTag(ctx context.Context) (types.ID, bool) {
	k.say("Place your RFID card...")
	id, err := k.tags.ReadOnce(ctx)
	switch {
	case err == nil:
		k.say("RFID ID: %s", string(id))
		return id, true
	case errors.Is(err, reader.ErrTimeout):
		k.say("No card detected.")
	case errors.Is(err, reader.ErrEmptyTag):
		k.say("Could not read card.")
	default:
		log.Printf("kiosk read tag err=%v", err)
	}
	return "", false
}

func (k *Kiosk) riderName(ctx context.Context, id types.ID) string {
	r, err := k.ledger.Get(ctx, id)
	if err != nil || r.Name == "" {
		return "user"
	}
	return r.Name
}

func (k *Kiosk) ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(k.out, prompt)
	line, err := k.input.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (k *Kiosk) say(format string, args ...any) {
	fmt.Fprintf(k.out, format+"\n", args...)
}
