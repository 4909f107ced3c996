package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bussewa/booking-backend/internal/models"
	"github.com/google/uuid"
)

// In-memory stores implementing the real transition semantics, so the
// lifecycle logic can be exercised without a database.

type fakeSeatStore struct {
	mu           sync.Mutex
	seats        map[string]*models.Seat
	reservations *fakeReservationStore
}

func newFakeSeatStore(busID string, seatIDs ...string) *fakeSeatStore {
	store := &fakeSeatStore{seats: make(map[string]*models.Seat)}
	for _, id := range seatIDs {
		store.seats[id] = &models.Seat{
			ID:     id,
			BusID:  busID,
			Status: models.SeatStatusAvailable,
		}
	}
	return store
}

func (f *fakeSeatStore) MarkHeld(reservationID, busID string, seatIDs []string, heldUntil time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	held := 0
	for _, id := range seatIDs {
		seat, ok := f.seats[id]
		if !ok || seat.BusID != busID {
			continue
		}
		if seat.Status != models.SeatStatusAvailable || seat.IsPermanentlyBooked {
			continue
		}
		rid := reservationID
		until := heldUntil
		seat.Status = models.SeatStatusHeld
		seat.HeldByReservationID = &rid
		seat.HeldUntil = &until
		held++
	}
	return held, nil
}

func (f *fakeSeatStore) ReleaseHolds(reservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, seat := range f.seats {
		if seat.IsPermanentlyBooked {
			continue
		}
		if seat.HeldByReservationID != nil && *seat.HeldByReservationID == reservationID {
			seat.Status = models.SeatStatusAvailable
			seat.HeldByReservationID = nil
			seat.HeldUntil = nil
		}
	}
	return nil
}

func (f *fakeSeatStore) MarkBooked(busID string, seatIDs []string, ticketID, bookingID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	updated := 0
	for _, id := range seatIDs {
		seat, ok := f.seats[id]
		if !ok || seat.BusID != busID {
			continue
		}
		if seat.IsPermanentlyBooked && (seat.TicketID == nil || *seat.TicketID != ticketID) {
			continue
		}
		tid := ticketID
		bid := bookingID
		seat.Status = models.SeatStatusBooked
		seat.IsPermanentlyBooked = true
		seat.TicketID = &tid
		seat.BookingID = &bid
		seat.HeldByReservationID = nil
		seat.HeldUntil = nil
		updated++
	}
	return updated, nil
}

func (f *fakeSeatStore) MarkAvailable(busID string, seatIDs []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	released := 0
	for _, id := range seatIDs {
		seat, ok := f.seats[id]
		if !ok || seat.BusID != busID || seat.IsPermanentlyBooked {
			continue
		}
		seat.Status = models.SeatStatusAvailable
		seat.TicketID = nil
		seat.BookingID = nil
		seat.HeldByReservationID = nil
		seat.HeldUntil = nil
		released++
	}
	return released, nil
}

func (f *fakeSeatStore) GetExisting(busID string, seatIDs []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var existing []string
	for _, id := range seatIDs {
		if seat, ok := f.seats[id]; ok && seat.BusID == busID {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (f *fakeSeatStore) GetPermanentlyBooked(seatIDs []string) ([]models.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var booked []models.Seat
	for _, id := range seatIDs {
		if seat, ok := f.seats[id]; ok && seat.IsPermanentlyBooked {
			booked = append(booked, *seat)
		}
	}
	return booked, nil
}

func (f *fakeSeatStore) ReleaseOrphanedHolds(now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	released := 0
	for _, seat := range f.seats {
		if seat.Status != models.SeatStatusHeld || seat.IsPermanentlyBooked {
			continue
		}
		if seat.HeldUntil == nil || !seat.HeldUntil.Before(now) {
			continue
		}
		orphaned := seat.HeldByReservationID == nil
		if !orphaned && f.reservations != nil {
			if r, _ := f.reservations.GetByID(*seat.HeldByReservationID); r == nil {
				orphaned = true
			}
		}
		if orphaned {
			seat.Status = models.SeatStatusAvailable
			seat.HeldByReservationID = nil
			seat.HeldUntil = nil
			released++
		}
	}
	return released, nil
}

func (f *fakeSeatStore) get(id string) models.Seat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.seats[id]
}

type fakeReservationStore struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{reservations: make(map[string]*models.Reservation)}
}

func (f *fakeReservationStore) Create(reservation *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if reservation.ID == "" {
		reservation.ID = uuid.New().String()
	}
	if reservation.Code == "" {
		reservation.Code = "RSV-" + reservation.ID[:8]
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now()
	}
	copied := *reservation
	f.reservations[reservation.ID] = &copied
	return nil
}

func (f *fakeReservationStore) GetByID(id string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reservation, ok := f.reservations[id]
	if !ok {
		return nil, nil
	}
	copied := *reservation
	return &copied, nil
}

func (f *fakeReservationStore) GetByCode(code string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, reservation := range f.reservations {
		if reservation.Code == code {
			copied := *reservation
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeReservationStore) LinkTicket(id, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if reservation, ok := f.reservations[id]; ok {
		tid := ticketID
		reservation.TicketID = &tid
	}
	return nil
}

func (f *fakeReservationStore) MarkPermanent(id string, ticketID, bookingID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	reservation, ok := f.reservations[id]
	if !ok {
		return fmt.Errorf("reservation %s not found", id)
	}
	reservation.IsPermanent = true
	if ticketID != nil {
		reservation.TicketID = ticketID
	}
	if bookingID != nil {
		reservation.BookingID = bookingID
	}
	return nil
}

func (f *fakeReservationStore) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.reservations, id)
	return nil
}

func (f *fakeReservationStore) ListExpired(cutoff time.Time, limit int) ([]*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var expired []*models.Reservation
	for _, reservation := range f.reservations {
		if reservation.IsPermanent || !reservation.CreatedAt.Before(cutoff) {
			continue
		}
		copied := *reservation
		expired = append(expired, &copied)
		if len(expired) == limit {
			break
		}
	}
	return expired, nil
}

func (f *fakeReservationStore) DeletePromoted(limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	deleted := 0
	for id, reservation := range f.reservations {
		if !reservation.IsPermanent {
			continue
		}
		delete(f.reservations, id)
		deleted++
		if deleted == limit {
			break
		}
	}
	return deleted, nil
}

func (f *fakeReservationStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reservations)
}

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[string]*models.Ticket)}
}

func (f *fakeTicketStore) Create(ticket *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	if ticket.BookingID == "" {
		ticket.BookingID = models.NewBookingID()
	}
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusPending
	}
	if ticket.PaymentStatus == "" {
		ticket.PaymentStatus = models.TicketPaymentPending
	}
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketStore) GetByID(id string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ticket, ok := f.tickets[id]
	if !ok {
		return nil, nil
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketStore) GetByBookingID(bookingID string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ticket := range f.tickets {
		if ticket.BookingID == bookingID {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTicketStore) GetPaidByReservation(reservationID string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ticket := range f.tickets {
		if ticket.ReservationID != nil && *ticket.ReservationID == reservationID && ticket.IsPaid() {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTicketStore) FindPaidBySeatOverlap(seatIDs []string) ([]*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []*models.Ticket
	for _, ticket := range f.tickets {
		if !ticket.IsPaid() {
			continue
		}
		for _, id := range seatIDs {
			if ticket.SeatIDs.Contains(id) {
				copied := *ticket
				matches = append(matches, &copied)
				break
			}
		}
	}
	return matches, nil
}

func (f *fakeTicketStore) ConfirmPaid(id, bookingID string, seatIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ticket, ok := f.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %s not found", id)
	}
	ticket.Status = models.TicketStatusConfirmed
	ticket.PaymentStatus = models.TicketPaymentPaid
	ticket.BookingID = bookingID
	if len(ticket.SeatIDs) == 0 {
		ticket.SeatIDs = models.UUIDArray(seatIDs)
	}
	return nil
}

func (f *fakeTicketStore) UpdateStatus(id string, status models.TicketStatus, paymentStatus models.TicketPaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ticket, ok := f.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %s not found", id)
	}
	ticket.Status = status
	ticket.PaymentStatus = paymentStatus
	return nil
}

func (f *fakeTicketStore) get(id string) models.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.tickets[id]
}

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[string]*models.Payment)}
}

func (f *fakePaymentStore) Create(payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusInitiated
	}
	copied := *payment
	f.payments[payment.ID] = &copied
	return nil
}

func (f *fakePaymentStore) GetByPidx(pidx string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, payment := range f.payments {
		if payment.Pidx == pidx {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) MarkStatus(id string, status models.PaymentStatus, transactionID string, raw json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	payment, ok := f.payments[id]
	if !ok {
		return fmt.Errorf("payment %s not found", id)
	}
	payment.Status = status
	if transactionID != "" {
		payment.TransactionID = &transactionID
	}
	payment.RawPayload = raw
	return nil
}

func (f *fakePaymentStore) SaveRawPayload(id string, raw json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if payment, ok := f.payments[id]; ok {
		payment.RawPayload = raw
	}
	return nil
}

func (f *fakePaymentStore) get(id string) models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.payments[id]
}

type fakeTripCatalog struct {
	snapshot *models.TripSnapshot
}

func (f *fakeTripCatalog) GetTripSnapshot(busID string, travelDate time.Time) (*models.TripSnapshot, error) {
	return f.snapshot, nil
}

type fakeGateway struct {
	initiateResponse *KhaltiInitiateResponse
	initiateErr      error
	initiateParams   *KhaltiInitiateParams
	lookupResponse   *KhaltiLookupResponse
	lookupErr        error
	lookupCalls      int
}

func (f *fakeGateway) Initiate(params *KhaltiInitiateParams) (*KhaltiInitiateResponse, error) {
	f.initiateParams = params
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	return f.initiateResponse, nil
}

func (f *fakeGateway) Lookup(pidx string) (*KhaltiLookupResponse, error) {
	f.lookupCalls++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.lookupResponse, nil
}
