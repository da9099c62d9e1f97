package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/apperror"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/Eursukkul/booking-microservice/reservation-service/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- In-memory store: rooms, reservations, payments + serializing transactor ---

type memStore struct {
	txMu sync.Mutex // one transaction at a time, like a row lock held for the whole tx
	mu   sync.Mutex // guards the maps

	rooms        map[uint]models.Room
	reservations map[uint]models.Reservation
	payments     map[uint]models.Payment
	nextID       uint

	// failSave makes Save fail for the given reservation id.
	failSave map[uint]error
	// failSetAvailable makes every SetAvailable call fail.
	failSetAvailable error
	// snapshots counts WithinSnapshot calls.
	snapshots int
}

func newMemStore() *memStore {
	return &memStore{
		rooms:        map[uint]models.Room{},
		reservations: map[uint]models.Reservation{},
		payments:     map[uint]models.Payment{},
		failSave:     map[uint]error{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	rooms, res, pays := cloneMap(m.rooms), cloneMap(m.reservations), cloneMap(m.payments)
	m.mu.Unlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.rooms, m.reservations, m.payments = rooms, res, pays
		m.mu.Unlock()
		return err
	}
	return nil
}

// WithinSnapshot holds the transaction lock for the whole read so no write
// can land between the queries in fn.
func (m *memStore) WithinSnapshot(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.snapshots++
	return fn(nil)
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) addRoom(number, price string, available bool) models.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := models.Room{ID: m.id(), RoomNumber: number, RoomType: "standard", PricePerNight: amt(price), MaxOccupancy: 2, Available: available}
	m.rooms[r.ID] = r
	return r
}

func (m *memStore) putReservation(res models.Reservation) models.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res.ID == 0 {
		res.ID = m.id()
	}
	m.reservations[res.ID] = res
	return res
}

func (m *memStore) reservation(id uint) models.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservations[id]
}

func (m *memStore) room(id uint) models.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[id]
}

func (m *memStore) paymentsFor(id uint) []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if p.ReservationID == id {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- RoomRepository ---

type memRooms struct{ *memStore }

func (r memRooms) Create(ctx context.Context, tx *gorm.DB, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rooms {
		if existing.RoomNumber == room.RoomNumber {
			return apperror.ErrDuplicateRoom
		}
	}
	room.ID = r.id()
	r.rooms[room.ID] = *room
	return nil
}

func (r memRooms) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &room, nil
}

func (r memRooms) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Room, error) {
	return r.FindByID(ctx, id)
}

func (r memRooms) FindAll(ctx context.Context) ([]models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out, nil
}

func (r memRooms) FindAvailable(ctx context.Context, checkIn, checkOut time.Time) ([]models.Room, error) {
	all, _ := r.FindAll(ctx)
	var out []models.Room
	for _, room := range all {
		if !room.Available {
			continue
		}
		if !checkIn.IsZero() {
			if busy, _ := r.CheckOverlap(ctx, nil, room.ID, checkIn, checkOut); busy {
				continue
			}
		}
		out = append(out, room)
	}
	return out, nil
}

func (r memRooms) Update(ctx context.Context, tx *gorm.DB, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = *room
	return nil
}

func (r memRooms) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
	return nil
}

func (r memRooms) CountActiveReservations(ctx context.Context, tx *gorm.DB, roomID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, res := range r.reservations {
		if res.RoomID == roomID && res.BookingStatus != models.StatusCancelled {
			n++
		}
	}
	return n, nil
}

func (r memRooms) CheckOverlap(ctx context.Context, tx *gorm.DB, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.RoomID != roomID || !res.Blocks() {
			continue
		}
		if res.CheckInDate.Before(checkOut) && res.CheckOutDate.After(checkIn) {
			return true, nil
		}
	}
	return false, nil
}

func (r memRooms) SetAvailable(ctx context.Context, tx *gorm.DB, roomID uint, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSetAvailable != nil {
		return r.failSetAvailable
	}
	room := r.rooms[roomID]
	room.Available = available
	r.rooms[roomID] = room
	return nil
}

// --- ReservationRepository ---

type memReservations struct{ *memStore }

func (r memReservations) Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res.ID = r.id()
	stored := *res
	stored.Room = nil
	r.reservations[res.ID] = stored
	return nil
}

func (r memReservations) Save(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failSave[res.ID]; err != nil {
		return err
	}
	stored := *res
	stored.Room = nil
	r.reservations[res.ID] = stored
	return nil
}

func (r memReservations) FindByID(ctx context.Context, id uint) (*models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if room, ok := r.rooms[res.RoomID]; ok {
		res.Room = &room
	}
	return &res, nil
}

func (r memReservations) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Reservation, error) {
	res, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Room = nil
	return res, nil
}

func (r memReservations) List(ctx context.Context, tx *gorm.DB, f repository.ReservationFilter) ([]models.Reservation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, res := range r.reservations {
		if f.UserID != "" && res.UserID != f.UserID {
			continue
		}
		if f.RoomID != 0 && res.RoomID != f.RoomID {
			continue
		}
		if f.BookingStatus != "" && res.BookingStatus != f.BookingStatus {
			continue
		}
		if len(f.PaymentStatuses) > 0 && !containsStatus(f.PaymentStatuses, res.PaymentStatus) {
			continue
		}
		if !f.CheckOutFrom.IsZero() && res.CheckOutDate.Before(f.CheckOutFrom) {
			continue
		}
		if !f.CheckOutTo.IsZero() && res.CheckOutDate.After(f.CheckOutTo) {
			continue
		}
		if f.InHouse && (!res.IsCheckedIn || res.IsCheckedOut) {
			continue
		}
		if f.ExcludeCanceled && res.BookingStatus == models.StatusCancelled {
			continue
		}
		if f.ExcludeNoShow && res.CheckInStatus == models.CheckInNoShow {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func containsStatus(list []models.PaymentStatus, s models.PaymentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r memReservations) FindNoShowCandidates(ctx context.Context, checkInDate time.Time) ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, res := range r.reservations {
		if res.CheckInDate.Equal(checkInDate) && res.BookingStatus == models.StatusConfirmed && !res.IsCheckedIn && !res.IsNoShow {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memReservations) FindPurgeable(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint
	for _, res := range r.reservations {
		if (res.BookingStatus == models.StatusCancelled || res.CheckInStatus == models.CheckInNoShow) && res.CreatedAt.Before(cutoff) {
			ids = append(ids, res.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r memReservations) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.reservations, id)
	}
	return nil
}

// --- PaymentRepository ---

type memPayments struct{ *memStore }

func (r memPayments) Create(ctx context.Context, tx *gorm.DB, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.payments[p.ID] = *p
	return nil
}

func (r memPayments) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r memPayments) FindByReservation(ctx context.Context, tx *gorm.DB, reservationID uint) ([]models.Payment, error) {
	return r.paymentsFor(reservationID), nil
}

func (r memPayments) FindByReservationIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, id := range ids {
		out = append(out, r.paymentsFor(id)...)
	}
	return out, nil
}

func (r memPayments) List(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if userID != "" && r.reservations[p.ReservationID].UserID != userID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memPayments) DeleteByReservationIDs(ctx context.Context, tx *gorm.DB, ids []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := map[uint]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	for id, p := range r.payments {
		if drop[p.ReservationID] {
			delete(r.payments, id)
		}
	}
	return nil
}

// --- Notifier + Locker fakes ---

type notification struct {
	kind          models.InvoiceKind
	reservationID uint
	paymentID     uint
	fullyPaid     bool
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyInvoice(ctx context.Context, kind models.InvoiceKind, res models.Reservation, p models.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind: kind, reservationID: res.ID, paymentID: p.ID, fullyPaid: res.IsFullyPaid})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

// --- helpers ---

var (
	guest  = models.Principal{ID: "user-1", Role: models.RoleUser}
	other  = models.Principal{ID: "user-2", Role: models.RoleUser}
	admin  = models.Principal{ID: "admin-1", Role: models.RoleAdmin}
	nobody = models.Principal{}

	errBoom = errors.New("boom")
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}
