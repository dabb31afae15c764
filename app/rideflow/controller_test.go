package rideflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rideapp/backend"
	"rideapp/config"
	"rideapp/pkg/logger"
	"rideapp/pkg/models"
)

type fakeRows struct {
	mu        sync.Mutex
	inserted  []models.Ride
	updates   []map[string]any
	calls     int
	insertErr error
	gate      chan struct{} // when non-nil Insert blocks until closed
	nextID    int64
}

func (f *fakeRows) From(table string) backend.IQuery { return &fakeQuery{f: f, table: table} }

type fakeQuery struct {
	f     *fakeRows
	table string
}

func (q *fakeQuery) Select(string) backend.IQuery      { return q }
func (q *fakeQuery) Eq(string, any) backend.IQuery     { return q }
func (q *fakeQuery) Gte(string, any) backend.IQuery    { return q }
func (q *fakeQuery) Lte(string, any) backend.IQuery    { return q }
func (q *fakeQuery) Order(string, bool) backend.IQuery { return q }
func (q *fakeQuery) Limit(int) backend.IQuery          { return q }
func (q *fakeQuery) Get(context.Context, any) error    { return nil }
func (q *fakeQuery) Single(context.Context, any) error { return backend.ErrNoRows }
func (q *fakeQuery) Delete(context.Context) error      { return nil }

func (q *fakeQuery) Insert(ctx context.Context, row any, dest any) error {
	q.f.mu.Lock()
	q.f.calls++
	q.f.mu.Unlock()
	if q.f.gate != nil {
		select {
		case <-q.f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if q.f.insertErr != nil {
		return q.f.insertErr
	}
	ride := row.(models.Ride)
	q.f.mu.Lock()
	q.f.nextID++
	ride.ID = q.f.nextID
	q.f.inserted = append(q.f.inserted, ride)
	q.f.mu.Unlock()
	if dest != nil {
		b, _ := json.Marshal(ride)
		return json.Unmarshal(b, dest)
	}
	return nil
}

func (q *fakeQuery) Update(_ context.Context, values any) error {
	q.f.mu.Lock()
	q.f.calls++
	q.f.updates = append(q.f.updates, values.(map[string]any))
	q.f.mu.Unlock()
	return nil
}

func (f *fakeRows) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeChannel struct {
	rt    *fakeRealtime
	topic string
}

func (c *fakeChannel) Topic() string { return c.topic }
func (c *fakeChannel) Unsubscribe() error {
	c.rt.mu.Lock()
	defer c.rt.mu.Unlock()
	delete(c.rt.handlers, c.topic)
	c.rt.unsubs++
	return nil
}

type fakeRealtime struct {
	mu       sync.Mutex
	handlers map[string]backend.ChangeHandler
	unsubs   int
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{handlers: make(map[string]backend.ChangeHandler)}
}

func (f *fakeRealtime) Subscribe(_ context.Context, table, filter string, fn backend.ChangeHandler) (backend.IChannel, error) {
	topic := table + ":" + filter
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = fn
	return &fakeChannel{rt: f, topic: topic}, nil
}

// pushRide delivers a row update to the single live subscription.
func (f *fakeRealtime) pushRide(t *testing.T, ride models.Ride) {
	t.Helper()
	f.mu.Lock()
	if len(f.handlers) != 1 {
		f.mu.Unlock()
		t.Fatalf("expected exactly one live subscription, have %d", len(f.handlers))
	}
	var fn backend.ChangeHandler
	for _, h := range f.handlers {
		fn = h
	}
	f.mu.Unlock()
	rec, _ := json.Marshal(ride)
	fn(backend.ChangeEvent{Table: "rides", Type: "UPDATE", Record: rec})
}

func (f *fakeRealtime) liveTopics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	topics := make([]string, 0, len(f.handlers))
	for topic := range f.handlers {
		topics = append(topics, topic)
	}
	return topics
}

type fakeBackend struct {
	rows *fakeRows
	rt   *fakeRealtime
}

func (f *fakeBackend) Auth() backend.IAuth         { return nil }
func (f *fakeBackend) Rows() backend.IRows         { return f.rows }
func (f *fakeBackend) Realtime() backend.IRealtime { return f.rt }
func (f *fakeBackend) Close()                      {}

type fakeLocator struct {
	lat, lng float64
	err      error
}

func (l fakeLocator) Current(context.Context) (float64, float64, error) {
	return l.lat, l.lng, l.err
}

type fakeNav struct {
	mu      sync.Mutex
	screens []models.Screen
}

func (n *fakeNav) Navigate(s models.Screen) {
	n.mu.Lock()
	n.screens = append(n.screens, s)
	n.mu.Unlock()
}

func (n *fakeNav) visited() []models.Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Screen(nil), n.screens...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(msg string) {
	n.mu.Lock()
	n.messages = append(n.messages, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fakeIdent struct{ id string }

func (f fakeIdent) UserID() string { return f.id }

type fixture struct {
	ctrl  *Controller
	rows  *fakeRows
	rt    *fakeRealtime
	nav   *fakeNav
	notif *fakeNotifier
}

func newFixture(t *testing.T, loc Locator) *fixture {
	t.Helper()
	f := &fixture{
		rows:  &fakeRows{nextID: 41},
		rt:    newFakeRealtime(),
		nav:   &fakeNav{},
		notif: &fakeNotifier{},
	}
	cfg := config.Config{GeoTimeout: 200 * time.Millisecond}
	f.ctrl = New(cfg, &fakeBackend{rows: f.rows, rt: f.rt}, loc, f.nav, f.notif,
		fakeIdent{id: "rider-1"}, logger.New("rideflow-test", "error"))
	f.ctrl.Start(context.Background())
	t.Cleanup(f.ctrl.Stop)
	return f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestConfirmDestinationNavigatesBeforeInsertResolves(t *testing.T) {
	loc := fakeLocator{lat: -23.55, lng: -46.63}
	f := newFixture(t, loc)
	f.rows.gate = make(chan struct{})

	err := f.ctrl.ConfirmDestination(context.Background(), "Rua A, 123", "Shopping Center")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// optimistic: searching and on the map while the insert is held open
	waitFor(t, func() bool {
		return f.ctrl.State().Stage == StageSearching && len(f.nav.visited()) == 1
	})
	if got := f.nav.visited()[0]; got != models.ScreenHome {
		t.Fatalf("expected navigation to home, got %s", got)
	}
	if f.ctrl.State().RideID != 0 {
		t.Fatal("ride id set before the insert resolved")
	}

	close(f.rows.gate)
	waitFor(t, func() bool { return f.ctrl.State().RideID == 42 })

	f.rows.mu.Lock()
	ride := f.rows.inserted[0]
	f.rows.mu.Unlock()
	if ride.FromLabel != "Rua A, 123" || ride.ToLabel != "Shopping Center" {
		t.Fatalf("wrong locations: %q -> %q", ride.FromLabel, ride.ToLabel)
	}
	if ride.OriginLat != -23.55 || ride.OriginLng != -46.63 {
		t.Fatalf("wrong origin: %f,%f", ride.OriginLat, ride.OriginLng)
	}
	if ride.RiderID != "rider-1" || ride.Status != models.RideStatusRequested {
		t.Fatalf("wrong rider/status: %+v", ride)
	}
	if ride.PaymentMethodType != models.PaymentTypeCash {
		t.Fatalf("expected default cash payment, got %s", ride.PaymentMethodType)
	}
	if ride.RequestKey == "" {
		t.Fatal("missing request key")
	}

	topics := f.rt.liveTopics()
	if len(topics) != 1 || topics[0] != "rides:id=eq.42" {
		t.Fatalf("wrong subscription: %v", topics)
	}
}

func TestCancelledPushDuringEnRouteResetsAndNotifies(t *testing.T) {
	f := newFixture(t, fakeLocator{lat: -23.55, lng: -46.63})

	if err := f.ctrl.ConfirmDestination(context.Background(), "Rua A, 123", "Shopping Center"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	waitFor(t, func() bool { return f.ctrl.State().RideID == 42 })

	driver := "d9"
	f.rt.pushRide(t, models.Ride{ID: 42, Status: models.RideStatusAccepted, DriverID: &driver})
	waitFor(t, func() bool {
		s := f.ctrl.State()
		return s.Stage == StageEnRoute && s.DriverID == "d9"
	})

	f.rt.pushRide(t, models.Ride{ID: 42, Status: models.RideStatusCancelled, DriverID: &driver})
	waitFor(t, func() bool { return f.ctrl.State() == Initial() })
	if f.notif.count() != 1 {
		t.Fatalf("expected one cancellation notice, got %d", f.notif.count())
	}
	if len(f.rt.liveTopics()) != 0 {
		t.Fatal("subscription not torn down after cancellation")
	}
}

func TestLocationFailureAbortsWithoutWrite(t *testing.T) {
	f := newFixture(t, fakeLocator{err: errors.New("gps unavailable")})

	err := f.ctrl.ConfirmDestination(context.Background(), "A", "B")
	if err == nil {
		t.Fatal("expected a visible failure")
	}
	if f.ctrl.State().Stage != StageNone {
		t.Fatalf("stage moved despite failure: %s", f.ctrl.State().Stage)
	}
	if f.rows.callCount() != 0 {
		t.Fatal("backend write performed despite missing coordinate")
	}
}

func TestInsertFailureRollsBackOptimisticTransition(t *testing.T) {
	f := newFixture(t, fakeLocator{lat: 1, lng: 2})
	f.rows.insertErr = errors.New("row level security violation")

	if err := f.ctrl.ConfirmDestination(context.Background(), "A", "B"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	waitFor(t, func() bool {
		return f.ctrl.State().Stage == StageNone && f.notif.count() == 1
	})
	if len(f.rt.liveTopics()) != 0 {
		t.Fatal("subscription opened for a failed insert")
	}
}

func TestPaymentSelectionMakesNoBackendCall(t *testing.T) {
	f := newFixture(t, fakeLocator{lat: 1, lng: 2})

	f.ctrl.SelectPayment(models.PaymentMethod{ID: 7, Type: models.PaymentTypeCard, Brand: "Visa", Last4: "4242"})
	waitFor(t, func() bool { return f.ctrl.State().PaymentID == 7 })
	if f.rows.callCount() != 0 {
		t.Fatalf("payment selection hit the backend %d times", f.rows.callCount())
	}
	if got := f.ctrl.State().PaymentLabel; got != "Visa •••• 4242" {
		t.Fatalf("wrong label: %q", got)
	}

	f.ctrl.PaymentMethodDeleted(7)
	waitFor(t, func() bool {
		s := f.ctrl.State()
		return s.PaymentType == models.PaymentTypeCash && s.PaymentID == 0
	})
}

func TestSelectedPaymentAttachedToInsert(t *testing.T) {
	f := newFixture(t, fakeLocator{lat: 1, lng: 2})

	f.ctrl.SelectPayment(models.PaymentMethod{ID: 7, Type: models.PaymentTypeCard, Brand: "Visa", Last4: "4242"})
	waitFor(t, func() bool { return f.ctrl.State().PaymentID == 7 })

	if err := f.ctrl.ConfirmDestination(context.Background(), "A", "B"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	waitFor(t, func() bool { return f.ctrl.State().RideID == 42 })

	f.rows.mu.Lock()
	ride := f.rows.inserted[0]
	f.rows.mu.Unlock()
	if ride.PaymentMethodType != models.PaymentTypeCard || ride.PaymentMethodID == nil || *ride.PaymentMethodID != 7 {
		t.Fatalf("payment not attached: %+v", ride)
	}
}

func TestResubscribeReplacesPriorSubscription(t *testing.T) {
	f := newFixture(t, fakeLocator{lat: 1, lng: 2})

	if err := f.ctrl.ConfirmDestination(context.Background(), "A", "B"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	waitFor(t, func() bool { return f.ctrl.State().RideID == 42 })

	f.ctrl.Cancel()
	waitFor(t, func() bool { return f.ctrl.State().Stage == StageNone })
	if len(f.rt.liveTopics()) != 0 {
		t.Fatal("cancel left a live subscription")
	}

	if err := f.ctrl.ConfirmDestination(context.Background(), "C", "D"); err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
	waitFor(t, func() bool { return f.ctrl.State().RideID == 43 })

	topics := f.rt.liveTopics()
	if len(topics) != 1 || topics[0] != fmt.Sprintf("rides:id=eq.%d", 43) {
		t.Fatalf("expected single subscription on ride 43, got %v", topics)
	}
}

func TestRatingSubmissionFinishesFlow(t *testing.T) {
	f := newFixture(t, fakeLocator{lat: 1, lng: 2})

	if err := f.ctrl.ConfirmDestination(context.Background(), "A", "B"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	waitFor(t, func() bool { return f.ctrl.State().RideID == 42 })

	driver := "d9"
	f.rt.pushRide(t, models.Ride{ID: 42, Status: models.RideStatusAccepted, DriverID: &driver})
	f.rt.pushRide(t, models.Ride{ID: 42, Status: models.RideStatusInProgress})
	f.rt.pushRide(t, models.Ride{ID: 42, Status: models.RideStatusCompleted})
	waitFor(t, func() bool { return f.ctrl.State().Stage == StageRating })

	if err := f.ctrl.SubmitRating(context.Background(), 5); err != nil {
		t.Fatalf("rating failed: %v", err)
	}
	waitFor(t, func() bool { return f.ctrl.State() == Initial() })

	f.rows.mu.Lock()
	updates := f.rows.updates
	f.rows.mu.Unlock()
	if len(updates) != 1 || updates[0]["rating"] != 5 {
		t.Fatalf("rating not written: %v", updates)
	}
}
