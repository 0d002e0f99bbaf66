package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tmokoena/eventdash/internal/domain/event"
	"github.com/tmokoena/eventdash/internal/domain/job"
	"github.com/tmokoena/eventdash/internal/domain/registration"
	"github.com/tmokoena/eventdash/internal/http/handlers"
	"github.com/tmokoena/eventdash/internal/jobs"
	"github.com/tmokoena/eventdash/internal/observability"
)

// fakeTx embeds the pgx.Tx interface so only the methods the handler calls
// need real implementations.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeRegsStore struct {
	tx       *fakeTx
	createFn func(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error)
	listFn   func(ctx context.Context, eventID string) ([]registration.Registration, error)
	deleteFn func(ctx context.Context, eventID, registrationID string) error
}

func (f *fakeRegsStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if f.tx == nil {
		f.tx = &fakeTx{}
	}
	return f.tx, nil
}

func (f *fakeRegsStore) CreateTx(ctx context.Context, tx pgx.Tx, req registration.CreateRegistrationRequest) (registration.Registration, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return registration.Registration{}, nil
}

func (f *fakeRegsStore) ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error) {
	if f.listFn != nil {
		return f.listFn(ctx, eventID)
	}
	return []registration.Registration{}, nil
}

func (f *fakeRegsStore) Delete(ctx context.Context, eventID, registrationID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, eventID, registrationID)
	}
	return nil
}

type fakeJobsCreator struct {
	created []job.CreateRequest
	err     error
}

func (f *fakeJobsCreator) CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
	if f.err != nil {
		return job.Job{}, f.err
	}
	f.created = append(f.created, req)
	return job.New(req), nil
}

type fakeWaker struct {
	woken []string
}

func (f *fakeWaker) Wake(ctx context.Context, jobID string) error {
	f.woken = append(f.woken, jobID)
	return nil
}

func newRegsRouter(store *fakeRegsStore, jobsRepo *fakeJobsCreator, waker *fakeWaker) http.Handler {
	prom := observability.NewProm(prometheus.NewRegistry())
	h := handlers.NewRegistrationsHandler(store, jobsRepo, waker, prom)

	r := gin.New()
	r.POST("/events/:id/registrations", h.Register)
	r.GET("/events/:id/registrations", h.ListForEvent)
	r.DELETE("/events/:id/registrations/:registrationId", h.Unregister)
	return r
}

func postRegistration(t *testing.T, r http.Handler, eventID, name string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{"attendeeName": name})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/events/"+eventID+"/registrations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegister_AcceptedEnqueuesConfirmationJob(t *testing.T) {
	eventID := uuid.NewString()
	regID := uuid.NewString()

	store := &fakeRegsStore{
		createFn: func(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error) {
			if req.EventID != eventID {
				t.Fatalf("eventID = %q, want %q (URL param must win)", req.EventID, eventID)
			}
			reg := registration.NewFromCreateRequest(req)
			reg.ID = regID
			return reg, nil
		},
	}
	jobsRepo := &fakeJobsCreator{}
	waker := &fakeWaker{}

	r := newRegsRouter(store, jobsRepo, waker)
	rec := postRegistration(t, r, eventID, "Alice")

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", rec.Code, rec.Body.String())
	}

	if len(jobsRepo.created) != 1 {
		t.Fatalf("jobs enqueued = %d, want 1", len(jobsRepo.created))
	}
	j := jobsRepo.created[0]
	if j.Type != jobs.TypeRegistrationConfirmation {
		t.Fatalf("job type = %q", j.Type)
	}
	if j.IdempotencyKey == nil || *j.IdempotencyKey != jobs.IdempotencyKey(regID) {
		t.Fatalf("idempotency key = %v", j.IdempotencyKey)
	}

	if !store.tx.committed {
		t.Fatal("transaction was not committed")
	}
	if len(waker.woken) != 1 {
		t.Fatalf("wake signals = %d, want 1", len(waker.woken))
	}
}

func TestRegister_CapacityExceeded(t *testing.T) {
	store := &fakeRegsStore{
		createFn: func(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error) {
			return registration.Registration{}, &registration.CapacityError{
				EventTitle: "Go Meetup",
				Capacity:   2,
				Count:      2,
			}
		},
	}
	jobsRepo := &fakeJobsCreator{}

	r := newRegsRouter(store, jobsRepo, &fakeWaker{})
	rec := postRegistration(t, r, uuid.NewString(), "Carol")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != "capacity_exceeded" {
		t.Fatalf("code = %q, want capacity_exceeded", resp.Error.Code)
	}
	want := `Event "Go Meetup" is at full capacity (2/2)`
	if resp.Error.Message != want {
		t.Fatalf("message = %q, want %q", resp.Error.Message, want)
	}

	if len(jobsRepo.created) != 0 {
		t.Fatal("no job may be enqueued for a rejected registration")
	}
	if store.tx.committed {
		t.Fatal("transaction must not commit on rejection")
	}
}

func TestRegister_DuplicateAttendee(t *testing.T) {
	store := &fakeRegsStore{
		createFn: func(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error) {
			return registration.Registration{}, &registration.DuplicateError{AttendeeName: req.AttendeeName}
		},
	}

	r := newRegsRouter(store, &fakeJobsCreator{}, &fakeWaker{})
	rec := postRegistration(t, r, uuid.NewString(), "Alice")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != "duplicate_attendee" {
		t.Fatalf("code = %q, want duplicate_attendee", resp.Error.Code)
	}
}

func TestRegister_EventNotFound(t *testing.T) {
	store := &fakeRegsStore{
		createFn: func(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error) {
			return registration.Registration{}, event.ErrNotFound
		},
	}

	r := newRegsRouter(store, &fakeJobsCreator{}, &fakeWaker{})
	rec := postRegistration(t, r, uuid.NewString(), "Alice")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRegister_MissingAttendeeName(t *testing.T) {
	store := &fakeRegsStore{
		createFn: func(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error) {
			t.Fatal("store must not be reached without an attendee name")
			return registration.Registration{}, nil
		},
	}

	r := newRegsRouter(store, &fakeJobsCreator{}, &fakeWaker{})
	rec := postRegistration(t, r, uuid.NewString(), "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body=%s", rec.Code, rec.Body.String())
	}
}

func TestUnregister_NotFound(t *testing.T) {
	store := &fakeRegsStore{
		deleteFn: func(ctx context.Context, eventID, registrationID string) error {
			return registration.ErrNotFound
		},
	}

	r := newRegsRouter(store, &fakeJobsCreator{}, &fakeWaker{})

	req := httptest.NewRequest(http.MethodDelete,
		"/events/"+uuid.NewString()+"/registrations/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
