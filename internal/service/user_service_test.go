package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evgesha-thunder/user-service/internal/store"
	"github.com/Evgesha-thunder/user-service/pkg/logger"
	"github.com/Evgesha-thunder/user-service/pkg/models"
)

type sentEvent struct {
	Operation models.UserOperation
	User      models.User
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (r *recordingSender) SendUserEvent(_ context.Context, op models.UserOperation, user models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{Operation: op, User: user})
}

// faultyStore fails selected operations on top of a MemoryStore.
type faultyStore struct {
	*store.MemoryStore
	saveErr   error
	findErr   error
	updateErr error
	deleteErr error
	// staleRead, when set, is returned by FindByID in place of the stored row.
	staleRead *models.User
}

func (f *faultyStore) Save(ctx context.Context, u *models.User) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	return f.MemoryStore.Save(ctx, u)
}

func (f *faultyStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.MemoryStore.FindByEmail(ctx, email)
}

func (f *faultyStore) Update(ctx context.Context, u *models.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.MemoryStore.Update(ctx, u)
}

func (f *faultyStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if f.staleRead != nil {
		u := *f.staleRead
		return &u, nil
	}
	return f.MemoryStore.FindByID(ctx, id)
}

func (f *faultyStore) DeleteByID(ctx context.Context, id int64) (*models.User, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return f.MemoryStore.DeleteByID(ctx, id)
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)

func newTestService(st store.Store) (*UserService, *recordingSender) {
	sender := &recordingSender{}
	svc := NewUserService(st, sender, logger.Discard(), WithClock(func() time.Time { return fixedNow }))
	return svc, sender
}

var validInput = models.UserInput{Name: "Test", Email: "test@mail.com", Age: 22}

func TestCreate_ThenFindByID(t *testing.T) {
	svc, sender := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput)
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, fixedNow.Truncate(time.Microsecond), created.CreatedAt)

	found, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *found)
	assert.Equal(t, validInput.Name, found.Name)
	assert.Equal(t, validInput.Email, found.Email)
	assert.Equal(t, validInput.Age, found.Age)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, models.OperationCreate, sender.sent[0].Operation)
	assert.Equal(t, "test@mail.com", sender.sent[0].User.Email)
	assert.Equal(t, created.ID, sender.sent[0].User.ID)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	mem := store.NewMemoryStore()
	svc, sender := newTestService(mem)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput)
	require.NoError(t, err)

	_, err = svc.Create(ctx, models.UserInput{Name: "Other", Email: "test@mail.com", Age: 40})

	require.ErrorIs(t, err, ErrEmailAlreadyExists)
	assert.Contains(t, err.Error(), "test@mail.com")
	assert.Equal(t, 1, mem.Len())
	assert.Len(t, sender.sent, 1, "failed create must not publish")
}

func TestCreate_ConstraintBackstopMapsToEmailExists(t *testing.T) {
	st := &faultyStore{
		MemoryStore: store.NewMemoryStore(),
		saveErr:     store.ErrDuplicateKey,
	}
	svc, sender := newTestService(st)

	_, err := svc.Create(context.Background(), validInput)

	var exists *EmailExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "test@mail.com", exists.Email)
	assert.Empty(t, sender.sent)
}

func TestCreate_PersistenceFailure(t *testing.T) {
	st := &faultyStore{
		MemoryStore: store.NewMemoryStore(),
		saveErr:     errors.New("connection refused"),
	}
	svc, sender := newTestService(st)

	_, err := svc.Create(context.Background(), validInput)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrEmailAlreadyExists)
	assert.Empty(t, sender.sent)
}

func TestCreate_EmailLookupFailure(t *testing.T) {
	st := &faultyStore{
		MemoryStore: store.NewMemoryStore(),
		findErr:     errors.New("timeout"),
	}
	svc, sender := newTestService(st)

	_, err := svc.Create(context.Background(), validInput)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, sender.sent)
}

func TestFindByID_NotFound(t *testing.T) {
	svc, _ := newTestService(store.NewMemoryStore())

	_, err := svc.FindByID(context.Background(), 999)

	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "user with id 999 not found", err.Error())
}

func TestFindAll_EmptyStore(t *testing.T) {
	svc, _ := newTestService(store.NewMemoryStore())

	users, err := svc.FindAll(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUpdate_PreservesIDAndCreatedAt(t *testing.T) {
	svc, sender := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput)
	require.NoError(t, err)

	err = svc.Update(ctx, created.ID, models.UserInput{Name: "Updated", Email: "new@mail.com", Age: 30})
	require.NoError(t, err)

	got, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.User{
		ID:        created.ID,
		Name:      "Updated",
		Email:     "new@mail.com",
		Age:       30,
		CreatedAt: created.CreatedAt,
	}, *got)
	assert.Len(t, sender.sent, 1, "update must not publish")
}

func TestUpdate_NotFoundLeavesStoreUnchanged(t *testing.T) {
	mem := store.NewMemoryStore()
	svc, _ := newTestService(mem)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput)
	require.NoError(t, err)

	err = svc.Update(ctx, 999, models.UserInput{Name: "Updated", Email: "new@mail.com", Age: 30})

	require.ErrorIs(t, err, ErrNotFound)
	got, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)
	assert.Equal(t, 1, mem.Len())
}

func TestUpdate_EmailTakenByAnotherUser(t *testing.T) {
	svc, _ := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput)
	require.NoError(t, err)
	other, err := svc.Create(ctx, models.UserInput{Name: "Other", Email: "other@mail.com", Age: 40})
	require.NoError(t, err)

	err = svc.Update(ctx, other.ID, models.UserInput{Name: "Other", Email: "test@mail.com", Age: 40})

	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestUpdate_PersistenceFailure(t *testing.T) {
	st := &faultyStore{MemoryStore: store.NewMemoryStore()}
	svc, _ := newTestService(st)
	created, err := svc.Create(context.Background(), validInput)
	require.NoError(t, err)

	st.updateErr = errors.New("deadlock detected")
	err = svc.Update(context.Background(), created.ID, validInput)

	assert.ErrorIs(t, err, ErrPersistence)
}

func TestDelete_RemovesAndPublishes(t *testing.T) {
	svc, sender := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteByID(ctx, created.ID))

	_, err = svc.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, models.OperationDelete, sender.sent[1].Operation)
	assert.Equal(t, "test@mail.com", sender.sent[1].User.Email)
	assert.Equal(t, created.ID, sender.sent[1].User.ID)
}

func TestDelete_EventCarriesDeletedRowNotPriorRead(t *testing.T) {
	st := &faultyStore{MemoryStore: store.NewMemoryStore()}
	svc, sender := newTestService(st)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, created.ID, models.UserInput{Name: "Renamed", Email: "new@mail.com", Age: 30}))

	stale := *created
	st.staleRead = &stale
	require.NoError(t, svc.DeleteByID(ctx, created.ID))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, models.OperationDelete, sender.sent[1].Operation)
	assert.Equal(t, "new@mail.com", sender.sent[1].User.Email)
}

func TestDelete_NotFound(t *testing.T) {
	svc, sender := newTestService(store.NewMemoryStore())

	err := svc.DeleteByID(context.Background(), 999)

	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "999")
	assert.Empty(t, sender.sent)
}

func TestDelete_ConcurrentDeleteMapsToNotFound(t *testing.T) {
	st := &faultyStore{MemoryStore: store.NewMemoryStore()}
	svc, sender := newTestService(st)
	created, err := svc.Create(context.Background(), validInput)
	require.NoError(t, err)

	st.deleteErr = store.ErrNotFound
	err = svc.DeleteByID(context.Background(), created.ID)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, sender.sent, 1, "only the create event is expected")
}

func TestDelete_PersistenceFailureDoesNotPublish(t *testing.T) {
	st := &faultyStore{MemoryStore: store.NewMemoryStore()}
	svc, sender := newTestService(st)
	created, err := svc.Create(context.Background(), validInput)
	require.NoError(t, err)

	st.deleteErr = errors.New("connection reset")
	err = svc.DeleteByID(context.Background(), created.ID)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, sender.sent, 1)
}

func TestConcurrentCreatesWithSameEmail(t *testing.T) {
	mem := store.NewMemoryStore()
	svc, sender := newTestService(mem)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), validInput)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrEmailAlreadyExists):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
	assert.Equal(t, 1, mem.Len())
	assert.Len(t, sender.sent, 1)
}
