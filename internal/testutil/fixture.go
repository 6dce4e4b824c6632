// Package testutil builds an in-memory SQLite store seeded for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
	"github.com/jwalitptl/salon-api/internal/repository/sqlstore"
	"github.com/jwalitptl/salon-api/pkg/security"
)

// Password is the plain-text password of every seeded account.
const Password = "s3cret-pass"

type Fixture struct {
	DB            *sqlx.DB
	Stores        repository.StoreRepository
	Services      repository.ServiceRepository
	Hours         repository.HoursRepository
	Professionals repository.ProfessionalRepository
	Accounts      repository.AccountRepository
	Bookings      repository.BookingRepository
	Outbox        repository.OutboxRepository
}

func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	db, err := sqlstore.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, sqlstore.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })

	base := sqlstore.NewBaseRepository(db)
	return &Fixture{
		DB:            db,
		Stores:        sqlstore.NewStoreRepository(base),
		Services:      sqlstore.NewServiceRepository(base),
		Hours:         sqlstore.NewHoursRepository(base),
		Professionals: sqlstore.NewProfessionalRepository(base),
		Accounts:      sqlstore.NewAccountRepository(base),
		Bookings:      sqlstore.NewBookingRepository(base),
		Outbox:        sqlstore.NewOutboxRepository(base),
	}
}

func (f *Fixture) Account(t *testing.T, role model.Role) *model.Account {
	t.Helper()

	hash, err := security.NewBcryptHasher(bcrypt.MinCost).Hash(Password)
	require.NoError(t, err)

	id := uuid.New()
	account := &model.Account{
		Base:         model.Base{ID: id},
		Email:        fmt.Sprintf("%s-%s@example.com", role, id.String()[:8]),
		Name:         "Test " + string(role),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	require.NoError(t, f.Accounts.Create(context.Background(), account))
	return account
}

func (f *Fixture) Store(t *testing.T, policyHours int) *model.Store {
	t.Helper()

	store := &model.Store{
		Name:                    "Salao " + uuid.NewString()[:6],
		City:                    "Recife",
		District:                "Boa Viagem",
		State:                   "PE",
		Address:                 "Av. Conselheiro Aguiar, 100",
		CancellationPolicyHours: policyHours,
		Active:                  true,
	}
	require.NoError(t, f.Stores.Create(context.Background(), store))
	return store
}

func (f *Fixture) Staff(t *testing.T, storeID uuid.UUID) *model.Account {
	t.Helper()

	account := f.Account(t, model.RoleStaff)
	require.NoError(t, f.Stores.AddStaff(context.Background(), &model.StoreStaff{
		StoreID:   storeID,
		AccountID: account.ID,
		Role:      model.StaffRoleEmployee,
	}))
	return account
}

func (f *Fixture) Service(t *testing.T, storeID uuid.UUID, minutes int, active bool) *model.Service {
	t.Helper()

	price := int64(5000)
	service := &model.Service{
		StoreID:         storeID,
		Name:            fmt.Sprintf("Corte %dmin", minutes),
		DurationMinutes: minutes,
		PriceCents:      &price,
		Active:          active,
	}
	require.NoError(t, f.Services.Create(context.Background(), service))
	return service
}

// OpenDay opens storeID on weekday between opens and closes ("HH:MM").
func (f *Fixture) OpenDay(t *testing.T, storeID uuid.UUID, weekday int, opens, closes string, granularity int) *model.OperatingWindow {
	t.Helper()

	o, err := model.ParseClock(opens)
	require.NoError(t, err)
	c, err := model.ParseClock(closes)
	require.NoError(t, err)

	w := &model.OperatingWindow{
		StoreID:            storeID,
		Weekday:            weekday,
		OpensAt:            o,
		ClosesAt:           c,
		GranularityMinutes: granularity,
	}
	require.NoError(t, f.Hours.Upsert(context.Background(), w))
	return w
}

// OpenAllWeek opens storeID every day between opens and closes.
func (f *Fixture) OpenAllWeek(t *testing.T, storeID uuid.UUID, opens, closes string, granularity int) {
	t.Helper()
	for wd := 0; wd < 7; wd++ {
		f.OpenDay(t, storeID, wd, opens, closes, granularity)
	}
}

// Booking inserts b directly, bypassing the booking manager's checks.
func (f *Fixture) Booking(t *testing.T, b *model.Booking) *model.Booking {
	t.Helper()

	if b.Origin == "" {
		b.Origin = model.BookingOriginApp
	}
	err := f.Bookings.WithTx(context.Background(), func(tx repository.BookingTx) error {
		return tx.Insert(context.Background(), b)
	})
	require.NoError(t, err)
	return b
}
