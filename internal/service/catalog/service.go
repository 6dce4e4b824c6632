// Package catalog manages what a store offers: the store itself, its
// services, opening hours, cancellation policy, professionals and staff.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
	"github.com/jwalitptl/salon-api/pkg/logger"
)

type CatalogServicer interface {
	SearchStores(ctx context.Context, filters *model.StoreFilters) ([]*model.Store, error)
	GetStore(ctx context.Context, id uuid.UUID) (*model.StoreDetails, error)
	CreateStore(ctx context.Context, p model.Principal, req *model.CreateStoreRequest) (*model.Store, error)
	UpdateStore(ctx context.Context, p model.Principal, storeID uuid.UUID, req *model.UpdateStoreRequest) (*model.Store, error)
	DeactivateStore(ctx context.Context, p model.Principal, storeID uuid.UUID) error
	AddStaff(ctx context.Context, p model.Principal, storeID uuid.UUID, req *model.AddStaffRequest) error

	CreateService(ctx context.Context, p model.Principal, storeID uuid.UUID, req *model.CreateServiceRequest) (*model.Service, error)
	UpdateService(ctx context.Context, p model.Principal, storeID, serviceID uuid.UUID, req *model.UpdateServiceRequest) (*model.Service, error)
	DeactivateService(ctx context.Context, p model.Principal, storeID, serviceID uuid.UUID) error

	UpsertHours(ctx context.Context, p model.Principal, storeID uuid.UUID, weekday int, req *model.UpsertHoursRequest) (*model.OperatingWindow, error)
	DeleteHours(ctx context.Context, p model.Principal, storeID uuid.UUID, weekday int) error
	UpdateCancellationPolicy(ctx context.Context, p model.Principal, storeID uuid.UUID, hours int) (*model.Store, error)

	ListProfessionals(ctx context.Context, storeID uuid.UUID) ([]*model.Professional, error)
	CreateProfessional(ctx context.Context, p model.Principal, storeID uuid.UUID, req *model.CreateProfessionalRequest) (*model.Professional, error)
}

type Service struct {
	stores        repository.StoreRepository
	services      repository.ServiceRepository
	hours         repository.HoursRepository
	professionals repository.ProfessionalRepository
	accounts      repository.AccountRepository
	log           *logger.Logger

	defaultGranularity int
}

type Option func(*Service)

// WithDefaultGranularity sets the slot step used when hours are saved
// without one.
func WithDefaultGranularity(minutes int) Option {
	return func(s *Service) { s.defaultGranularity = minutes }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(
	stores repository.StoreRepository,
	services repository.ServiceRepository,
	hours repository.HoursRepository,
	professionals repository.ProfessionalRepository,
	accounts repository.AccountRepository,
	opts ...Option,
) *Service {
	s := &Service{
		stores:             stores,
		services:           services,
		hours:              hours,
		professionals:      professionals,
		accounts:           accounts,
		log:                logger.Nop(),
		defaultGranularity: 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SearchStores(ctx context.Context, filters *model.StoreFilters) ([]*model.Store, error) {
	return s.stores.List(ctx, filters)
}

// GetStore returns an active store with its active services and hours.
func (s *Service) GetStore(ctx context.Context, id uuid.UUID) (*model.StoreDetails, error) {
	store, err := s.activeStore(ctx, id)
	if err != nil {
		return nil, err
	}
	services, err := s.services.ListByStore(ctx, id, true)
	if err != nil {
		return nil, err
	}
	hours, err := s.hours.List(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.StoreDetails{Store: store, Services: services, Hours: hours}, nil
}

func (s *Service) CreateStore(ctx context.Context, p model.Principal, req *model.CreateStoreRequest) (*model.Store, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, model.NewValidationError("name", "is required")
	}
	if req.CancellationPolicyHours < 0 {
		return nil, model.NewValidationError("cancellation_policy_hours", "must not be negative")
	}

	store := &model.Store{
		Name:                    strings.TrimSpace(req.Name),
		City:                    req.City,
		District:                req.District,
		State:                   strings.ToUpper(req.State),
		Address:                 req.Address,
		Phone:                   req.Phone,
		CancellationPolicyHours: req.CancellationPolicyHours,
		Active:                  true,
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}
	s.log.Info("store created", "store_id", store.ID, "name", store.Name)
	return store, nil
}

// UpdateStore edits a store's profile. Admins and the store's staff may.
func (s *Service) UpdateStore(ctx context.Context, p model.Principal, storeID uuid.UUID, req *model.UpdateStoreRequest) (*model.Store, error) {
	if err := s.authorize(ctx, p, storeID); err != nil {
		return nil, err
	}
	store, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return nil, notFound("store", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, model.NewValidationError("name", "is required")
		}
		store.Name = name
	}
	if req.City != nil {
		city := strings.TrimSpace(*req.City)
		if city == "" {
			return nil, model.NewValidationError("city", "is required")
		}
		store.City = city
	}
	if req.District != nil {
		store.District = *req.District
	}
	if req.State != nil {
		store.State = strings.ToUpper(*req.State)
	}
	if req.Address != nil {
		store.Address = *req.Address
	}
	if req.Phone != nil {
		store.Phone = req.Phone
		if *req.Phone == "" {
			store.Phone = nil
		}
	}

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, notFound("store", err)
	}
	s.log.Info("store updated", "store_id", store.ID)
	return store, nil
}

// DeactivateStore hides a store from search and stops new bookings. Its
// existing bookings are kept. Deactivating twice is a no-op.
func (s *Service) DeactivateStore(ctx context.Context, p model.Principal, storeID uuid.UUID) error {
	if !p.IsAdmin() {
		return model.ErrForbidden
	}
	store, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return notFound("store", err)
	}
	if !store.Active {
		return nil
	}
	store.Active = false
	if err := s.stores.Update(ctx, store); err != nil {
		return notFound("store", err)
	}
	s.log.Info("store deactivated", "store_id", storeID, "by", p.AccountID)
	return nil
}

// AddStaff grants an existing staff account membership of a store.
func (s *Service) AddStaff(ctx context.Context, p model.Principal, storeID uuid.UUID, req *model.AddStaffRequest) error {
	if !p.IsAdmin() {
		return model.ErrForbidden
	}
	if _, err := s.activeStore(ctx, storeID); err != nil {
		return err
	}
	account, err := s.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return notFound("account", err)
	}
	if account.Role != model.RoleStaff {
		return model.NewValidationError("account_id", "must be a staff account")
	}
	return s.stores.AddStaff(ctx, &model.StoreStaff{StoreID: storeID, AccountID: account.ID, Role: req.Role})
}

func (s *Service) CreateService(ctx context.Context, p model.Principal, storeID uuid.UUID, req *model.CreateServiceRequest) (*model.Service, error) {
	if err := s.authorize(ctx, p, storeID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, model.NewValidationError("name", "is required")
	}
	if err := validDuration(req.DurationMinutes); err != nil {
		return nil, err
	}

	service := &model.Service{
		StoreID:         storeID,
		Name:            strings.TrimSpace(req.Name),
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Active:          true,
	}
	if err := s.services.Create(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

// UpdateService applies the fields present in req. Bookings already made
// keep the duration they were created with.
func (s *Service) UpdateService(ctx context.Context, p model.Principal, storeID, serviceID uuid.UUID, req *model.UpdateServiceRequest) (*model.Service, error) {
	service, err := s.storeService(ctx, p, storeID, serviceID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, model.NewValidationError("name", "must not be empty")
		}
		service.Name = strings.TrimSpace(*req.Name)
	}
	if req.DurationMinutes != nil {
		if err := validDuration(*req.DurationMinutes); err != nil {
			return nil, err
		}
		service.DurationMinutes = *req.DurationMinutes
	}
	if req.PriceCents != nil {
		service.PriceCents = req.PriceCents
	}
	if req.Active != nil {
		service.Active = *req.Active
	}

	if err := s.services.Update(ctx, service); err != nil {
		return nil, notFound("service", err)
	}
	return service, nil
}

// DeactivateService hides a service from new bookings. Existing bookings
// are left alone.
func (s *Service) DeactivateService(ctx context.Context, p model.Principal, storeID, serviceID uuid.UUID) error {
	service, err := s.storeService(ctx, p, storeID, serviceID)
	if err != nil {
		return err
	}
	if !service.Active {
		return nil
	}
	service.Active = false
	if err := s.services.Update(ctx, service); err != nil {
		return notFound("service", err)
	}
	s.log.Info("service deactivated", "store_id", storeID, "service_id", serviceID)
	return nil
}

func (s *Service) UpsertHours(ctx context.Context, p model.Principal, storeID uuid.UUID, weekday int, req *model.UpsertHoursRequest) (*model.OperatingWindow, error) {
	if err := s.authorize(ctx, p, storeID); err != nil {
		return nil, err
	}

	opens, err := model.ParseClock(req.OpensAt)
	if err != nil {
		return nil, model.NewValidationError("opens_at", err.Error())
	}
	closes, err := model.ParseClock(req.ClosesAt)
	if err != nil {
		return nil, model.NewValidationError("closes_at", err.Error())
	}
	w := &model.OperatingWindow{
		StoreID:            storeID,
		Weekday:            weekday,
		OpensAt:            opens,
		ClosesAt:           closes,
		GranularityMinutes: req.GranularityMinutes,
	}
	if w.GranularityMinutes == 0 {
		w.GranularityMinutes = s.defaultGranularity
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	if err := s.hours.Upsert(ctx, w); err != nil {
		return nil, err
	}
	s.log.Info("operating hours saved", "store_id", storeID, "weekday", weekday,
		"opens_at", opens.String(), "closes_at", closes.String())
	return w, nil
}

// DeleteHours closes the store on weekday.
func (s *Service) DeleteHours(ctx context.Context, p model.Principal, storeID uuid.UUID, weekday int) error {
	if weekday < 0 || weekday > 6 {
		return model.NewValidationError("weekday", "must be between 0 and 6")
	}
	if err := s.authorize(ctx, p, storeID); err != nil {
		return err
	}
	return notFound("operating hours", s.hours.Delete(ctx, storeID, weekday))
}

func (s *Service) UpdateCancellationPolicy(ctx context.Context, p model.Principal, storeID uuid.UUID, hours int) (*model.Store, error) {
	if hours < 0 {
		return nil, model.NewValidationError("min_hours_before_start", "must not be negative")
	}
	if err := s.authorize(ctx, p, storeID); err != nil {
		return nil, err
	}
	if err := s.stores.UpdateCancellationPolicy(ctx, storeID, hours); err != nil {
		return nil, notFound("store", err)
	}
	return s.stores.Get(ctx, storeID)
}

func (s *Service) ListProfessionals(ctx context.Context, storeID uuid.UUID) ([]*model.Professional, error) {
	if _, err := s.activeStore(ctx, storeID); err != nil {
		return nil, err
	}
	return s.professionals.ListByStore(ctx, storeID)
}

func (s *Service) CreateProfessional(ctx context.Context, p model.Principal, storeID uuid.UUID, req *model.CreateProfessionalRequest) (*model.Professional, error) {
	if err := s.authorize(ctx, p, storeID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, model.NewValidationError("name", "is required")
	}
	pro := &model.Professional{StoreID: storeID, Name: strings.TrimSpace(req.Name), Active: true}
	if err := s.professionals.Create(ctx, pro); err != nil {
		return nil, err
	}
	return pro, nil
}

func (s *Service) activeStore(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	store, err := s.stores.Get(ctx, id)
	if err != nil {
		return nil, notFound("store", err)
	}
	if !store.Active {
		return nil, fmt.Errorf("store: %w", model.ErrNotFound)
	}
	return store, nil
}

// authorize admits admins and staff members of an existing store.
func (s *Service) authorize(ctx context.Context, p model.Principal, storeID uuid.UUID) error {
	if _, err := s.activeStore(ctx, storeID); err != nil {
		return err
	}
	switch p.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStaff:
		ok, err := s.stores.IsStaff(ctx, storeID, p.AccountID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return model.ErrForbidden
}

func (s *Service) storeService(ctx context.Context, p model.Principal, storeID, serviceID uuid.UUID) (*model.Service, error) {
	if err := s.authorize(ctx, p, storeID); err != nil {
		return nil, err
	}
	service, err := s.services.Get(ctx, serviceID)
	if err != nil {
		return nil, notFound("service", err)
	}
	if service.StoreID != storeID {
		return nil, fmt.Errorf("service: %w", model.ErrNotFound)
	}
	return service, nil
}

func validDuration(minutes int) error {
	if minutes <= 0 || minutes > model.MinutesPerDay {
		return model.NewValidationError("duration_minutes", fmt.Sprintf("must be between 1 and %d", model.MinutesPerDay))
	}
	return nil
}

func notFound(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return err
}
