// Package storetest provides in-memory repositories for tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"masivo-tech/models"
	"masivo-tech/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Products is an in-memory store.ProductRepository
type Products struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Product
}

func NewProducts(products ...models.Product) *Products {
	s := &Products{items: map[primitive.ObjectID]models.Product{}}
	for i := range products {
		p := products[i]
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		}
		s.items[p.ID] = p
	}
	return s
}

func (s *Products) all(keep func(models.Product) bool) []models.Product {
	out := []models.Product{}
	for _, p := range s.items {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Products) List(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(filter.Query)
	out := s.all(func(p models.Product) bool {
		if !p.Available {
			return false
		}
		if filter.Category != "" && p.Category != filter.Category {
			return false
		}
		return q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q)
	})

	switch store.SortOrDefault(filter.Sort) {
	case store.SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case store.SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case store.SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out, nil
}

func (s *Products) Latest(ctx context.Context, limit int) ([]models.Product, error) {
	out, _ := s.List(ctx, store.ProductFilter{Sort: store.SortNewest})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Products) Search(_ context.Context, query string, limit int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	out := s.all(func(p models.Product) bool {
		return p.Available &&
			(strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(string(p.Category), q))
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Products) Get(_ context.Context, id string) (*models.Product, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Products) FindByName(_ context.Context, name string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Products) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	s.items[p.ID] = *p
	return nil
}

func (s *Products) Update(_ context.Context, id string, p *models.Product) error {
	oid, err := store.ParseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[oid]
	if !ok {
		return store.ErrNotFound
	}
	p.ID, p.CreatedAt, p.UpdatedAt = oid, existing.CreatedAt, time.Now()
	s.items[oid] = *p
	return nil
}

func (s *Products) Delete(_ context.Context, id string) error {
	oid, err := store.ParseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[oid]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, oid)
	return nil
}

func (s *Products) DecrementStock(_ context.Context, id string, quantity int) error {
	oid, err := store.ParseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[oid]
	if !ok || p.Stock < quantity {
		return store.ErrInsufficientStock
	}
	p.Stock -= quantity
	s.items[oid] = p
	return nil
}

// Orders is an in-memory store.OrderRepository
type Orders struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Order
	// Err, when set, is returned by Create
	Err error
}

func NewOrders() *Orders {
	return &Orders{items: map[primitive.ObjectID]models.Order{}}
}

// All returns every stored order
func (s *Orders) All() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.items {
		out = append(out, o)
	}
	return out
}

func (s *Orders) Create(_ context.Context, o *models.Order) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = primitive.NewObjectID()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.UpdatedAt = o.CreatedAt
	s.items[o.ID] = *o
	return nil
}

func (s *Orders) Get(_ context.Context, id string) (*models.Order, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (s *Orders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.items {
		if o.BelongsTo(userID) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Orders) FindByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.items {
		if paymentID != "" && o.PaymentID == paymentID {
			return &o, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Orders) UpdateStatus(_ context.Context, id string, status models.OrderStatus) error {
	return s.mutate(id, func(o *models.Order) { o.Status = status })
}

func (s *Orders) TransitionStatus(_ context.Context, id string, from []models.OrderStatus, to models.OrderStatus) error {
	oid, err := store.ParseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[oid]
	if !ok {
		return store.ErrNotFound
	}
	for _, status := range from {
		if o.Status == status {
			o.Status, o.UpdatedAt = to, time.Now()
			s.items[oid] = o
			return nil
		}
	}
	return store.ErrStatusChanged
}

func (s *Orders) SetPaymentID(_ context.Context, id string, paymentID string) error {
	return s.mutate(id, func(o *models.Order) { o.PaymentID = paymentID })
}

func (s *Orders) mutate(id string, fn func(*models.Order)) error {
	oid, err := store.ParseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[oid]
	if !ok {
		return store.ErrNotFound
	}
	fn(&o)
	o.UpdatedAt = time.Now()
	s.items[oid] = o
	return nil
}

// Users is an in-memory store.UserRepository
type Users struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.User
}

func NewUsers(users ...models.User) *Users {
	s := &Users{items: map[primitive.ObjectID]models.User{}}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		s.items[u.ID] = u
	}
	return s
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.items {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	s.items[u.ID] = *u
	return nil
}

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *Users) FindByVerificationToken(_ context.Context, token string) (*models.User, error) {
	return s.find(func(u models.User) bool { return token != "" && u.VerificationToken == token })
}

func (s *Users) find(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.items {
		if match(u) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Users) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	return s.mutate(id, func(u *models.User) {
		u.IsVerified = true
		u.VerificationToken = ""
	})
}

func (s *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, profile store.UserProfile) error {
	return s.mutate(id, func(u *models.User) {
		u.FirstName, u.LastName, u.Address = profile.FirstName, profile.LastName, profile.Address
	})
}

func (s *Users) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return s.mutate(id, func(u *models.User) { u.Password = hash })
}

func (s *Users) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Users) mutate(id primitive.ObjectID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&u)
	s.items[id] = u
	return nil
}

// Payments is an in-memory store.PaymentRepository
type Payments struct {
	mu    sync.Mutex
	items map[string]models.Payment
}

func NewPayments() *Payments {
	return &Payments{items: map[string]models.Payment{}}
}

func (s *Payments) Create(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	s.items[p.SessionID] = *p
	return nil
}

func (s *Payments) UpdateStatus(_ context.Context, sessionID string, status models.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[sessionID]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	s.items[sessionID] = p
	return nil
}

// Get returns the payment for sessionID
func (s *Payments) Get(sessionID string) (models.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[sessionID]
	return p, ok
}

// Audit is an in-memory store.AuditLog
type Audit struct {
	mu      sync.Mutex
	Entries []models.AuditEntry
}

func (s *Audit) Record(_ context.Context, action, entityID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, models.AuditEntry{
		ID:        primitive.NewObjectID(),
		Action:    action,
		EntityID:  entityID,
		Data:      bson.M(data),
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *Audit) List(_ context.Context, entityID string, limit int) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AuditEntry{}
	for i := len(s.Entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.Entries[i].EntityID == entityID {
			out = append(out, s.Entries[i])
		}
	}
	return out, nil
}

// Actions returns the recorded action names in order
func (s *Audit) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Action)
	}
	return out
}

var (
	_ store.ProductRepository = (*Products)(nil)
	_ store.OrderRepository   = (*Orders)(nil)
	_ store.UserRepository    = (*Users)(nil)
	_ store.PaymentRepository = (*Payments)(nil)
	_ store.AuditLog          = (*Audit)(nil)
)
