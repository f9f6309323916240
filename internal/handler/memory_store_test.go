package handler_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stroomtracker/internal/model"
	"stroomtracker/internal/store"
)

// memoryStore is an in-memory store.Store used to drive the real router in
// tests. It mirrors the transactional semantics of the gorm store: invite
// redemption applies the membership insert and counter increment together or
// not at all.
type memoryStore struct {
	mu               sync.Mutex
	nextID           uint
	users            map[uint]*model.User
	usersByEmail     map[string]uint
	tenants          map[uint]*model.Tenant
	memberships      map[uint]*model.TenantUser
	membershipByUser map[uint]uint
	invites          map[string]*model.InviteCode
	vouchers         map[uint]*model.Voucher
	readings         map[uint]*model.Reading
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:            make(map[uint]*model.User),
		usersByEmail:     make(map[string]uint),
		tenants:          make(map[uint]*model.Tenant),
		memberships:      make(map[uint]*model.TenantUser),
		membershipByUser: make(map[uint]uint),
		invites:          make(map[string]*model.InviteCode),
		vouchers:         make(map[uint]*model.Voucher),
		readings:         make(map[uint]*model.Reading),
	}
}

func (m *memoryStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, exists := m.usersByEmail[email]; exists {
		return store.ErrDuplicateEmail
	}
	user.ID = m.id()
	user.Email = email
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	m.usersByEmail[email] = user.ID
	return nil
}

func (m *memoryStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *memoryStore) UserByID(ctx context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *memoryStore) CreateTenantWithAdmin(ctx context.Context, tenant *model.Tenant, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.membershipByUser[userID]; exists {
		return store.ErrAlreadyMember
	}
	tenant.ID = m.id()
	if tenant.SubscriptionStatus == "" {
		tenant.SubscriptionStatus = "active"
	}
	tenant.CreatedAt = time.Now()
	cp := *tenant
	m.tenants[tenant.ID] = &cp

	membership := &model.TenantUser{
		ID:        m.id(),
		TenantID:  tenant.ID,
		UserID:    userID,
		Role:      model.RoleAdmin,
		CreatedAt: time.Now(),
	}
	m.memberships[membership.ID] = membership
	m.membershipByUser[userID] = membership.ID
	return nil
}

func (m *memoryStore) MembershipForUser(ctx context.Context, userID uint) (*model.TenantUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.membershipByUser[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m.memberships[id]
	cp.Tenant = *m.tenants[cp.TenantID]
	return &cp, nil
}

func (m *memoryStore) TenantByID(ctx context.Context, id uint) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tenant, ok := m.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *tenant
	return &cp, nil
}

func (m *memoryStore) MembersOfTenant(ctx context.Context, tenantID uint) ([]model.TenantUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var members []model.TenantUser
	for _, membership := range m.memberships {
		if membership.TenantID != tenantID {
			continue
		}
		cp := *membership
		cp.User = *m.users[cp.UserID]
		cp.Tenant = *m.tenants[tenantID]
		members = append(members, cp)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].CreatedAt.Before(members[j].CreatedAt) })
	return members, nil
}

func (m *memoryStore) CreateInvite(ctx context.Context, invite *model.InviteCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	invite.ID = m.id()
	invite.CreatedAt = time.Now()
	cp := *invite
	m.invites[invite.Code] = &cp
	return nil
}

func (m *memoryStore) InvitesForTenant(ctx context.Context, tenantID uint) ([]model.InviteCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var invites []model.InviteCode
	for _, invite := range m.invites {
		if invite.TenantID == tenantID {
			invites = append(invites, *invite)
		}
	}
	sort.Slice(invites, func(i, j int) bool { return invites[i].CreatedAt.After(invites[j].CreatedAt) })
	return invites, nil
}

func (m *memoryStore) RedeemInvite(ctx context.Context, code string, userID uint) (*model.TenantUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	invite, ok := m.invites[code]
	if !ok {
		return nil, store.ErrInviteNotFound
	}
	now := time.Now()
	switch {
	case !invite.IsActive:
		return nil, store.ErrInviteInactive
	case !now.Before(invite.ExpiresAt):
		return nil, store.ErrInviteExpired
	case invite.CurrentUses >= invite.MaxUses:
		return nil, store.ErrInviteExhausted
	}
	if _, exists := m.membershipByUser[userID]; exists {
		return nil, store.ErrAlreadyMember
	}

	invite.CurrentUses++
	membership := &model.TenantUser{
		ID:        m.id(),
		TenantID:  invite.TenantID,
		UserID:    userID,
		Role:      model.RoleMember,
		CreatedAt: time.Now(),
	}
	m.memberships[membership.ID] = membership
	m.membershipByUser[userID] = membership.ID

	cp := *membership
	cp.Tenant = *m.tenants[invite.TenantID]
	return &cp, nil
}

func inMonth(t time.Time, month *time.Time) bool {
	if month == nil {
		return true
	}
	return !t.Before(*month) && t.Before(month.AddDate(0, 1, 0))
}

func (m *memoryStore) CreateVoucher(ctx context.Context, voucher *model.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	voucher.ID = m.id()
	voucher.CreatedAt = time.Now()
	cp := *voucher
	m.vouchers[voucher.ID] = &cp
	return nil
}

func (m *memoryStore) VouchersForTenant(ctx context.Context, tenantID uint, month *time.Time) ([]model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var vouchers []model.Voucher
	for _, v := range m.vouchers {
		if v.TenantID != nil && *v.TenantID == tenantID && inMonth(v.PurchaseDate, month) {
			vouchers = append(vouchers, *v)
		}
	}
	sort.Slice(vouchers, func(i, j int) bool { return vouchers[i].PurchaseDate.After(vouchers[j].PurchaseDate) })
	return vouchers, nil
}

func (m *memoryStore) DeleteVoucher(ctx context.Context, tenantID, voucherID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vouchers[voucherID]
	if !ok || v.TenantID == nil || *v.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(m.vouchers, voucherID)
	return nil
}

func (m *memoryStore) CreateReading(ctx context.Context, reading *model.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reading.ID = m.id()
	reading.CreatedAt = time.Now()
	cp := *reading
	m.readings[reading.ID] = &cp
	return nil
}

func (m *memoryStore) ReadingsForTenant(ctx context.Context, tenantID uint, month *time.Time) ([]model.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var readings []model.Reading
	for _, r := range m.readings {
		if r.TenantID != nil && *r.TenantID == tenantID && inMonth(r.ReadingDate, month) {
			readings = append(readings, *r)
		}
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].ReadingDate.After(readings[j].ReadingDate) })
	return readings, nil
}

func (m *memoryStore) DeleteReading(ctx context.Context, tenantID, readingID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.readings[readingID]
	if !ok || r.TenantID == nil || *r.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(m.readings, readingID)
	return nil
}

func (m *memoryStore) TenantOverviews(ctx context.Context) ([]store.TenantOverview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var overviews []store.TenantOverview
	for id, tenant := range m.tenants {
		o := store.TenantOverview{
			TenantID:           id,
			Name:               tenant.Name,
			SubscriptionStatus: tenant.SubscriptionStatus,
		}
		for _, ms := range m.memberships {
			if ms.TenantID == id {
				o.MemberCount++
			}
		}
		for _, v := range m.vouchers {
			if v.TenantID != nil && *v.TenantID == id {
				o.VoucherCount++
				o.TotalSpend += v.Amount
			}
		}
		for _, r := range m.readings {
			if r.TenantID != nil && *r.TenantID == id {
				o.ReadingCount++
			}
		}
		overviews = append(overviews, o)
	}
	sort.Slice(overviews, func(i, j int) bool { return overviews[i].TenantID < overviews[j].TenantID })
	return overviews, nil
}
