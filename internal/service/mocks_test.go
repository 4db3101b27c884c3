package service_test

import (
	"context"
	"sync"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
)

// --- Mocks ---

type mockPaymentGateway struct {
	session   *domain.CheckoutSession
	createErr error
	getErr    error

	mu           sync.Mutex
	createdPlan  domain.Plan
	createdSnap  domain.SignupSnapshot
	getSessionID string
	getCalls     int
}

func (m *mockPaymentGateway) CreateCheckoutSession(_ context.Context, plan domain.Plan, snapshot domain.SignupSnapshot) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdPlan = plan
	m.createdSnap = snapshot
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.session, nil
}

func (m *mockPaymentGateway) GetCheckoutSession(_ context.Context, sessionID string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getSessionID = sessionID
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.session, nil
}

type mockIdentityProvider struct {
	signUpIdentity *domain.Identity
	signUpTokens   *domain.SessionTokens
	signUpErr      error

	adminFound     *domain.Identity
	adminFindErr   error
	adminCreated   *domain.Identity
	adminCreateErr error

	mu               sync.Mutex
	signUpCalls      int
	adminCreateCalls int
}

func (m *mockIdentityProvider) SignUp(_ context.Context, _, _ string) (*domain.Identity, *domain.SessionTokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signUpCalls++
	if m.signUpErr != nil {
		return nil, nil, m.signUpErr
	}
	return m.signUpIdentity, m.signUpTokens, nil
}

func (m *mockIdentityProvider) AdminCreateUser(_ context.Context, _, _ string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adminCreateCalls++
	if m.adminCreateErr != nil {
		return nil, m.adminCreateErr
	}
	return m.adminCreated, nil
}

func (m *mockIdentityProvider) AdminFindUserByEmail(_ context.Context, _ string) (*domain.Identity, error) {
	if m.adminFindErr != nil {
		return nil, m.adminFindErr
	}
	return m.adminFound, nil
}

type mockProfileStore struct {
	mu sync.Mutex

	byID    map[string]*domain.UserProfile
	byEmail map[string]*domain.UserProfile

	getErr    error
	createErr error
	updateErr error

	createdColumns map[string]any
	updates        map[string]map[string]any
	updateCh       chan string // receives the user id of each update
}

func newMockProfileStore() *mockProfileStore {
	return &mockProfileStore{
		byID:    make(map[string]*domain.UserProfile),
		byEmail: make(map[string]*domain.UserProfile),
		updates: make(map[string]map[string]any),
	}
}

func (m *mockProfileStore) GetProfileByID(_ context.Context, userID string) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.byID[userID], nil
}

func (m *mockProfileStore) GetProfileByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.byEmail[email], nil
}

func (m *mockProfileStore) CreateProfile(_ context.Context, columns map[string]any) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdColumns = columns

	id, _ := columns["id"].(string)
	email, _ := columns["email"].(string)
	role, _ := columns["role"].(string)
	profile := &domain.UserProfile{ID: id, Email: email, Role: role}
	m.byID[id] = profile
	m.byEmail[email] = profile
	return profile, nil
}

func (m *mockProfileStore) UpdateProfile(_ context.Context, userID string, updates map[string]any) (*domain.UserProfile, error) {
	m.mu.Lock()
	if m.updateErr != nil {
		m.mu.Unlock()
		return nil, m.updateErr
	}
	profile := m.byID[userID]
	if profile == nil {
		m.mu.Unlock()
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	m.updates[userID] = updates
	if v, ok := updates["agent_number"].(string); ok {
		profile.AgentNumber = v
		profile.HasAgentNumber = true
	}
	if v, ok := updates["role"].(string); ok {
		profile.Role = v
	}
	ch := m.updateCh
	m.mu.Unlock()

	if ch != nil {
		ch <- userID
	}
	return profile, nil
}

func (m *mockProfileStore) UpdateProfileByEmail(ctx context.Context, email string, updates map[string]any) (*domain.UserProfile, error) {
	m.mu.Lock()
	profile := m.byEmail[email]
	m.mu.Unlock()
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: email}
	}
	return m.UpdateProfile(ctx, profile.ID, updates)
}

func (m *mockProfileStore) ListProfiles(_ context.Context, _, _ int) ([]domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.UserProfile, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

type mockCRMClient struct {
	contact *domain.CRMContact
	findErr error

	upsertErr error
	upsertCh  chan *domain.CRMLead

	mu        sync.Mutex
	findCalls int
}

func (m *mockCRMClient) UpsertLead(_ context.Context, lead *domain.CRMLead) error {
	if m.upsertCh != nil {
		m.upsertCh <- lead
	}
	return m.upsertErr
}

func (m *mockCRMClient) FindContactByEmail(_ context.Context, _ string) (*domain.CRMContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.contact, nil
}

func (m *mockCRMClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findCalls
}

type mockNumberWorkflow struct {
	ack *domain.WorkflowAck
	err error

	mu  sync.Mutex
	req domain.NumberPurchaseRequest
}

func (m *mockNumberWorkflow) Trigger(_ context.Context, req domain.NumberPurchaseRequest) (*domain.WorkflowAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return m.ack, nil
}
