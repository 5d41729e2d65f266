package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/revocity/revocity/api/apperr"
	"github.com/revocity/revocity/api/models"
)

// memStore is an in-memory implementation of every store contract, with the
// same conditional-write semantics as the gorm repository. The mutex plays
// the part of the row lock held by the aggregate upserts.
type memStore struct {
	mu         sync.Mutex
	complaints map[uuid.UUID]models.Complaint
	areas      map[string]models.AreaStatistic
	rewards    map[string]models.UserReward
	scans      []models.ScanRecord
	users      map[string]models.User
	roles      map[string]models.UserRole

	createErr      error
	updateErr      error
	escalateErr    map[uuid.UUID]error
	beforeEscalate func(id uuid.UUID)
	escalateWrites int
	scanErr        error
	rewardErr      error

	// upsertDelay stands in for the round trips an upsert holds its row lock across
	upsertDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		complaints:  map[uuid.UUID]models.Complaint{},
		areas:       map[string]models.AreaStatistic{},
		rewards:     map[string]models.UserReward{},
		users:       map[string]models.User{},
		roles:       map[string]models.UserRole{},
		escalateErr: map[uuid.UUID]error{},
	}
}

func (m *memStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.complaints[c.ID] = *c
	return nil
}

func (m *memStore) GetComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, apperr.NotFound("complaint", id.String())
	}
	return &c, nil
}

func (m *memStore) GetComplaintByCode(ctx context.Context, code string) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.complaints {
		if c.ComplaintCode == code {
			return &c, nil
		}
	}
	return nil, apperr.NotFound("complaint", code)
}

func (m *memStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Complaint{}
	for _, c := range m.complaints {
		if filter.ReporterID != "" && c.ReporterID != filter.ReporterID {
			continue
		}
		if filter.ComplaintStatus != "" && c.ComplaintStatus != filter.ComplaintStatus {
			continue
		}
		if filter.Priority != "" && c.Priority != filter.Priority {
			continue
		}
		if filter.AreaName != "" && (c.AreaName == nil || *c.AreaName != filter.AreaName) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) ListEscalationCandidates(ctx context.Context) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Complaint{}
	for _, c := range m.complaints {
		if c.ComplaintStatus != models.ComplaintResolved && c.EscalationLevel < models.MaxEscalationLevel {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) Escalate(ctx context.Context, id uuid.UUID, level int, department models.Department, at time.Time) (bool, error) {
	if m.beforeEscalate != nil {
		m.beforeEscalate(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.escalateErr[id]; err != nil {
		return false, err
	}
	c, ok := m.complaints[id]
	if !ok || c.ComplaintStatus == models.ComplaintResolved || c.EscalationLevel >= level {
		return false, nil
	}
	c.EscalationLevel = level
	c.EscalatedAt = &at
	c.ComplaintStatus = models.ComplaintEscalated
	c.AssignedDepartment = department
	c.UpdatedAt = at
	m.complaints[id] = c
	m.escalateWrites++
	return true, nil
}

func (m *memStore) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected models.ComplaintStatus, fields map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return false, m.updateErr
	}
	c, ok := m.complaints[id]
	if !ok || c.ComplaintStatus != expected {
		return false, nil
	}
	for key, value := range fields {
		switch key {
		case "complaint_status":
			c.ComplaintStatus = value.(models.ComplaintStatus)
		case "resolved_at":
			t := value.(time.Time)
			c.ResolvedAt = &t
		case "assigned_to":
			c.AssignedTo = value.(*string)
		case "admin_notes":
			c.AdminNotes = value.(*string)
		case "cleanup_image_url":
			c.CleanupImageURL = value.(*string)
		case "cleanup_verified":
			c.CleanupVerified = value.(bool)
		case "updated_at":
			c.UpdatedAt = value.(time.Time)
		}
	}
	m.complaints[id] = c
	return true, nil
}

func (m *memStore) MarkHighRiskArea(ctx context.Context, id uuid.UUID, overflowFrequency int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return apperr.NotFound("complaint", id.String())
	}
	c.IsHighRiskArea = true
	c.OverflowFrequency = overflowFrequency
	m.complaints[id] = c
	return nil
}

func (m *memStore) GetArea(ctx context.Context, key string) (*models.AreaStatistic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.areas[key]
	if !ok {
		return nil, apperr.NotFound("area", key)
	}
	return &a, nil
}

func (m *memStore) UpsertArea(ctx context.Context, key string, apply func(prev *models.AreaStatistic) *models.AreaStatistic) (*models.AreaStatistic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var prev *models.AreaStatistic
	if a, ok := m.areas[key]; ok {
		prev = &a
	}
	time.Sleep(m.upsertDelay)
	next := apply(prev)
	m.areas[key] = *next
	return next, nil
}

func (m *memStore) TopAreasByOverflow(ctx context.Context, limit int) ([]models.AreaStatistic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AreaStatistic{}
	for _, a := range m.areas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverflowCount > out[j].OverflowCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetReward(ctx context.Context, userID string) (*models.UserReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rewardErr != nil {
		return nil, m.rewardErr
	}
	r, ok := m.rewards[userID]
	if !ok {
		return nil, apperr.NotFound("reward", userID)
	}
	r.Badges = append([]string{}, r.Badges...)
	return &r, nil
}

func (m *memStore) UpsertReward(ctx context.Context, userID string, apply func(prev *models.UserReward) *models.UserReward) (*models.UserReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rewardErr != nil {
		return nil, m.rewardErr
	}
	var prev *models.UserReward
	if r, ok := m.rewards[userID]; ok {
		r.Badges = append([]string{}, r.Badges...)
		prev = &r
	}
	time.Sleep(m.upsertDelay)
	next := apply(prev)
	m.rewards[userID] = *next
	return next, nil
}

func (m *memStore) TopRewards(ctx context.Context, limit int) ([]models.UserReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserReward{}
	for _, r := range m.rewards {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreateScan(ctx context.Context, scan *models.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanErr != nil {
		return m.scanErr
	}
	m.scans = append(m.scans, *scan)
	return nil
}

func (m *memStore) ListScans(ctx context.Context, userID string, limit int) ([]models.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ScanRecord{}
	for i := len(m.scans) - 1; i >= 0 && len(out) < limit; i-- {
		if m.scans[i].UserID == userID {
			out = append(out, m.scans[i])
		}
	}
	return out, nil
}

func (m *memStore) UpsertUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[user.UID]; ok {
		existing.Email = user.Email
		existing.DisplayName = user.DisplayName
		existing.LastLogin = user.LastLogin
		m.users[user.UID] = existing
		return nil
	}
	m.users[user.UID] = *user
	return nil
}

func (m *memStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (m *memStore) GetRole(ctx context.Context, userID string) (*models.UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[userID]
	if !ok {
		return nil, apperr.NotFound("role", userID)
	}
	return &r, nil
}

func (m *memStore) CreateRoleIfAbsent(ctx context.Context, role *models.UserRole) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.UserID]; ok {
		return false, nil
	}
	m.roles[role.UserID] = *role
	return true, nil
}

func (m *memStore) SetRole(ctx context.Context, userID string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[userID] = models.UserRole{ID: uuid.New(), UserID: userID, Role: role}
	return nil
}

func (m *memStore) DeleteRole(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[userID]; !ok {
		return apperr.NotFound("role", userID)
	}
	delete(m.roles, userID)
	return nil
}

func (m *memStore) ListRoles(ctx context.Context) ([]models.UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserRole{}
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

// fakeAssessor replays a canned model reply
type fakeAssessor struct {
	mu    sync.Mutex
	reply string
	err   error
	tasks []Task
}

func (f *fakeAssessor) Assess(ctx context.Context, task Task, img *Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return f.reply, f.err
}

// memImages records saved and deleted images
type memImages struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
	err     error
}

func (m *memImages) Save(ctx context.Context, folder string, img *Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	url := "https://img.test/" + folder + "/" + uuid.NewString() + "." + img.Extension()
	m.saved = append(m.saved, url)
	return url, nil
}

func (m *memImages) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

// testJPEG is the smallest byte run detectImageFormat accepts as JPEG
var testJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

func testImage() *Image {
	return &Image{Data: testJPEG, MIMEType: "image/jpeg"}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
