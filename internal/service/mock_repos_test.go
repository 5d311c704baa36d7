package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	err   error // 非 nil 时所有方法返回该错误
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if m.err != nil {
		return m.err
	}
	m.users[user.UserID] = user
	return nil
}

// ── Mock LocationRepository ──

type mockLocationRepo struct {
	locations map[string]*model.Location
	err       error // 非 nil 时查询方法返回该错误
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{locations: make(map[string]*model.Location)}
}

func (m *mockLocationRepo) Create(_ context.Context, loc *model.Location) error {
	for _, l := range m.locations {
		if l.Name == loc.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	if loc.LocationID == "" {
		loc.LocationID = "loc-" + loc.Name
	}
	m.locations[loc.LocationID] = loc
	return nil
}

func (m *mockLocationRepo) GetByID(_ context.Context, id string) (*model.Location, error) {
	if m.err != nil {
		return nil, m.err
	}
	if l, ok := m.locations[id]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLocationRepo) List(_ context.Context, includeInactive bool) ([]model.Location, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Location
	for _, l := range m.locations {
		if includeInactive || l.IsActive {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockLocationRepo) ListByIDs(_ context.Context, ids []string) ([]model.Location, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Location
	for _, id := range ids {
		if l, ok := m.locations[id]; ok {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockLocationRepo) Update(_ context.Context, loc *model.Location) error {
	m.locations[loc.LocationID] = loc
	return nil
}

func (m *mockLocationRepo) Deactivate(_ context.Context, id string) error {
	if l, ok := m.locations[id]; ok {
		l.IsActive = false
	}
	return nil
}

// ── Mock AvailabilityRepository ──

// mockAvailabilityRepo 内存实现，模拟唯一约束与按用户名排序的聚合查询
type mockAvailabilityRepo struct {
	entries   map[string]*model.AvailabilityEntry
	users     *mockUserRepo
	locations *mockLocationRepo
	seq       int

	listErr    error // ListUserDayGuests / ListByUser 返回的错误
	replaceErr error // ReplaceDay 返回的错误
	getErr     error // GetByID 返回的错误
}

func newMockAvailabilityRepo(users *mockUserRepo, locations *mockLocationRepo) *mockAvailabilityRepo {
	return &mockAvailabilityRepo{
		entries:   make(map[string]*model.AvailabilityEntry),
		users:     users,
		locations: locations,
	}
}

func (m *mockAvailabilityRepo) add(e model.AvailabilityEntry) *model.AvailabilityEntry {
	m.seq++
	if e.EntryID == "" {
		e.EntryID = fmt.Sprintf("entry-%03d", m.seq)
	}
	m.entries[e.EntryID] = &e
	return &e
}

func (m *mockAvailabilityRepo) ReplaceDay(_ context.Context, userID string, date time.Time, movedEntryID string, entries []model.AvailabilityEntry) (int, error) {
	if m.replaceErr != nil {
		return 0, m.replaceErr
	}

	// 先在副本上执行，失败时原数据不变（模拟事务回滚）
	next := make(map[string]*model.AvailabilityEntry, len(m.entries))
	for id, e := range m.entries {
		if e.UserID == userID && e.Date().Equal(model.NormalizeDate(date)) {
			continue
		}
		if movedEntryID != "" && id == movedEntryID && e.UserID == userID {
			continue
		}
		next[id] = e
	}
	seen := make(map[string]bool)
	for _, e := range next {
		seen[entryKey(e)] = true
	}
	for i := range entries {
		if seen[entryKey(&entries[i])] {
			return 0, gorm.ErrDuplicatedKey
		}
		seen[entryKey(&entries[i])] = true
	}

	m.entries = next
	for _, e := range entries {
		m.add(e)
	}
	return len(entries), nil
}

func (m *mockAvailabilityRepo) DeleteDay(_ context.Context, userID string, date time.Time) (int64, error) {
	var n int64
	for id, e := range m.entries {
		if e.UserID == userID && e.Date().Equal(model.NormalizeDate(date)) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

func (m *mockAvailabilityRepo) GetByID(_ context.Context, id string) (*model.AvailabilityEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAvailabilityRepo) DeleteByID(_ context.Context, id string) (int64, error) {
	if _, ok := m.entries[id]; !ok {
		return 0, nil
	}
	delete(m.entries, id)
	return 1, nil
}

func (m *mockAvailabilityRepo) ListByUser(_ context.Context, userID string) ([]model.EntryWithLocation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var rows []model.EntryWithLocation
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		name := ""
		if l, ok := m.locations.locations[e.LocationID]; ok {
			name = l.Name
		}
		rows = append(rows, model.EntryWithLocation{
			EntryID:      e.EntryID,
			UserID:       e.UserID,
			PlayDate:     e.Date(),
			TimeSlot:     e.TimeSlot,
			LocationID:   e.LocationID,
			LocationName: name,
			NumGuests:    e.NumGuests,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].PlayDate.Equal(rows[j].PlayDate) {
			return rows[i].PlayDate.Before(rows[j].PlayDate)
		}
		return rows[i].TimeSlot < rows[j].TimeSlot
	})
	return rows, nil
}

func (m *mockAvailabilityRepo) ListUserDayGuests(_ context.Context, start, end time.Time) ([]model.UserDayGuests, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	type key struct {
		date   string
		userID string
	}
	agg := make(map[key]*model.UserDayGuests)
	for _, e := range m.entries {
		d := e.Date()
		if d.Before(start) || d.After(end) {
			continue
		}
		k := key{model.FormatDate(d), e.UserID}
		row, ok := agg[k]
		if !ok {
			username := e.UserID
			if u, found := m.users.users[e.UserID]; found {
				username = u.Username
			}
			row = &model.UserDayGuests{PlayDate: d, UserID: e.UserID, Username: username, Guests: e.NumGuests}
			agg[k] = row
		}
		if e.NumGuests > row.Guests {
			row.Guests = e.NumGuests
		}
	}
	rows := make([]model.UserDayGuests, 0, len(agg))
	for _, r := range agg {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].PlayDate.Equal(rows[j].PlayDate) {
			return rows[i].PlayDate.Before(rows[j].PlayDate)
		}
		return rows[i].Username < rows[j].Username
	})
	return rows, nil
}

func (m *mockAvailabilityRepo) CountFutureByLocation(_ context.Context, locationID string, from time.Time) (int64, error) {
	var n int64
	for _, e := range m.entries {
		if e.LocationID == locationID && !e.Date().Before(from) {
			n++
		}
	}
	return n, nil
}

func entryKey(e *model.AvailabilityEntry) string {
	return e.UserID + "|" + model.FormatDate(e.Date()) + "|" + e.TimeSlot + "|" + e.LocationID
}

// ── 测试辅助 ──

type mockRepos struct {
	users        *mockUserRepo
	locations    *mockLocationRepo
	availability *mockAvailabilityRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	locations := newMockLocationRepo()
	availability := newMockAvailabilityRepo(users, locations)
	repo := &repository.Repository{
		User:         users,
		Location:     locations,
		Availability: availability,
	}
	return repo, &mockRepos{users: users, locations: locations, availability: availability}
}

// invalidUUIDErr 模拟 uuid 列收到非法字符串时 Postgres 返回的错误
func invalidUUIDErr() error {
	return &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
}

// fixedClock 固定时钟
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// day 构造 UTC 零点日期
func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
