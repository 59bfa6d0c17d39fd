package engine

import (
	"context"
	"sync"
	"time"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
)

// memStore is an in-memory implementation of every engine port. Mutations
// run under one mutex so the concurrency tests exercise the same
// exactly-one-winner semantics the SQL store gets from guarded updates.
type memStore struct {
	mu sync.Mutex

	events   map[string]*models.CatalogEvent // by name
	tasks    map[string]*models.Task
	missions map[string]*models.Mission
	rewards  map[string][]models.Reward // by mission id

	players         map[string]*models.Player          // by external id
	taskProgress    map[string]*models.TaskProgress    // player|task
	missionProgress map[string]*models.MissionProgress // player|mission|cycle
	playerRewards   map[string]*models.PlayerReward    // player|reward
	board           map[string]*models.LeaderboardEntry
	log             map[string]*models.EventLog // player|event|dedupe
}

func newMemStore() *memStore {
	return &memStore{
		events:          map[string]*models.CatalogEvent{},
		tasks:           map[string]*models.Task{},
		missions:        map[string]*models.Mission{},
		rewards:         map[string][]models.Reward{},
		players:         map[string]*models.Player{},
		taskProgress:    map[string]*models.TaskProgress{},
		missionProgress: map[string]*models.MissionProgress{},
		playerRewards:   map[string]*models.PlayerReward{},
		board:           map[string]*models.LeaderboardEntry{},
		log:             map[string]*models.EventLog{},
	}
}

func key(parts ...string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "|" + p
	}
	return out
}

// --- CatalogStore ---

func (m *memStore) EventByName(_ context.Context, name string) (*models.CatalogEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.events[name]; ok {
		out := *ev
		return &out, nil
	}
	return nil, nil
}

func (m *memStore) ActiveTasksByEvent(_ context.Context, eventID string) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, t := range m.tasks {
		if t.EventID == eventID && t.IsActive {
			out = append(out, m.taskWithMission(t))
		}
	}
	return out, nil
}

func (m *memStore) TaskByID(_ context.Context, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		out := m.taskWithMission(t)
		return &out, nil
	}
	return nil, nil
}

func (m *memStore) TasksForMission(_ context.Context, missionID string) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, t := range m.tasks {
		if t.MissionID == missionID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) MissionByID(_ context.Context, id string) (*models.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms, ok := m.missions[id]; ok {
		out := *ms
		return &out, nil
	}
	return nil, nil
}

func (m *memStore) RewardsForMission(_ context.Context, missionID string) ([]models.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Reward(nil), m.rewards[missionID]...), nil
}

// taskWithMissionCopy is for tests that call engine methods directly and
// need an isolated copy of a seeded task.
func (m *memStore) taskWithMissionCopy(id string) *models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.taskWithMission(m.tasks[id])
	return &out
}

func (m *memStore) taskWithMission(t *models.Task) models.Task {
	out := *t
	if ms, ok := m.missions[t.MissionID]; ok {
		mc := *ms
		out.Mission = &mc
	}
	return out
}

// --- PlayerStore ---

func (m *memStore) GetOrCreateByExternalID(_ context.Context, externalID string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[externalID]; ok {
		out := *p
		return &out, nil
	}
	p := &models.Player{ID: uuid.NewString(), ExternalID: externalID}
	m.players[externalID] = p
	out := *p
	return &out, nil
}

func (m *memStore) AddCounters(_ context.Context, playerID string, points, tasks, missions int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.ID == playerID {
			p.TotalPoints += points
			p.TasksCompleted += tasks
			p.MissionsCompleted += missions
		}
	}
	return nil
}

// --- ProgressStore ---

func (m *memStore) TaskProgress(_ context.Context, playerID, taskID string) (*models.TaskProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tp, ok := m.taskProgress[key(playerID, taskID)]; ok {
		out := *tp
		return &out, nil
	}
	return nil, nil
}

func (m *memStore) IncrementTaskProgress(_ context.Context, playerID string, task *models.Task) (*models.TaskProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(playerID, task.ID)
	tp, ok := m.taskProgress[k]
	if !ok {
		tp = &models.TaskProgress{
			ID:        uuid.NewString(),
			PlayerID:  playerID,
			TaskID:    task.ID,
			MissionID: task.MissionID,
			Status:    models.ProgressInProgress,
			Progress:  1,
		}
		m.taskProgress[k] = tp
	} else if !tp.Status.Terminal() {
		tp.Progress++
		tp.Status = models.ProgressInProgress
	}
	out := *tp
	return &out, nil
}

func (m *memStore) CompleteTask(_ context.Context, playerID, taskID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tp, ok := m.taskProgress[key(playerID, taskID)]
	if !ok || tp.Status.Terminal() {
		return false, nil
	}
	tp.Status = models.ProgressCompleted
	tp.CompletedAt = &at
	return true, nil
}

func (m *memStore) MarkTaskSkipped(_ context.Context, playerID string, task *models.Task, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(playerID, task.ID)
	tp, ok := m.taskProgress[k]
	if !ok {
		m.taskProgress[k] = &models.TaskProgress{
			ID:        uuid.NewString(),
			PlayerID:  playerID,
			TaskID:    task.ID,
			MissionID: task.MissionID,
			Status:    models.ProgressSkipped,
			SkippedAt: &at,
		}
		return true, nil
	}
	if tp.Status.Terminal() {
		return false, nil
	}
	tp.Status = models.ProgressSkipped
	tp.SkippedAt = &at
	return true, nil
}

func (m *memStore) CompletedTaskProgress(_ context.Context, playerID, missionID string) ([]models.TaskProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TaskProgress
	for _, tp := range m.taskProgress {
		if tp.PlayerID == playerID && tp.MissionID == missionID && tp.Status == models.ProgressCompleted {
			out = append(out, *tp)
		}
	}
	return out, nil
}

func (m *memStore) EnsureMissionProgress(_ context.Context, playerID, missionID, cycle string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(playerID, missionID, cycle)
	if _, ok := m.missionProgress[k]; !ok {
		m.missionProgress[k] = &models.MissionProgress{
			ID:        uuid.NewString(),
			PlayerID:  playerID,
			MissionID: missionID,
			Cycle:     cycle,
			Status:    models.ProgressInProgress,
			StartedAt: &at,
		}
	}
	return nil
}

func (m *memStore) MissionProgress(_ context.Context, playerID, missionID, cycle string) (*models.MissionProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mp, ok := m.missionProgress[key(playerID, missionID, cycle)]; ok {
		out := *mp
		return &out, nil
	}
	return nil, nil
}

func (m *memStore) SetMissionPoints(_ context.Context, playerID, missionID, cycle string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mp, ok := m.missionProgress[key(playerID, missionID, cycle)]; ok && mp.Status != models.ProgressCompleted {
		mp.PointsEarned = points
	}
	return nil
}

func (m *memStore) CompleteMission(_ context.Context, playerID, missionID, cycle string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mp, ok := m.missionProgress[key(playerID, missionID, cycle)]
	if !ok || mp.Status.Terminal() {
		return false, nil
	}
	mp.Status = models.ProgressCompleted
	mp.CompletedAt = &at
	return true, nil
}

func (m *memStore) HasCompletedMission(_ context.Context, playerID, missionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mp := range m.missionProgress {
		if mp.PlayerID == playerID && mp.MissionID == missionID && mp.Status == models.ProgressCompleted {
			return true, nil
		}
	}
	return false, nil
}

// --- RewardStore ---

func (m *memStore) InsertPlayerReward(_ context.Context, grant *models.PlayerReward) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(grant.PlayerID, grant.RewardID)
	if _, ok := m.playerRewards[k]; ok {
		return false, nil
	}
	cp := *grant
	m.playerRewards[k] = &cp
	return true, nil
}

// --- LeaderboardStore ---

func (m *memStore) AddToEntry(_ context.Context, playerID, gameID string, points, missions, tasks int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(playerID, gameID)
	entry, ok := m.board[k]
	if !ok {
		entry = &models.LeaderboardEntry{ID: uuid.NewString(), PlayerID: playerID, GameID: gameID}
		m.board[k] = entry
	}
	entry.TotalPoints += points
	entry.CompletedMissions += missions
	entry.CompletedTasks += tasks
	return nil
}

// --- EventLogStore ---

func (m *memStore) Append(_ context.Context, entry *models.EventLog) (*models.EventLog, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(entry.PlayerID, entry.EventID, entry.DedupeKey)
	if existing, ok := m.log[k]; ok {
		out := *existing
		return &out, false, nil
	}
	cp := *entry
	m.log[k] = &cp
	out := cp
	return &out, true, nil
}

func (m *memStore) MarkProcessed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.log {
		if e.ID == id {
			e.Processed = true
			e.ProcessedAt = &at
		}
	}
	return nil
}

// newTestEngine returns an engine over a fresh memStore with a fixed clock.
func newTestEngine() (*Engine, *memStore) {
	m := newMemStore()
	e := New(m, m, m, m, m, m)
	e.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return e, m
}
