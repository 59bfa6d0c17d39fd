package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
)

// seed helpers shared by the engine tests.

func seedEvent(m *memStore, name string) *models.CatalogEvent {
	ev := &models.CatalogEvent{ID: uuid.NewString(), Name: name, IsActive: true}
	m.events[name] = ev
	return ev
}

func seedGame(m *memStore) *models.Game {
	g := &models.Game{ID: uuid.NewString(), Name: "Store Setup", IsActive: true, TargetMode: models.TargetModeAll}
	return g
}

func seedMission(m *memStore, game *models.Game, pointsRequired int) *models.Mission {
	ms := &models.Mission{
		ID:             uuid.NewString(),
		GameID:         game.ID,
		Name:           "Launch your store",
		PointsRequired: pointsRequired,
		IsActive:       true,
		Game:           game,
	}
	m.missions[ms.ID] = ms
	return ms
}

func seedTask(m *memStore, mission *models.Mission, event *models.CatalogEvent, points, required int, optional bool, order int) *models.Task {
	t := &models.Task{
		ID:            uuid.NewString(),
		MissionID:     mission.ID,
		EventID:       event.ID,
		Name:          "task-" + event.Name,
		Points:        points,
		RequiredCount: required,
		IsOptional:    optional,
		OrderIndex:    order,
		IsActive:      true,
	}
	m.tasks[t.ID] = t
	return t
}

func seedReward(m *memStore, mission *models.Mission) *models.Reward {
	days := 30
	r := models.Reward{
		ID:           uuid.NewString(),
		MissionID:    mission.ID,
		RewardTypeID: uuid.NewString(),
		Name:         "Launch badge",
		IsActive:     true,
		RewardType: &models.RewardType{
			Kind:             models.RewardKindBadge,
			ExpiresAfterDays: &days,
		},
	}
	m.rewards[mission.ID] = append(m.rewards[mission.ID], r)
	return &m.rewards[mission.ID][len(m.rewards[mission.ID])-1]
}

// scenario is the two-task fixture from the product walkthrough: task A
// (10 pts, required) and task B (20 pts, optional) under a mission that
// needs 30 points and pays one reward.
type scenario struct {
	engine  *Engine
	store   *memStore
	game    *models.Game
	mission *models.Mission
	taskA   *models.Task
	taskB   *models.Task
	reward  *models.Reward
	evA     *models.CatalogEvent
	evB     *models.CatalogEvent
}

func newScenario() *scenario {
	e, m := newTestEngine()
	game := seedGame(m)
	mission := seedMission(m, game, 30)
	evA := seedEvent(m, "product_created")
	evB := seedEvent(m, "first_sale")
	return &scenario{
		engine:  e,
		store:   m,
		game:    game,
		mission: mission,
		taskA:   seedTask(m, mission, evA, 10, 1, false, 1),
		taskB:   seedTask(m, mission, evB, 20, 1, true, 2),
		reward:  seedReward(m, mission),
		evA:     evA,
		evB:     evB,
	}
}

func (s *scenario) event(eventName string, props map[string]any) Event {
	return Event{
		PlayerExternalID: "shop-123",
		EventType:        eventName,
		Properties:       props,
		Timestamp:        time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcessEventCompletesTasksAndMission(t *testing.T) {
	s := newScenario()
	ctx := context.Background()

	res, err := s.engine.ProcessEvent(ctx, s.event("product_created", nil))
	if err != nil {
		t.Fatalf("ProcessEvent(A): %v", err)
	}
	if !res.Success || len(res.TasksCompleted) != 1 || res.TasksCompleted[0] != s.taskA.ID {
		t.Fatalf("after A: unexpected result %+v", res)
	}
	if len(res.MissionsCompleted) != 0 {
		t.Fatalf("mission completed too early: %+v", res)
	}

	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
	mp, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, "")
	if mp == nil || mp.PointsEarned != 10 || mp.Status != models.ProgressInProgress {
		t.Fatalf("after A: mission progress = %+v", mp)
	}

	res, err = s.engine.ProcessEvent(ctx, s.event("first_sale", nil))
	if err != nil {
		t.Fatalf("ProcessEvent(B): %v", err)
	}
	if len(res.MissionsCompleted) != 1 || res.MissionsCompleted[0] != s.mission.ID {
		t.Fatalf("after B: mission not completed: %+v", res)
	}
	if res.PointsEarned != 30 {
		t.Fatalf("after B: points = %d, want 30", res.PointsEarned)
	}

	mp, _ = s.store.MissionProgress(ctx, player.ID, s.mission.ID, "")
	if mp.Status != models.ProgressCompleted || mp.PointsEarned != 30 {
		t.Fatalf("after B: mission progress = %+v", mp)
	}

	if _, ok := s.store.playerRewards[key(player.ID, s.reward.ID)]; !ok {
		t.Fatal("reward grant missing after mission completion")
	}
	grant := s.store.playerRewards[key(player.ID, s.reward.ID)]
	if grant.Status != models.PlayerRewardEarned || grant.ExpiresAt == nil {
		t.Fatalf("grant = %+v", grant)
	}

	entry := s.store.board[key(player.ID, s.game.ID)]
	if entry == nil || entry.CompletedMissions != 1 || entry.CompletedTasks != 2 || entry.TotalPoints != 30 {
		t.Fatalf("leaderboard entry = %+v", entry)
	}

	refreshed, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
	if refreshed.TotalPoints != 30 || refreshed.TasksCompleted != 2 || refreshed.MissionsCompleted != 1 {
		t.Fatalf("player counters = %+v", refreshed)
	}
}

func TestProcessEventReplayIsIdempotent(t *testing.T) {
	s := newScenario()
	ctx := context.Background()
	ev := s.event("product_created", map[string]any{"dedupe_key": "evt-1"})

	first, err := s.engine.ProcessEvent(ctx, ev)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if len(first.TasksCompleted) != 1 {
		t.Fatalf("first delivery result: %+v", first)
	}

	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
	before, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, "")

	for i := 0; i < 3; i++ {
		replay, err := s.engine.ProcessEvent(ctx, ev)
		if err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
		if !replay.Success || len(replay.TasksCompleted) != 0 || len(replay.MissionsCompleted) != 0 {
			t.Fatalf("replay %d leaked completions: %+v", i, replay)
		}
	}

	after, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, "")
	if after.PointsEarned != before.PointsEarned || after.Status != before.Status {
		t.Fatalf("replay changed state: before %+v after %+v", before, after)
	}
	refreshed, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
	if refreshed.TasksCompleted != 1 {
		t.Fatalf("replay moved player counters: %+v", refreshed)
	}
}

func TestProcessEventValidation(t *testing.T) {
	s := newScenario()
	ctx := context.Background()

	cases := []struct {
		name string
		ev   Event
	}{
		{"missing player", Event{EventType: "product_created"}},
		{"missing event type", Event{PlayerExternalID: "shop-123"}},
		{"unknown event type", Event{PlayerExternalID: "shop-123", EventType: "no_such_event"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.engine.ProcessEvent(ctx, tc.ev)
			if !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("err = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestProcessEventNoMatchingTasks(t *testing.T) {
	s := newScenario()
	seedEvent(s.store, "unrelated_event")

	res, err := s.engine.ProcessEvent(context.Background(), s.event("unrelated_event", nil))
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if !res.Success || len(res.TasksCompleted) != 0 || len(res.MissionsCompleted) != 0 {
		t.Fatalf("no-match event should be an empty success, got %+v", res)
	}
}

func TestMultiOccurrenceTaskThreshold(t *testing.T) {
	s := newScenario()
	ctx := context.Background()
	evSell := seedEvent(s.store, "product_sold")
	sell5 := seedTask(s.store, s.mission, evSell, 15, 5, false, 3)

	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")

	for i := 1; i <= 4; i++ {
		hit, err := s.engine.ApplyTaskHit(ctx, player, s.store.tasks[sell5.ID])
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if hit.TaskCompleted {
			t.Fatalf("hit %d completed early", i)
		}
	}

	hit, err := s.engine.ApplyTaskHit(ctx, player, s.store.tasks[sell5.ID])
	if err != nil {
		t.Fatalf("hit 5: %v", err)
	}
	if !hit.TaskCompleted {
		t.Fatal("hit 5 should complete the task")
	}

	// The (N+1)-th hit is a no-op.
	hit, err = s.engine.ApplyTaskHit(ctx, player, s.store.tasks[sell5.ID])
	if err != nil {
		t.Fatalf("hit 6: %v", err)
	}
	if hit.TaskCompleted {
		t.Fatal("hit 6 re-completed a terminal task")
	}
	tp, _ := s.store.TaskProgress(ctx, player.ID, sell5.ID)
	if tp.Progress != 5 {
		t.Fatalf("progress = %d, want 5", tp.Progress)
	}
}

func TestPrerequisiteGatesProgress(t *testing.T) {
	s := newScenario()
	ctx := context.Background()

	locked := seedMission(s.store, s.game, 10)
	locked.PrerequisiteMissionID = &s.mission.ID
	evAdv := seedEvent(s.store, "campaign_launched")
	lockedTask := seedTask(s.store, locked, evAdv, 10, 1, false, 1)

	// Hits on the locked mission's task do nothing while the prerequisite
	// is incomplete.
	for i := 0; i < 3; i++ {
		res, err := s.engine.ProcessEvent(ctx, s.event("campaign_launched", map[string]any{"dedupe_key": uuid.NewString()}))
		if err != nil {
			t.Fatalf("ProcessEvent: %v", err)
		}
		if len(res.TasksCompleted) != 0 {
			t.Fatalf("locked task completed: %+v", res)
		}
	}
	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
	if mp, _ := s.store.MissionProgress(ctx, player.ID, locked.ID, ""); mp != nil && mp.PointsEarned != 0 {
		t.Fatalf("locked mission accumulated points: %+v", mp)
	}

	// Complete the prerequisite, then the same event unlocks the task.
	if _, err := s.engine.ProcessEvent(ctx, s.event("product_created", nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.engine.ProcessEvent(ctx, s.event("first_sale", nil)); err != nil {
		t.Fatal(err)
	}

	res, err := s.engine.ProcessEvent(ctx, s.event("campaign_launched", map[string]any{"dedupe_key": uuid.NewString()}))
	if err != nil {
		t.Fatalf("ProcessEvent after unlock: %v", err)
	}
	if len(res.TasksCompleted) != 1 || res.TasksCompleted[0] != lockedTask.ID {
		t.Fatalf("unlocked task not completed: %+v", res)
	}
}

func TestConcurrentHitsSingleCompletion(t *testing.T) {
	s := newScenario()
	ctx := context.Background()
	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")

	const workers = 16
	results := make(chan TaskHit, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			hit, err := s.engine.ApplyTaskHit(ctx, player, s.store.taskWithMissionCopy(s.taskA.ID))
			results <- hit
			errs <- err
		}()
	}

	completions := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent hit: %v", err)
		}
		if hit := <-results; hit.TaskCompleted {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("completions = %d, want exactly 1", completions)
	}
}

func TestConcurrentMissionCompletionGrantsOnce(t *testing.T) {
	s := newScenario()
	ctx := context.Background()
	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")

	const workers = 8
	done := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := s.engine.GrantRewardsForMission(ctx, player, s.mission)
			done <- err
		}()
	}
	for i := 0; i < workers; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent grant: %v", err)
		}
	}

	if got := len(s.store.playerRewards); got != 1 {
		t.Fatalf("grants = %d, want exactly 1", got)
	}
}
