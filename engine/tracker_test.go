package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
)

func TestSkipTaskFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown task", func(t *testing.T) {
		s := newScenario()
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		_, err := s.engine.SkipTask(ctx, player, uuid.NewString())
		if !errors.Is(err, ErrTaskNotFound) {
			t.Fatalf("err = %v, want ErrTaskNotFound", err)
		}
	})

	t.Run("required task", func(t *testing.T) {
		s := newScenario()
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		_, err := s.engine.SkipTask(ctx, player, s.taskA.ID)
		if !errors.Is(err, ErrTaskRequired) {
			t.Fatalf("err = %v, want ErrTaskRequired", err)
		}
		if tp, _ := s.store.TaskProgress(ctx, player.ID, s.taskA.ID); tp != nil {
			t.Fatalf("failed skip left state behind: %+v", tp)
		}
	})

	t.Run("already completed", func(t *testing.T) {
		s := newScenario()
		if _, err := s.engine.ProcessEvent(ctx, s.event("first_sale", nil)); err != nil {
			t.Fatal(err)
		}
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		_, err := s.engine.SkipTask(ctx, player, s.taskB.ID)
		if !errors.Is(err, ErrAlreadyCompleted) {
			t.Fatalf("err = %v, want ErrAlreadyCompleted", err)
		}
	})

	t.Run("already skipped", func(t *testing.T) {
		s := newScenario()
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		if _, err := s.engine.SkipTask(ctx, player, s.taskB.ID); err != nil {
			t.Fatalf("first skip: %v", err)
		}
		_, err := s.engine.SkipTask(ctx, player, s.taskB.ID)
		if !errors.Is(err, ErrAlreadySkipped) {
			t.Fatalf("err = %v, want ErrAlreadySkipped", err)
		}
	})
}

func TestSkippedTaskContributesNothing(t *testing.T) {
	s := newScenario()
	ctx := context.Background()
	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")

	tp, err := s.engine.SkipTask(ctx, player, s.taskB.ID)
	if err != nil {
		t.Fatalf("SkipTask: %v", err)
	}
	if tp.Status != models.ProgressSkipped || tp.SkippedAt == nil {
		t.Fatalf("task progress = %+v", tp)
	}

	// B's matching event is now a permanent no-op; the mission can never
	// collect B's 20 points.
	for i := 0; i < 3; i++ {
		res, err := s.engine.ProcessEvent(ctx, s.event("first_sale", map[string]any{"dedupe_key": uuid.NewString()}))
		if err != nil {
			t.Fatal(err)
		}
		if len(res.TasksCompleted) != 0 {
			t.Fatalf("skipped task completed: %+v", res)
		}
	}
	if _, err := s.engine.ProcessEvent(ctx, s.event("product_created", nil)); err != nil {
		t.Fatal(err)
	}

	mp, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, "")
	if mp.PointsEarned != 10 || mp.Status != models.ProgressInProgress {
		t.Fatalf("mission progress = %+v, want 10 points in_progress", mp)
	}
}

func TestMissionCompletionNeverRegresses(t *testing.T) {
	s := newScenario()
	ctx := context.Background()

	// A third optional task so something is left to skip after completion.
	evExtra := seedEvent(s.store, "theme_customized")
	extra := seedTask(s.store, s.mission, evExtra, 5, 1, true, 4)

	if _, err := s.engine.ProcessEvent(ctx, s.event("product_created", nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.engine.ProcessEvent(ctx, s.event("first_sale", nil)); err != nil {
		t.Fatal(err)
	}

	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
	mp, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, "")
	if mp.Status != models.ProgressCompleted {
		t.Fatalf("mission should be completed: %+v", mp)
	}

	// Skipping after completion, and even completing more tasks, leaves
	// the completed mission untouched.
	if _, err := s.engine.SkipTask(ctx, player, extra.ID); err != nil {
		t.Fatalf("skip after completion: %v", err)
	}
	after, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, "")
	if after.Status != models.ProgressCompleted || after.PointsEarned != 30 {
		t.Fatalf("mission regressed: %+v", after)
	}

	// Re-processing a completed mission is a no-op: no second fan-out.
	entry := s.store.board[key(player.ID, s.game.ID)]
	if entry.CompletedMissions != 1 {
		t.Fatalf("mission completion fanned out twice: %+v", entry)
	}
}

func TestRecurringMissionOpensFreshCycle(t *testing.T) {
	s := newScenario()
	ctx := context.Background()
	s.mission.IsRecurring = true
	s.mission.RecurrencePattern = models.RecurrenceDaily
	s.mission.PointsRequired = 10

	day1 := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	s.engine.now = func() time.Time { return day1 }
	ev := s.event("product_created", map[string]any{"dedupe_key": "d1"})
	ev.Timestamp = day1
	if _, err := s.engine.ProcessEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}

	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
	mp1, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, s.mission.CycleKey(day1))
	if mp1 == nil || mp1.Status != models.ProgressCompleted {
		t.Fatalf("day 1 cycle = %+v", mp1)
	}

	// Next day the same mission starts a fresh cycle row; the old one is
	// untouched.
	s.engine.now = func() time.Time { return day2 }
	if mp2, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, s.mission.CycleKey(day2)); mp2 != nil {
		t.Fatalf("day 2 cycle exists before any activity: %+v", mp2)
	}
	if s.mission.CycleKey(day1) == s.mission.CycleKey(day2) {
		t.Fatal("cycle keys should differ across days")
	}

	// Task progress carries no cycle component, so the task stays terminal
	// from day 1 and the day 2 event matches nothing: the fresh cycle
	// cannot accumulate points until the tasks are reopened externally.
	ev2 := s.event("product_created", map[string]any{"dedupe_key": "d2"})
	ev2.Timestamp = day2
	res, err := s.engine.ProcessEvent(ctx, ev2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.TasksCompleted) != 0 {
		t.Fatalf("day 2 completed tasks = %v, want none while the task is terminal", res.TasksCompleted)
	}
	if mp2, _ := s.store.MissionProgress(ctx, player.ID, s.mission.ID, s.mission.CycleKey(day2)); mp2 != nil {
		t.Fatalf("day 2 cycle accumulated progress from a terminal task: %+v", mp2)
	}
}

func TestCycleKeys(t *testing.T) {
	at := time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)
	cases := []struct {
		pattern models.RecurrencePattern
		want    string
	}{
		{models.RecurrenceDaily, "2026-03-15"},
		{models.RecurrenceWeekly, "2026-W11"},
		{models.RecurrenceMonthly, "2026-03"},
	}
	for _, tc := range cases {
		m := &models.Mission{IsRecurring: true, RecurrencePattern: tc.pattern}
		if got := m.CycleKey(at); got != tc.want {
			t.Errorf("CycleKey(%s) = %q, want %q", tc.pattern, got, tc.want)
		}
	}
	one := &models.Mission{}
	if got := one.CycleKey(at); got != "" {
		t.Errorf("non-recurring cycle = %q, want empty", got)
	}
}
