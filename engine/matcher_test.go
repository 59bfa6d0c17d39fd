package engine

import (
	"context"
	"testing"
	"time"

	"merchant-onboarding-system/models"
)

func TestFindEligibleTasksFiltering(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive task excluded", func(t *testing.T) {
		s := newScenario()
		s.taskA.IsActive = false
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		tasks, err := s.engine.FindEligibleTasks(ctx, s.evA.ID, player)
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 0 {
			t.Fatalf("inactive task matched: %+v", tasks)
		}
	})

	t.Run("inactive mission excluded", func(t *testing.T) {
		s := newScenario()
		s.mission.IsActive = false
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		tasks, err := s.engine.FindEligibleTasks(ctx, s.evA.ID, player)
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 0 {
			t.Fatalf("task under inactive mission matched: %+v", tasks)
		}
	})

	t.Run("closed window excluded", func(t *testing.T) {
		s := newScenario()
		past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		s.mission.EndDate = &past
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		tasks, err := s.engine.FindEligibleTasks(ctx, s.evA.ID, player)
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 0 {
			t.Fatalf("expired mission matched: %+v", tasks)
		}
	})

	t.Run("unbounded window included", func(t *testing.T) {
		s := newScenario()
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		tasks, err := s.engine.FindEligibleTasks(ctx, s.evA.ID, player)
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 1 {
			t.Fatalf("want 1 task, got %d", len(tasks))
		}
	})

	t.Run("specific audience", func(t *testing.T) {
		s := newScenario()
		s.mission.TargetMode = models.TargetModeSpecific
		s.mission.TargetPlayerIDs = []string{"someone-else"}
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		tasks, _ := s.engine.FindEligibleTasks(ctx, s.evA.ID, player)
		if len(tasks) != 0 {
			t.Fatalf("out-of-audience player matched: %+v", tasks)
		}

		s.mission.TargetPlayerIDs = []string{"someone-else", "shop-123"}
		tasks, _ = s.engine.FindEligibleTasks(ctx, s.evA.ID, player)
		if len(tasks) != 1 {
			t.Fatalf("listed player should match, got %d tasks", len(tasks))
		}
	})

	t.Run("filtered audience defaults to eligible", func(t *testing.T) {
		s := newScenario()
		s.mission.TargetMode = models.TargetModeFiltered
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		tasks, _ := s.engine.FindEligibleTasks(ctx, s.evA.ID, player)
		if len(tasks) != 1 {
			t.Fatalf("filtered mode should admit everyone, got %d tasks", len(tasks))
		}
	})

	t.Run("game targeting inherited when mission has none", func(t *testing.T) {
		s := newScenario()
		s.mission.TargetMode = ""
		s.game.TargetMode = models.TargetModeSpecific
		s.game.TargetPlayerIDs = []string{"someone-else"}
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		tasks, _ := s.engine.FindEligibleTasks(ctx, s.evA.ID, player)
		if len(tasks) != 0 {
			t.Fatalf("game audience should exclude player: %+v", tasks)
		}
	})

	t.Run("terminal progress excluded", func(t *testing.T) {
		s := newScenario()
		player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
		if _, err := s.engine.SkipTask(ctx, player, s.taskB.ID); err != nil {
			t.Fatal(err)
		}
		tasks, _ := s.engine.FindEligibleTasks(ctx, s.evB.ID, player)
		if len(tasks) != 0 {
			t.Fatalf("skipped task still matches: %+v", tasks)
		}
	})
}

func TestFindEligibleTasksOrdering(t *testing.T) {
	s := newScenario()
	ctx := context.Background()

	// Three tasks on one event with shuffled ordering indexes.
	ev := seedEvent(s.store, "order_shipped")
	t3 := seedTask(s.store, s.mission, ev, 5, 1, false, 30)
	t1 := seedTask(s.store, s.mission, ev, 5, 1, false, 10)
	t2 := seedTask(s.store, s.mission, ev, 5, 1, false, 20)

	player, _ := s.store.GetOrCreateByExternalID(ctx, "shop-123")
	tasks, err := s.engine.FindEligibleTasks(ctx, ev.ID, player)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{t1.ID, t2.ID, t3.ID}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("tasks[%d] = %s (order %d), want %s", i, tasks[i].ID, tasks[i].OrderIndex, id)
		}
	}
}
