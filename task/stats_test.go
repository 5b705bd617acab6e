package task

import (
	"context"
	"testing"
	"time"
)

func TestService_ProjectStatistics_Empty(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.ProjectStatistics("proj-1")
	if err != nil {
		t.Fatalf("ProjectStatistics: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.AverageProgress != 0 {
		t.Errorf("AverageProgress = %v, want 0", stats.AverageProgress)
	}
}

func TestService_ProjectStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	past := testNow.Add(-24 * time.Hour)
	soon := testNow.AddDate(0, 0, 2)

	mustCreate(t, svc, &Task{Title: "p1", Priority: PriorityHigh, EstimatedHours: 4, ActualHours: 1})
	started := mustCreate(t, svc, &Task{Title: "p2", Priority: PriorityUrgent, DueDate: &past, EstimatedHours: 2})
	if _, err := svc.Start(ctx, started.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.UpdateProgress(ctx, started.ID, 50); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	done := mustCreate(t, svc, &Task{Title: "p3", DueDate: &soon})
	if _, err := svc.Complete(ctx, done.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	mustCreate(t, svc, &Task{Title: "p4", DueDate: &soon})

	// A task in another project must not leak into the counts.
	other := &Task{Title: "elsewhere", ProjectID: "proj-2", CreatedBy: "u1", Status: StatusPending, Priority: PriorityMedium}
	if _, err := svc.store.Create(other); err != nil {
		t.Fatalf("seed other project: %v", err)
	}

	stats, err := svc.ProjectStatistics("proj-1")
	if err != nil {
		t.Fatalf("ProjectStatistics: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Pending != 2 {
		t.Errorf("Pending = %d, want 2", stats.Pending)
	}
	if stats.InProgress != 1 {
		t.Errorf("InProgress = %d, want 1", stats.InProgress)
	}
	if stats.Completed != 1 {
		t.Errorf("Completed = %d, want 1", stats.Completed)
	}
	if stats.Overdue != 1 {
		t.Errorf("Overdue = %d, want 1", stats.Overdue)
	}
	// The completed task due soon does not count; the open one does.
	if stats.DueSoon != 1 {
		t.Errorf("DueSoon = %d, want 1", stats.DueSoon)
	}
	if stats.HighPriority != 1 {
		t.Errorf("HighPriority = %d, want 1", stats.HighPriority)
	}
	if stats.UrgentPriority != 1 {
		t.Errorf("UrgentPriority = %d, want 1", stats.UrgentPriority)
	}
	// Progress: 0 + 50 + 100 + 0 over 4 tasks.
	if stats.AverageProgress != 37.5 {
		t.Errorf("AverageProgress = %v, want 37.5", stats.AverageProgress)
	}
	if stats.TotalEstimatedHours != 6 {
		t.Errorf("TotalEstimatedHours = %v, want 6", stats.TotalEstimatedHours)
	}
	if stats.TotalActualHours != 1 {
		t.Errorf("TotalActualHours = %v, want 1", stats.TotalActualHours)
	}
}

func TestService_UserStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	past := testNow.Add(-24 * time.Hour)

	// Assigned to user-1: one pending (overdue), one completed.
	a := mustCreate(t, svc, &Task{Title: "a", CreatedBy: "someone", DueDate: &past})
	if _, err := svc.Assign(ctx, a.ID, "user-1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	b := mustCreate(t, svc, &Task{Title: "b", CreatedBy: "someone"})
	if _, err := svc.Assign(ctx, b.ID, "user-1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := svc.Complete(ctx, b.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Created by user-1, assigned elsewhere.
	c := mustCreate(t, svc, &Task{Title: "c", CreatedBy: "user-1"})
	if _, err := svc.Start(ctx, c.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stats, err := svc.UserStatistics("user-1")
	if err != nil {
		t.Fatalf("UserStatistics: %v", err)
	}

	if stats.Assigned.Total != 2 {
		t.Errorf("Assigned.Total = %d, want 2", stats.Assigned.Total)
	}
	if stats.Assigned.Pending != 1 {
		t.Errorf("Assigned.Pending = %d, want 1", stats.Assigned.Pending)
	}
	if stats.Assigned.Completed != 1 {
		t.Errorf("Assigned.Completed = %d, want 1", stats.Assigned.Completed)
	}
	if stats.Assigned.Overdue != 1 {
		t.Errorf("Assigned.Overdue = %d, want 1", stats.Assigned.Overdue)
	}

	if stats.Created.Total != 1 {
		t.Errorf("Created.Total = %d, want 1", stats.Created.Total)
	}
	if stats.Created.InProgress != 1 {
		t.Errorf("Created.InProgress = %d, want 1", stats.Created.InProgress)
	}
}

func TestService_UserStatistics_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	stats, err := svc.UserStatistics("nobody")
	if err != nil {
		t.Fatalf("UserStatistics: %v", err)
	}
	if stats.Assigned.Total != 0 || stats.Created.Total != 0 {
		t.Errorf("stats = %+v, want all zeros", stats)
	}
}
