package seeding

import (
	"context"
	"fmt"
	"time"

	pgstore "github.com/PaulFidika/nekokit/storage/postgres"
	"github.com/google/uuid"
)

// Store writes fixture side-data: profiles, progress, tasks and streaks.
type Store struct {
	db pgstore.DB
}

func NewStore(db pgstore.DB) *Store { return &Store{db: db} }

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, u TestUser) error {
	_, err := s.db.Exec(ctx, `UPDATE profiles SET full_name=$2, business_name=NULLIF($3, ''), business_stage=NULLIF($4, ''),
		industry=NULLIF($5, ''), state=NULLIF($6, ''), has_llc=$7, has_ein=$8, onboarding_completed=$9, updated_at=NOW()
		WHERE user_id=$1`,
		id, u.FullName, u.BusinessName, u.BusinessStage, u.Industry, u.State, u.HasLLC, u.HasEIN, u.OnboardingCompleted)
	return err
}

func (s *Store) UpsertProgress(ctx context.Context, id uuid.UUID, p ProgressStep, now time.Time) error {
	var completedAt *time.Time
	if p.Completed {
		completedAt = &now
	}
	_, err := s.db.Exec(ctx, `INSERT INTO progress (user_id, module, step, completed, completed_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, module, step) DO UPDATE SET completed=EXCLUDED.completed, completed_at=EXCLUDED.completed_at`,
		id, p.Module, p.Step, p.Completed, completedAt)
	return err
}

// ReplaceTasks deletes the user's tasks and inserts tasks.
func (s *Store) ReplaceTasks(ctx context.Context, id uuid.UUID, tasks []Task) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM user_tasks WHERE user_id=$1`, id); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	for _, t := range tasks {
		if _, err := s.db.Exec(ctx, `INSERT INTO user_tasks (user_id, title, module, step, status, priority) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, t.Title, t.Module, t.Step, t.Status, t.Priority); err != nil {
			return fmt.Errorf("insert task %q: %w", t.Title, err)
		}
	}
	return nil
}

func (s *Store) UpsertStreak(ctx context.Context, id uuid.UUID, st Streak, day time.Time) error {
	_, err := s.db.Exec(ctx, `INSERT INTO user_streaks (user_id, login_streak_current, login_streak_longest, task_streak_current,
		task_streak_longest, total_login_days, total_tasks_completed, last_login_date) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET login_streak_current=EXCLUDED.login_streak_current, login_streak_longest=EXCLUDED.login_streak_longest,
		task_streak_current=EXCLUDED.task_streak_current, task_streak_longest=EXCLUDED.task_streak_longest,
		total_login_days=EXCLUDED.total_login_days, total_tasks_completed=EXCLUDED.total_tasks_completed, last_login_date=EXCLUDED.last_login_date`,
		id, st.LoginCurrent, st.LoginLongest, st.TaskCurrent, st.TaskLongest, st.TotalLoginDays, st.TotalTasksCompleted, day.Format("2006-01-02"))
	return err
}
