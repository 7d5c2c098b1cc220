package seeding

import "github.com/PaulFidika/nekokit/entitlements"

// TestUser is a fixture identity for end-to-end tests.
type TestUser struct {
	Email               string            `json:"email"`
	Password            string            `json:"password"`
	FullName            string            `json:"-"`
	Tier                entitlements.Tier `json:"tier"`
	OnboardingCompleted bool              `json:"onboarding_completed"`
	BusinessName        string            `json:"-"`
	BusinessStage       string            `json:"-"`
	Industry            string            `json:"-"`
	State               string            `json:"-"`
	HasLLC              bool              `json:"-"`
	HasEIN              bool              `json:"-"`
	IsAdmin             bool              `json:"is_admin"`
}

const fixturePassword = "TestPassword123!"

// TestUsers are seeded in this order.
var TestUsers = []TestUser{
	{Email: "test-free@neko-test.local", Password: fixturePassword, FullName: "Test Free User", Tier: entitlements.TierFree,
		OnboardingCompleted: true, BusinessName: "Free Test Business", BusinessStage: "idea", Industry: "Technology", State: "CA"},
	{Email: "test-starter@neko-test.local", Password: fixturePassword, FullName: "Test Starter User", Tier: entitlements.TierStart,
		OnboardingCompleted: true, BusinessName: "Starter Test LLC", BusinessStage: "launching", Industry: "E-commerce", State: "TX", HasLLC: true, HasEIN: true},
	{Email: "test-pro@neko-test.local", Password: fixturePassword, FullName: "Test Pro User", Tier: entitlements.TierBuild,
		OnboardingCompleted: true, BusinessName: "Pro Test Corp", BusinessStage: "growing", Industry: "Consulting", State: "NY", HasLLC: true, HasEIN: true},
	{Email: "test-elite@neko-test.local", Password: fixturePassword, FullName: "Test Elite User", Tier: entitlements.TierScale,
		OnboardingCompleted: true, BusinessName: "Elite Test Enterprises", BusinessStage: "scaling", Industry: "Finance", State: "FL", HasLLC: true, HasEIN: true},
	{Email: "test-new@neko-test.local", Password: fixturePassword, FullName: "Test New User", Tier: entitlements.TierFree},
	{Email: "test-admin@neko-test.local", Password: fixturePassword, FullName: "Test Admin User", Tier: entitlements.TierScale,
		OnboardingCompleted: true, BusinessName: "Admin Test Corp", BusinessStage: "scaling", Industry: "Technology", State: "CA", HasLLC: true, HasEIN: true, IsAdmin: true},
}

// ProgressStep is a sample onboarding progress row.
type ProgressStep struct {
	Module    string
	Step      string
	Completed bool
}

var sampleProgress = []ProgressStep{
	{Module: "business_starter", Step: "create_llc", Completed: true},
	{Module: "business_starter", Step: "get_ein", Completed: true},
	{Module: "business_starter", Step: "open_business_bank", Completed: false},
}

// Task is a sample dashboard task.
type Task struct {
	Title    string
	Module   string
	Step     string
	Status   string
	Priority string
}

var sampleTasks = []Task{
	{Title: "Complete LLC registration", Module: "business_starter", Step: "create_llc", Status: "done", Priority: "high"},
	{Title: "Apply for EIN", Module: "business_starter", Step: "get_ein", Status: "in_progress", Priority: "high"},
	{Title: "Open business bank account", Module: "business_starter", Step: "open_business_bank", Status: "todo", Priority: "medium"},
}

// Streak is the engagement counter row.
type Streak struct {
	LoginCurrent, LoginLongest int
	TaskCurrent, TaskLongest   int
	TotalLoginDays             int
	TotalTasksCompleted        int
}

func streakFor(u TestUser) Streak {
	if !u.OnboardingCompleted {
		return Streak{TotalLoginDays: 1}
	}
	return Streak{LoginCurrent: 3, LoginLongest: 5, TaskCurrent: 2, TaskLongest: 4, TotalLoginDays: 10, TotalTasksCompleted: 5}
}
