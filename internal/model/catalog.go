package model

import "time"

// LinkedRepository is a GitHub repository associated with a User.
//
// Branches is a flattened, representative value ("main", "main,dev"), not
// a structured list. Deleting the owning user deletes the row.
type LinkedRepository struct {
	ID         int64     `json:"id"`
	Organizer  *int64    `json:"organizer"` // owning users.id, nullable
	Repository *string   `json:"repository"`
	Branches   *string   `json:"branches"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Framework is the application stack of a deployable app.
type Framework string

const (
	FrameworkVueJS       Framework = "vuejs"
	FrameworkReact       Framework = "react"
	FrameworkExpressJS   Framework = "expressjs"
	FrameworkRubyOnRails Framework = "rubyonrails"
)

// AppDetail is a deployable application built from a LinkedRepository.
// Deleting the linked repository deletes the app.
type AppDetail struct {
	ID        int64      `json:"id"`
	Organizer *int64     `json:"organizer"` // linked_repositories.id, nullable
	Region    *string    `json:"region"`
	Framework *Framework `json:"framework"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AppPlan assigns one Plan to one AppDetail. Nothing prevents the same
// pair from being assigned more than once.
type AppPlan struct {
	ID        int64     `json:"id"`
	App       int64     `json:"app"`
	Plan      int64     `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DatabaseType is the engine of a managed database plan.
type DatabaseType string

const (
	DatabaseMySQL      DatabaseType = "mysql"
	DatabasePostgreSQL DatabaseType = "postgresql"
	DatabaseOracle     DatabaseType = "oracle"
)

// DatabasePlan scopes a Plan to a User for a chosen database engine.
// It is stored but has no HTTP surface.
type DatabasePlan struct {
	ID           int64         `json:"id"`
	Owner        *int64        `json:"owner"`
	DatabaseType *DatabaseType `json:"database_type"`
	Plan         *int64        `json:"plan"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
