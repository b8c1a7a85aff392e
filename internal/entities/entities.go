package entities

import (
	"time"

	"gorm.io/gorm"
)

// BookStatus is the persisted circulation state of a book.
type BookStatus string

const (
	BookStatusAvailable BookStatus = "AVAILABLE"
	BookStatusLoaned    BookStatus = "LOANED"
	BookStatusReserved  BookStatus = "RESERVED"
)

type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:100" json:"username"`
	PasswordHash string         `gorm:"size:128" json:"-"`
	FirstName    string         `gorm:"size:100" json:"first_name,omitempty"`
	LastName     string         `gorm:"size:100" json:"last_name,omitempty"`
	Role         UserRole       `gorm:"size:10;default:'USER'" json:"role"`
	Active       bool           `gorm:"default:true" json:"active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Failed-login lockout bookkeeping
	FailedLogins int        `gorm:"default:0" json:"-"`
	LockedUntil  *time.Time `json:"-"`
}

type Book struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"index;size:512" json:"title"`
	Author          string     `gorm:"index;size:256" json:"author"`
	PublicationYear int        `json:"publication_year,omitempty"`
	ISBN            string     `gorm:"index;size:20" json:"isbn,omitempty"`
	CategoryID      uint       `gorm:"index" json:"category_id"`
	Category        Category   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Status          BookStatus `gorm:"index;size:10;default:'AVAILABLE'" json:"status"`

	// ReservedForUserID is set iff Status is RESERVED. Only the
	// circulation service writes this column.
	ReservedForUserID *uint `gorm:"index" json:"reserved_for_user_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type Loan struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	UserID   uint `gorm:"index" json:"user_id"`
	BookID   uint `gorm:"index" json:"book_id"`
	User     User `gorm:"foreignKey:UserID" json:"-"`
	Book     Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
	LoanDate time.Time `json:"loan_date"`

	// ReturnDate is NULL while the loan is open. At most one open
	// loan exists per book.
	ReturnDate *time.Time `gorm:"index" json:"return_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type Reservation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index" json:"user_id"`
	BookID          uint      `gorm:"index" json:"book_id"`
	User            User      `gorm:"foreignKey:UserID" json:"-"`
	Book            Book      `gorm:"foreignKey:BookID" json:"-"`
	ReservationDate time.Time `gorm:"index" json:"reservation_date"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (Loan) TableName() string {
	return "loans"
}

func (Reservation) TableName() string {
	return "reservations"
}
