package repository

import (
	"github.com/MarcoHauser/LancerDesk/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// ClientRepository defines the interface for client data operations
type ClientRepository interface {
	Create(client *models.Client) error
	GetByID(id uint) (*models.Client, error)
	GetByIDForUser(id, userID uint) (*models.Client, error)
	ListByUser(userID uint) ([]models.Client, error)
	Update(client *models.Client) error
	Delete(id uint) error
}

// InvoiceRepository defines the interface for invoice data operations
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByID(id uint) (*models.Invoice, error)
	GetByIDForUser(id, userID uint) (*models.Invoice, error)
	ListByUser(userID uint, offset, limit int) ([]models.Invoice, error)
	Update(invoice *models.Invoice) error
	MarkSent(id uint) error
}

// ReviewRepository defines the interface for review request data operations
type ReviewRepository interface {
	Create(review *models.ReviewRequest) error
	GetByID(id uint) (*models.ReviewRequest, error)
	GetByIDForUser(id, userID uint) (*models.ReviewRequest, error)
	GetByShareToken(token string) (*models.ReviewRequest, error)
	ListByUser(userID uint) ([]models.ReviewRequest, error)
	UpdateStatus(id uint, status, reviewerName, reviewerEmail string) error
	AddFile(file *models.ReviewFile) error
	ListFiles(reviewRequestID uint) ([]models.ReviewFile, error)
	GetFile(reviewRequestID, fileID uint) (*models.ReviewFile, error)
	AddComment(comment *models.ReviewComment) error
	ListComments(reviewRequestID uint) ([]models.ReviewComment, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User    UserRepository
	Client  ClientRepository
	Invoice InvoiceRepository
	Review  ReviewRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Client:  NewClientRepository(db),
		Invoice: NewInvoiceRepository(db),
		Review:  NewReviewRepository(db),
	}
}
