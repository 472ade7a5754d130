package repository

import (
	"time"

	"github.com/MarcoHauser/LancerDesk/app/models"
	"gorm.io/gorm"
)

// invoiceRepository implements the InvoiceRepository interface
type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository instance
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

func (r *invoiceRepository) GetByID(id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.Preload("Client").First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByIDForUser retrieves an invoice only if it belongs to the given user.
// The client relation is preloaded for mail rendering.
func (r *invoiceRepository) GetByIDForUser(id, userID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Preload("Client").Where("id = ? AND user_id = ?", id, userID).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) ListByUser(userID uint, offset, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) Update(invoice *models.Invoice) error {
	return r.db.Save(invoice).Error
}

// MarkSent flips a draft invoice to sent and stamps the send time.
func (r *invoiceRepository) MarkSent(id uint) error {
	now := time.Now()
	return r.db.Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": models.InvoiceStatusSent, "sent_at": now}).Error
}
