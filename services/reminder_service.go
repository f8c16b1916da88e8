// services/reminder_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"creditbook/models"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// ReminderService sends a templated payment reminder to customers whose
// outstanding balance has gone quiet: TotalDue at or above a threshold with
// no ledger entry in the last N days.
type ReminderService struct {
	db     *gorm.DB
	client *twilio.RestClient

	minDue    float64
	quietDays int
}

func NewReminderService(db *gorm.DB) *ReminderService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	minDue := 100.0
	if env := os.Getenv("REMINDER_MIN_DUE"); env != "" {
		if v, err := strconv.ParseFloat(env, 64); err == nil {
			minDue = v
		}
	}
	quietDays := 7
	if env := os.Getenv("REMINDER_QUIET_DAYS"); env != "" {
		if v, err := strconv.Atoi(env); err == nil {
			quietDays = v
		}
	}

	return &ReminderService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
		minDue:    minDue,
		quietDays: quietDays,
	}
}

func (s *ReminderService) StartScheduler() {
	c := cron.New()

	// Run every day at 9 AM
	c.AddFunc("0 9 * * *", s.SendDailyReminders)

	c.Start()
	log.Println("Reminder scheduler started")
}

func (s *ReminderService) SendDailyReminders() {
	log.Println("Starting daily reminder processing...")

	var owners []models.User
	if err := s.db.Find(&owners, "is_active = ?", true).Error; err != nil {
		log.Printf("Failed to fetch owners: %v", err)
		return
	}

	for _, owner := range owners {
		s.ProcessOwnerReminders(&owner)
	}

	log.Println("Daily reminder processing completed")
}

func (s *ReminderService) ProcessOwnerReminders(owner *models.User) {
	customers, err := s.overdueCustomers(owner)
	if err != nil {
		log.Printf("Owner %s: failed to get overdue customers: %v", owner.ID, err)
		return
	}
	s.sendReminders(owner, customers)
}

// overdueCustomers selects active customers at or over the due threshold
// whose latest transaction is older than the quiet window (or who have no
// transactions at all but carry a balance, which only happens after a
// restore).
func (s *ReminderService) overdueCustomers(owner *models.User) ([]models.Customer, error) {
	cutoff := time.Now().AddDate(0, 0, -s.quietDays)

	var customers []models.Customer
	err := s.db.Raw(`
		SELECT * FROM customers c
		WHERE c.user_id = ?
		AND c.is_deleted = ?
		AND c.phone <> ''
		AND c.total_due >= ?
		AND NOT EXISTS (
			SELECT 1 FROM transactions t
			WHERE t.customer_id = c.id AND t.created_at > ?
		)
	`, owner.ID, false, s.minDue, cutoff).Scan(&customers).Error
	return customers, err
}

func (s *ReminderService) sendReminders(owner *models.User, customers []models.Customer) {
	for _, customer := range customers {
		message := fmt.Sprintf(
			"Hi %s, a gentle reminder from %s: your outstanding balance is %.2f. Please clear your dues at your earliest convenience. Thank you!",
			customer.Name, owner.BusinessName, customer.TotalDue,
		)

		// WhatsApp if phone is in E.164 format, else SMS
		channel := "sms"
		var to string
		if strings.HasPrefix(customer.Phone, "+") {
			to = "whatsapp:" + customer.Phone
			channel = "whatsapp"
		} else {
			to = customer.Phone
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetBody(message)

		if channel == "whatsapp" {
			params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
		} else {
			params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
		}

		resp, err := s.client.Api.CreateMessage(params)
		status := "sent"
		errorMsg := ""

		if err != nil {
			log.Printf("Failed to send reminder to %s: %v", customer.Phone, err)
			status = "failed"
			errorMsg = err.Error()
		} else if resp.Sid != nil {
			log.Printf("Reminder sent to %s, SID: %s", customer.Phone, *resp.Sid)
		} else {
			log.Printf("Reminder sent to %s, but no SID returned", customer.Phone)
		}

		reminderLog := models.ReminderLog{
			ID:           uuid.New(),
			UserID:       owner.ID,
			CustomerID:   customer.ID,
			Message:      message,
			AmountDue:    customer.TotalDue,
			Status:       status,
			ErrorMessage: errorMsg,
			Channel:      channel,
			SentAt:       time.Now(),
		}

		if err := s.db.Create(&reminderLog).Error; err != nil {
			log.Printf("Failed to log reminder for customer %s: %v", customer.ID, err)
		}
	}
}
