package enrollment

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nzci/enrolbridge/app/models"
	"github.com/nzci/enrolbridge/internal/pkg/apperrors"
	"github.com/nzci/enrolbridge/internal/pkg/courses"
	"github.com/nzci/enrolbridge/internal/pkg/edapp"
	"github.com/nzci/enrolbridge/internal/pkg/ledger"
)

// Provisioning stages reported through ProvisioningError.Op so callers can
// tell a failed account create from a failed roster add.
const (
	OpUserProvisioning = "edapp user provisioning"
	OpEnrolment        = "edapp enrolment"
)

const defaultStudentName = "NZCI Student"

// SaleInput is the raw field-value mapping of a Gumroad webhook ping.
type SaleInput struct {
	Email            string
	FullName         string
	ProductPermalink string
	Price            string
	SaleID           string
}

// SaleEvent is a validated, normalized sale. Immutable once built.
type SaleEvent struct {
	Email      string
	Name       string
	Product    string
	PriceCents int
	SaleID     string
	ReceivedAt time.Time
}

// Result is the transient enrollment outcome reported in the webhook
// response; nothing beyond the ledger entry is persisted.
type Result struct {
	Name     string
	Tier     string
	CourseID string
	UserID   string
}

// ReconcileReport summarizes one reconciliation pass over the ledger.
type ReconcileReport struct {
	Replayed  int `json:"replayed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Service sequences the enrollment pipeline: ledger append first, then
// course resolution, identity get-or-create and roster add. The steps are
// deliberately not transactional; a ledgered sale can fail provisioning and
// is picked up again by Reconcile.
type Service struct {
	resolver       *courses.Resolver
	directory      *edapp.Client
	sales          ledger.Store
	defaultProduct string
}

func NewService(resolver *courses.Resolver, directory *edapp.Client, sales ledger.Store, defaultProduct string) *Service {
	return &Service{
		resolver:       resolver,
		directory:      directory,
		sales:          sales,
		defaultProduct: defaultProduct,
	}
}

// NormalizeSale validates and normalizes a webhook payload. A missing email
// is the only rejection; everything else falls back to defaults. No side
// effects occur on rejection.
func (s *Service) NormalizeSale(in SaleInput) (SaleEvent, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return SaleEvent{}, &apperrors.ValidationError{Msg: "No email"}
	}

	name := strings.TrimSpace(in.FullName)
	if name == "" {
		name = defaultStudentName
	}
	product := strings.TrimSpace(in.ProductPermalink)
	if product == "" {
		product = s.defaultProduct
	}

	// Lenient price parse: non-numeric or absent values become zero.
	priceCents, err := strconv.Atoi(strings.TrimSpace(in.Price))
	if err != nil {
		priceCents = 0
	}

	saleID := strings.TrimSpace(in.SaleID)
	if saleID == "" {
		saleID = uuid.NewString()
	}

	return SaleEvent{
		Email:      email,
		Name:       name,
		Product:    product,
		PriceCents: priceCents,
		SaleID:     saleID,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// ProcessSale runs the pipeline for one validated sale. The ledger append
// happens before any provisioning attempt and its failure is logged, never
// propagated; a later provisioning failure does not roll the entry back.
func (s *Service) ProcessSale(ctx context.Context, event SaleEvent) (*Result, error) {
	if err := s.sales.Append(models.SaleRecord{
		SaleID:     event.SaleID,
		Email:      event.Email,
		Name:       event.Name,
		Product:    event.Product,
		PriceCents: event.PriceCents,
		Timestamp:  event.ReceivedAt,
	}); err != nil {
		log.Printf("sale ledger write error for %s: %v", event.SaleID, err)
	}

	courseID := s.resolver.Resolve(event.Product)
	tier := s.resolver.ClassifyPrice(event.PriceCents)

	userID, err := s.provision(ctx, event.Email, event.Name, courseID)
	if err != nil {
		s.recordOutcome(event.SaleID, models.SaleOutcomeFailed)
		return nil, err
	}
	s.recordOutcome(event.SaleID, models.SaleOutcomeEnrolled)

	log.Printf("enrolled %s (%s) in course %s [%s]", event.Email, userID, courseID, tier)
	return &Result{
		Name:     event.Name,
		Tier:     tier,
		CourseID: courseID,
		UserID:   userID,
	}, nil
}

// Reconcile replays provisioning for every ledger entry without a success
// outcome. It is the manual recovery path for sales that were ledgered but
// never enrolled; there is no automatic retry anywhere else.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	pending, err := s.sales.ListPending()
	if err != nil {
		return ReconcileReport{}, err
	}

	var report ReconcileReport
	for _, record := range pending {
		report.Replayed++
		courseID := s.resolver.Resolve(record.Product)
		if _, err := s.provision(ctx, record.Email, record.Name, courseID); err != nil {
			log.Printf("reconcile: provisioning still failing for sale %s: %v", record.SaleID, err)
			s.recordOutcome(record.SaleID, models.SaleOutcomeFailed)
			report.Failed++
			continue
		}
		s.recordOutcome(record.SaleID, models.SaleOutcomeEnrolled)
		report.Succeeded++
	}
	return report, nil
}

// provision resolves the user by email (first match wins, create on miss)
// and adds them to the course roster. Single attempt, no retry. Concurrent
// requests for the same unseen email can race and create two accounts; the
// remote directory does not enforce uniqueness and neither do we.
func (s *Service) provision(ctx context.Context, email, name, courseID string) (string, error) {
	user, err := s.directory.FindUserByEmail(ctx, email)
	if err != nil {
		return "", &apperrors.ProvisioningError{Op: OpUserProvisioning, Err: err}
	}
	if user == nil {
		user, err = s.directory.CreateUser(ctx, email, name)
		if err != nil {
			return "", &apperrors.ProvisioningError{Op: OpUserProvisioning, Err: err}
		}
	}

	if err := s.directory.Enroll(ctx, user.ID, courseID); err != nil {
		return "", &apperrors.ProvisioningError{Op: OpEnrolment, Err: err}
	}
	return user.ID, nil
}

func (s *Service) recordOutcome(saleID, outcome string) {
	if err := s.sales.RecordOutcome(saleID, outcome); err != nil {
		log.Printf("sale ledger outcome write error for %s: %v", saleID, err)
	}
}
